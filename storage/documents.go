package storage

import "workflow-api/domain"

// memberDocument is the persisted shape of a Member. The local-auth secret is
// excluded from the Member's public JSON, so persistence wraps it back in.
type memberDocument struct {
	domain.Member
	PasswordHash string `json:"passwordHash,omitempty"`
}

func newMemberDocument(m domain.Member) memberDocument {
	return memberDocument{Member: m, PasswordHash: m.PasswordHash}
}

func (d memberDocument) toDomain() domain.Member {
	m := d.Member
	m.PasswordHash = d.PasswordHash
	return m
}
