package domain

import "time"

// MemberRole controls what a signed-in member may administer.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Member is a workspace roster entry. The id doubles as the authentication
// subject so tokens map straight onto roster records.
type Member struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          MemberRole `json:"role"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	AvatarBlobKey string     `json:"avatarBlobKey,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// PasswordHash is only populated in the local identity variant and is
	// never serialized to clients.
	PasswordHash string `json:"-"`
}

// IsAdmin reports whether the member holds the admin role.
func (m *Member) IsAdmin() bool { return m.Role == RoleAdmin }
