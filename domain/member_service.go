package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemberService manages the workspace roster and, in the local identity
// variant, the credential checks behind sign-in.
type MemberService struct {
	store Store
	blobs BlobStore
	bus   Announcer
	now   func() time.Time
}

func NewMemberService(store Store, blobs BlobStore, bus Announcer) *MemberService {
	return &MemberService{store: store, blobs: blobs, bus: bus, now: time.Now}
}

// NewMemberInput is the payload for admin roster additions and self sign-up.
type NewMemberInput struct {
	Name      string
	Email     string
	Role      MemberRole
	AvatarURL string
	Password  string
}

// Add creates a roster entry via admin action.
func (s *MemberService) Add(ctx context.Context, actor *Member, in NewMemberInput) (*Member, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.create(ctx, in)
}

// SignUp creates a roster entry through self-registration. New accounts get
// the plain member role.
func (s *MemberService) SignUp(ctx context.Context, in NewMemberInput) (*Member, error) {
	in.Role = RoleMember
	return s.create(ctx, in)
}

func (s *MemberService) create(ctx context.Context, in NewMemberInput) (*Member, error) {
	if err := validateNewMember(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	now := s.now()
	m := Member{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     email,
		Role:      in.Role,
		AvatarURL: in.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		m.PasswordHash = string(hash)
	}
	if err := s.store.PutMember(ctx, m); err != nil {
		return nil, fmt.Errorf("put member: %w", err)
	}
	s.bus.Announce(CategoryMembers)
	return &m, nil
}

// Update replaces a roster entry. Members may edit themselves; admins may
// edit anyone. A new avatar payload replaces the previous avatar blob.
func (s *MemberService) Update(ctx context.Context, actor *Member, m Member, avatar []byte, avatarType string) (*Member, error) {
	if !CanEditMember(actor, m.ID) {
		return nil, ErrForbidden
	}
	current, err := s.store.GetMember(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if m.Name == "" {
		return nil, Validation("name is required")
	}
	if !m.Role.Valid() {
		return nil, Validation("unknown role")
	}
	// Role escalation stays an admin action.
	if m.Role != current.Role && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	m.Email = current.Email
	m.CreatedAt = current.CreatedAt
	m.PasswordHash = current.PasswordHash
	if len(avatar) > 0 {
		key := current.AvatarBlobKey
		if key == "" {
			key = uuid.NewString()
		}
		if _, err := s.blobs.Upload(ctx, key, avatar, avatarType); err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		m.AvatarBlobKey = key
		m.AvatarURL = ""
	}
	m.UpdatedAt = s.now()
	if err := s.store.PutMember(ctx, m); err != nil {
		return nil, fmt.Errorf("put member: %w", err)
	}
	s.bus.Announce(CategoryMembers)
	return &m, nil
}

// Delete removes a roster entry. Tasks referencing the member keep their
// dangling assignee/responsible ids; no reassignment happens.
func (s *MemberService) Delete(ctx context.Context, actor *Member, memberID string) error {
	if err := CanDeleteMember(actor, memberID); err != nil {
		return err
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return nil
	}
	if m.AvatarBlobKey != "" {
		if err := s.blobs.Delete(ctx, m.AvatarBlobKey); err != nil {
			return fmt.Errorf("delete avatar blob: %w", err)
		}
	}
	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	s.bus.Announce(CategoryMembers)
	return nil
}

// Authenticate verifies a local-variant credential pair. Unknown accounts and
// wrong passwords are indistinguishable to the caller.
func (s *MemberService) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	m, err := s.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if m == nil || m.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}

// FindByEmail looks a member up by normalized email, (nil, nil) when absent.
func (s *MemberService) FindByEmail(ctx context.Context, email string) (*Member, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	email = normalizeEmail(email)
	for i := range members {
		if normalizeEmail(members[i].Email) == email {
			return &members[i], nil
		}
	}
	return nil, nil
}

func validateNewMember(in NewMemberInput) error {
	if in.Name == "" {
		return Validation("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return Validation("malformed email")
	}
	if !in.Role.Valid() {
		return Validation("unknown role")
	}
	if in.Password != "" && len(in.Password) < 6 {
		return Validation("password must be at least 6 characters")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BcryptHasher hashes a password for storage on a roster record. Used when
// seeding the local identity variant.
func BcryptHasher(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
