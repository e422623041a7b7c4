package api

import (
	"context"

	"workflow-api/domain"
	"workflow-api/subscription"
)

// Authenticator resolves the subject of a request's bearer token.
type Authenticator interface {
	SubjectFromAuthHeader(h string) (*Subject, error)
}

// TokenIssuer mints session tokens in the local identity variant.
type TokenIssuer interface {
	IssueToken(memberID string) (string, error)
}

// BlobReader serves stored blob payloads for download routes.
type BlobReader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// ContentTyper is implemented by blob stores that remember MIME types.
type ContentTyper interface {
	ContentType(ctx context.Context, key string) string
}

// Deps bundles everything Register wires the routes against.
type Deps struct {
	Store         domain.Store
	Blobs         BlobReader
	Auth          Authenticator
	Tasks         *domain.TaskService
	Members       *domain.MemberService
	Notifications *domain.NotificationService
	Board         *domain.BoardService
	Broker        *subscription.Broker

	// Wake prompts the notification evaluator after a write that may change
	// due-date alarms. Optional.
	Wake chan<- struct{}

	// LocalIdentity enables the signin/signup routes backed by stored
	// credentials. When false, identity comes from the external provider's
	// tokens and those routes answer 404.
	LocalIdentity bool
}
