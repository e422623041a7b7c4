package domain

import "context"

// Change categories announced after successful writes. Views re-read the
// matching collections when they observe one.
const (
	CategoryTasks         = "tasks"
	CategoryMembers       = "members"
	CategoryConfig        = "config"
	CategoryNotifications = "notifications"
	CategoryAll           = "all"
)

// Store is the document persistence port the services depend on. Absent
// entities are reported as (nil, nil); deletes of missing ids are no-ops.
// Puts replace the whole document, so concurrent writers race under
// last-write-wins.
type Store interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	PutTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error
	ClearTasks(ctx context.Context) error

	GetMember(ctx context.Context, id string) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	PutMember(ctx context.Context, m Member) error
	DeleteMember(ctx context.Context, id string) error
	ClearMembers(ctx context.Context) error

	ListNotifications(ctx context.Context) ([]Notification, error)
	PutNotification(ctx context.Context, n Notification) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotifications(ctx context.Context, ids []string) error
	ClearNotifications(ctx context.Context) error

	GetConfig(ctx context.Context) (*BoardConfig, error)
	PutConfig(ctx context.Context, c BoardConfig) error
}

// BlobStore persists binary payloads for attachments, voice notes and avatars.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Purger schedules blob removal after a task is deleted. Implementations may
// delete inline or hand the keys to a background queue.
type Purger interface {
	EnqueuePurge(ctx context.Context, keys []string) error
}

// Announcer broadcasts a change category to every other active view. Announce
// must never fail the originating write.
type Announcer interface {
	Announce(category string)
}

// Deduper guards notification creation across concurrently evaluating
// instances. Add reports true when the key was newly recorded.
type Deduper interface {
	Add(ctx context.Context, recipientID, key string) (bool, error)
	Remove(ctx context.Context, recipientID, key string) error
}
