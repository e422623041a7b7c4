package domain

import (
	"context"
	"fmt"
	"time"
)

// BoardService covers the board-wide operations: column labels, bulk task
// clearing and the full board reset.
type BoardService struct {
	store  Store
	purger Purger
	bus    Announcer
	local  bool
	now    func() time.Time
}

// NewBoardService builds the service. local selects whether a reset seeds
// member credentials for the local identity variant.
func NewBoardService(store Store, purger Purger, bus Announcer, local bool) *BoardService {
	return &BoardService{store: store, purger: purger, bus: bus, local: local, now: time.Now}
}

// Config returns the singleton board config, falling back to the defaults
// when the record is missing.
func (s *BoardService) Config(ctx context.Context) (BoardConfig, error) {
	c, err := s.store.GetConfig(ctx)
	if err != nil {
		return BoardConfig{}, fmt.Errorf("get config: %w", err)
	}
	if c == nil {
		return DefaultBoardConfig(), nil
	}
	return *c, nil
}

// UpdateColumnNames replaces the column labels. Admin only.
func (s *BoardService) UpdateColumnNames(ctx context.Context, actor *Member, names map[TaskStatus]string) (BoardConfig, error) {
	if !CanManageBoard(actor) {
		return BoardConfig{}, ErrForbidden
	}
	c := BoardConfig{ID: BoardConfigID, ColumnNames: names}
	if err := c.Validate(); err != nil {
		return BoardConfig{}, err
	}
	if err := s.store.PutConfig(ctx, c); err != nil {
		return BoardConfig{}, fmt.Errorf("put config: %w", err)
	}
	s.bus.Announce(CategoryConfig)
	return c, nil
}

// ClearAllTasks deletes every task and schedules all their blobs for purge.
// Admin only.
func (s *BoardService) ClearAllTasks(ctx context.Context, actor *Member) error {
	if !CanManageBoard(actor) {
		return ErrForbidden
	}
	if err := s.purgeTaskBlobs(ctx); err != nil {
		return err
	}
	if err := s.store.ClearTasks(ctx); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	return nil
}

// Reset wipes every collection and reseeds the demo workspace. Admin only.
func (s *BoardService) Reset(ctx context.Context, actor *Member) error {
	if !CanManageBoard(actor) {
		return ErrForbidden
	}
	if err := s.purgeTaskBlobs(ctx); err != nil {
		return err
	}
	if err := s.store.ClearTasks(ctx); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if err := s.store.ClearMembers(ctx); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	if err := s.store.ClearNotifications(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}

	var hasher func(string) (string, error)
	if s.local {
		hasher = BcryptHasher
	}
	seed, err := NewSeedData(s.now(), hasher)
	if err != nil {
		return fmt.Errorf("build seed data: %w", err)
	}
	for _, m := range seed.Members {
		if err := s.store.PutMember(ctx, m); err != nil {
			return fmt.Errorf("seed member: %w", err)
		}
	}
	for _, t := range seed.Tasks {
		if err := s.store.PutTask(ctx, t); err != nil {
			return fmt.Errorf("seed task: %w", err)
		}
	}
	if err := s.store.PutConfig(ctx, seed.Config); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	s.bus.Announce(CategoryAll)
	return nil
}

func (s *BoardService) purgeTaskBlobs(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	var keys []string
	for _, t := range tasks {
		keys = append(keys, t.BlobKeys()...)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.purger.EnqueuePurge(ctx, keys); err != nil {
		return fmt.Errorf("enqueue blob purge: %w", err)
	}
	return nil
}
