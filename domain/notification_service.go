package domain

import (
	"context"
	"fmt"
	"sort"
)

// NotificationService exposes the per-recipient feed and read-state
// transitions.
type NotificationService struct {
	store   Store
	bus     Announcer
	deduper Deduper
}

func NewNotificationService(store Store, bus Announcer, deduper Deduper) *NotificationService {
	return &NotificationService{store: store, bus: bus, deduper: deduper}
}

// Feed returns the recipient's notifications, most recent first.
func (s *NotificationService) Feed(ctx context.Context, recipientID string) ([]Notification, error) {
	all, err := s.store.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	feed := make([]Notification, 0, len(all))
	for _, n := range all {
		if n.RecipientID == recipientID {
			feed = append(feed, n)
		}
	}
	sort.Slice(feed, func(i, j int) bool { return feed[i].CreatedAt.After(feed[j].CreatedAt) })
	return feed, nil
}

// MarkRead flips a single notification to read. Only the recipient may.
func (s *NotificationService) MarkRead(ctx context.Context, actor *Member, id string) error {
	if actor == nil {
		return ErrForbidden
	}
	all, err := s.store.ListNotifications(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	for _, n := range all {
		if n.ID != id {
			continue
		}
		if n.RecipientID != actor.ID {
			return ErrForbidden
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		if err := s.store.PutNotification(ctx, n); err != nil {
			return fmt.Errorf("put notification: %w", err)
		}
		if n.IsDueAlarm() {
			releaseAlarmGuard(ctx, s.deduper, n.RecipientID, n.TaskID, n.Type)
		}
		s.bus.Announce(CategoryNotifications)
		return nil
	}
	return ErrNotFound
}

// MarkAllRead flips every unread notification of the actor to read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *Member) error {
	if actor == nil {
		return ErrForbidden
	}
	all, err := s.store.ListNotifications(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	changed := false
	for _, n := range all {
		if n.RecipientID != actor.ID || n.IsRead {
			continue
		}
		n.IsRead = true
		if err := s.store.PutNotification(ctx, n); err != nil {
			return fmt.Errorf("put notification: %w", err)
		}
		if n.IsDueAlarm() {
			releaseAlarmGuard(ctx, s.deduper, n.RecipientID, n.TaskID, n.Type)
		}
		changed = true
	}
	if changed {
		s.bus.Announce(CategoryNotifications)
	}
	return nil
}
