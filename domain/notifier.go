package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Notifier derives the due-date notification feed from the task set. Repeated
// evaluation over an unchanged task set creates nothing and deletes nothing
// beyond the first pass.
type Notifier struct {
	store   Store
	bus     Announcer
	deduper Deduper
	now     func() time.Time
}

func NewNotifier(store Store, bus Announcer, deduper Deduper) *Notifier {
	return &Notifier{store: store, bus: bus, deduper: deduper, now: time.Now}
}

// Evaluate runs one pass of the rules engine for a single recipient:
// due-date alarms for tasks in Done status are deleted, then each active
// assigned task gets at most one unread Overdue or DueSoon notification.
func (n *Notifier) Evaluate(ctx context.Context, recipientID string) error {
	tasks, err := n.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	all, err := n.store.ListNotifications(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	doneTaskIDs := make(map[string]struct{})
	for _, t := range tasks {
		if t.Status == StatusDone {
			doneTaskIDs[t.ID] = struct{}{}
		}
	}

	var existing []Notification
	for _, note := range all {
		if note.RecipientID == recipientID {
			existing = append(existing, note)
		}
	}

	// Delete pass: a completed task must not continue to alarm, read or not.
	var toDelete []string
	for _, note := range existing {
		if _, done := doneTaskIDs[note.TaskID]; done && note.IsDueAlarm() {
			toDelete = append(toDelete, note.ID)
			releaseAlarmGuard(ctx, n.deduper, note.RecipientID, note.TaskID, note.Type)
		}
	}
	if len(toDelete) > 0 {
		if err := n.store.DeleteNotifications(ctx, toDelete); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
	}

	created := false
	for _, t := range tasks {
		if t.IsArchived || t.Status == StatusDone || !t.HasAssignee(recipientID) {
			continue
		}
		if t.DueDate == nil {
			continue
		}
		switch {
		case overdue(*t.DueDate, n.now()):
			if n.ensureAlarm(ctx, existing, recipientID, &t, NotificationOverdue) {
				created = true
			}
		case dueSoon(*t.DueDate, n.now()):
			if n.ensureAlarm(ctx, existing, recipientID, &t, NotificationDueSoon) {
				created = true
			}
		}
	}

	if created || len(toDelete) > 0 {
		n.bus.Announce(CategoryNotifications)
	}
	return nil
}

// EvaluateAll runs one pass for every roster member.
func (n *Notifier) EvaluateAll(ctx context.Context) error {
	members, err := n.store.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if err := n.Evaluate(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// Run evaluates on the given interval and whenever a tick arrives on wake,
// until the context is cancelled.
func (n *Notifier) Run(ctx context.Context, interval time.Duration, wake <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		if err := n.EvaluateAll(ctx); err != nil {
			log.Errorf("notification pass: %v", err)
		}
	}
}

// ensureAlarm creates the alarm unless an unread one of the same type already
// exists for the (recipient, task) pair. The dedupe guard keeps two instances
// evaluating at once from double-creating.
func (n *Notifier) ensureAlarm(ctx context.Context, existing []Notification, recipientID string, t *Task, typ NotificationType) bool {
	for _, note := range existing {
		if note.TaskID == t.ID && note.Type == typ && !note.IsRead {
			return false
		}
	}
	if n.deduper != nil {
		fresh, err := n.deduper.Add(ctx, recipientID, alarmGuardKey(t.ID, typ))
		if err != nil {
			log.WithFields(log.Fields{"task": t.ID, "recipient": recipientID}).Warnf("alarm guard: %v", err)
		} else if !fresh {
			return false
		}
	}

	msg := overdueMessage(t.Title)
	if typ == NotificationDueSoon {
		msg = dueSoonMessage(t.Title)
	}
	note := Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		TaskID:      t.ID,
		TaskTitle:   t.Title,
		Type:        typ,
		Message:     msg,
		IsRead:      false,
		CreatedAt:   n.now(),
	}
	if err := n.store.PutNotification(ctx, note); err != nil {
		log.WithFields(log.Fields{"task": t.ID, "recipient": recipientID}).Errorf("put notification: %v", err)
		releaseAlarmGuard(ctx, n.deduper, recipientID, t.ID, typ)
		return false
	}
	return true
}

// overdue compares calendar days only; a task due earlier today is not yet
// overdue.
func overdue(due, now time.Time) bool {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(startOfToday)
}

// dueSoon uses the clock: strictly in the future and within 24 hours.
func dueSoon(due, now time.Time) bool {
	until := due.Sub(now)
	return until > 0 && until <= 24*time.Hour
}

func alarmGuardKey(taskID string, typ NotificationType) string {
	return taskID + ":" + string(typ)
}

func releaseAlarmGuard(ctx context.Context, d Deduper, recipientID, taskID string, typ NotificationType) {
	if d == nil {
		return
	}
	if err := d.Remove(ctx, recipientID, alarmGuardKey(taskID, typ)); err != nil {
		log.WithFields(log.Fields{"task": taskID, "recipient": recipientID}).Warnf("release alarm guard: %v", err)
	}
}
