package storage

import (
	"context"
	"testing"
	"time"

	"workflow-api/domain"
)

func seededLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir(), func() (domain.SeedData, error) {
		return domain.NewSeedData(time.Now().UTC(), func(pw string) (string, error) {
			return "hashed:" + pw, nil
		})
	})
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	return s
}

func TestLocalSeedsEmptyDirectory(t *testing.T) {
	s := seededLocal(t)
	ctx := context.Background()

	members, err := s.ListMembers(ctx)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 seeded members, got %d", len(members))
	}
	for _, m := range members {
		if m.PasswordHash == "" {
			t.Fatalf("member %s lost its password hash through persistence", m.Email)
		}
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 seeded tasks, got %d", len(tasks))
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg == nil || cfg.ID != domain.BoardConfigID {
		t.Fatalf("unexpected seeded config: %#v", cfg)
	}
}

func TestLocalSeedRunsOnce(t *testing.T) {
	dir := t.TempDir()
	open := func() *Local {
		s, err := NewLocal(dir, func() (domain.SeedData, error) {
			return domain.NewSeedData(time.Now().UTC(), nil)
		})
		if err != nil {
			t.Fatalf("open local store: %v", err)
		}
		return s
	}

	first := open()
	ctx := context.Background()
	if err := first.ClearTasks(ctx); err != nil {
		t.Fatalf("clear tasks: %v", err)
	}

	second := open()
	tasks, err := second.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("reopen reseeded the store: %d tasks", len(tasks))
	}
}

func TestLocalTaskRoundTrip(t *testing.T) {
	s := seededLocal(t)
	ctx := context.Background()

	due := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	task := domain.Task{
		ID:            "t-1",
		Title:         "Raporu hazırla",
		Status:        domain.StatusTodo,
		Priority:      domain.PriorityHigh,
		DueDate:       &due,
		ResponsibleID: "m-1",
		AssigneeIDs:   []string{"m-1"},
		CreatedAt:     due,
		UpdatedAt:     due,
		CreatorID:     "m-1",
	}
	if err := s.PutTask(ctx, task); err != nil {
		t.Fatalf("put task: %v", err)
	}

	got, err := s.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got == nil || got.Title != task.Title || !got.DueDate.Equal(due) {
		t.Fatalf("unexpected task: %#v", got)
	}

	task.Status = domain.StatusDone
	if err := s.PutTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}
	got, err = s.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("get updated task: %v", err)
	}
	if got.Status != domain.StatusDone {
		t.Fatalf("put did not replace the document: %s", got.Status)
	}

	if err := s.DeleteTask(ctx, "t-1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err = s.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted task still present: %#v", got)
	}
}

func TestLocalGetMissingReturnsNil(t *testing.T) {
	s := seededLocal(t)
	ctx := context.Background()

	task, err := s.GetTask(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing task: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil for missing task, got %#v", task)
	}

	member, err := s.GetMember(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing member: %v", err)
	}
	if member != nil {
		t.Fatalf("expected nil for missing member, got %#v", member)
	}
}

func TestLocalDeleteNotificationsBatch(t *testing.T) {
	s := seededLocal(t)
	ctx := context.Background()

	for _, id := range []string{"n-1", "n-2", "n-3"} {
		n := domain.Notification{ID: id, RecipientID: "m-1", TaskID: "t-1", Type: domain.NotificationOverdue, CreatedAt: time.Now()}
		if err := s.PutNotification(ctx, n); err != nil {
			t.Fatalf("put notification: %v", err)
		}
	}
	if err := s.DeleteNotifications(ctx, []string{"n-1", "n-3"}); err != nil {
		t.Fatalf("delete notifications: %v", err)
	}
	left, err := s.ListNotifications(ctx)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(left) != 1 || left[0].ID != "n-2" {
		t.Fatalf("unexpected notifications after batch delete: %#v", left)
	}
}
