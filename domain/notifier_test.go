package domain

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
}

func notifierFixture() (*Notifier, *fakeStore, *fakeBus) {
	store := newFakeStore()
	bus := &fakeBus{}
	n := NewNotifier(store, bus, newFakeDeduper())
	n.now = fixedNow
	return n, store, bus
}

func assignedTask(id, title string, due time.Time, status TaskStatus) Task {
	d := due
	return Task{
		ID:            id,
		Title:         title,
		Status:        status,
		Priority:      PriorityMedium,
		DueDate:       &d,
		ResponsibleID: "m-1",
		AssigneeIDs:   []string{"m-1"},
		CreatorID:     "m-1",
	}
}

func TestOverdueIsDateOnly(t *testing.T) {
	now := fixedNow()
	cases := []struct {
		name string
		due  time.Time
		want bool
	}{
		{"yesterday", now.AddDate(0, 0, -1), true},
		{"earlier today", now.Add(-2 * time.Hour), false},
		{"midnight today", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"just before midnight", time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC), true},
		{"tomorrow", now.AddDate(0, 0, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := overdue(tc.due, now); got != tc.want {
				t.Fatalf("overdue(%v) = %v, want %v", tc.due, got, tc.want)
			}
		})
	}
}

func TestDueSoonUsesClockWindow(t *testing.T) {
	now := fixedNow()
	cases := []struct {
		name string
		due  time.Time
		want bool
	}{
		{"in an hour", now.Add(time.Hour), true},
		{"in exactly 24h", now.Add(24 * time.Hour), true},
		{"in 25h", now.Add(25 * time.Hour), false},
		{"right now", now, false},
		{"in the past", now.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dueSoon(tc.due, now); got != tc.want {
				t.Fatalf("dueSoon(%v) = %v, want %v", tc.due, got, tc.want)
			}
		})
	}
}

func TestEvaluateCreatesAlarmsWithTurkishMessages(t *testing.T) {
	n, store, bus := notifierFixture()
	ctx := context.Background()

	overdueTask := assignedTask("t-1", "Rapor", fixedNow().AddDate(0, 0, -2), StatusInProgress)
	soonTask := assignedTask("t-2", "Sunum", fixedNow().Add(3*time.Hour), StatusTodo)
	store.tasks[overdueTask.ID] = overdueTask
	store.tasks[soonTask.ID] = soonTask

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	notes, _ := store.ListNotifications(ctx)
	if len(notes) != 2 {
		t.Fatalf("expected 2 alarms, got %d", len(notes))
	}
	byTask := map[string]Notification{}
	for _, note := range notes {
		byTask[note.TaskID] = note
	}
	if got := byTask["t-1"]; got.Type != NotificationOverdue || got.Message != `"Rapor" görevinin son tarihi geçti.` {
		t.Fatalf("unexpected overdue alarm: %#v", got)
	}
	if got := byTask["t-2"]; got.Type != NotificationDueSoon || got.Message != `"Sunum" görevinin son tarihi yaklaşıyor.` {
		t.Fatalf("unexpected due-soon alarm: %#v", got)
	}
	if bus.Announced(CategoryNotifications) != 1 {
		t.Fatalf("expected one announcement, got %d", bus.Announced(CategoryNotifications))
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	task := assignedTask("t-1", "Rapor", fixedNow().AddDate(0, 0, -1), StatusInProgress)
	store.tasks[task.ID] = task

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	notes, _ := store.ListNotifications(ctx)
	if len(notes) != 1 {
		t.Fatalf("second pass must not duplicate, got %d alarms", len(notes))
	}
}

func TestEvaluateSkipsDoneArchivedAndUnassigned(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	done := assignedTask("t-1", "Bitti", fixedNow().AddDate(0, 0, -1), StatusDone)
	archived := assignedTask("t-2", "Arşiv", fixedNow().AddDate(0, 0, -1), StatusTodo)
	archived.IsArchived = true
	foreign := assignedTask("t-3", "Başkasının", fixedNow().AddDate(0, 0, -1), StatusTodo)
	foreign.AssigneeIDs = []string{"m-2"}
	noDue := assignedTask("t-4", "Tarihsiz", fixedNow(), StatusTodo)
	noDue.DueDate = nil
	store.tasks["t-1"] = done
	store.tasks["t-2"] = archived
	store.tasks["t-3"] = foreign
	store.tasks["t-4"] = noDue

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if notes, _ := store.ListNotifications(ctx); len(notes) != 0 {
		t.Fatalf("expected no alarms, got %#v", notes)
	}
}

func TestEvaluateDeletesAlarmsOfDoneTasksEvenWhenRead(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	task := assignedTask("t-1", "Rapor", fixedNow().AddDate(0, 0, -1), StatusDone)
	store.tasks[task.ID] = task
	store.notifications["n-1"] = Notification{
		ID: "n-1", RecipientID: "m-1", TaskID: "t-1", Type: NotificationOverdue, IsRead: true,
	}
	store.notifications["n-2"] = Notification{
		ID: "n-2", RecipientID: "m-1", TaskID: "t-1", Type: NotificationAssignment, IsRead: false,
	}

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	notes, _ := store.ListNotifications(ctx)
	if len(notes) != 1 || notes[0].Type != NotificationAssignment {
		t.Fatalf("only due alarms may be deleted: %#v", notes)
	}
}

func TestEvaluateReAlarmsAfterRead(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	task := assignedTask("t-1", "Rapor", fixedNow().AddDate(0, 0, -1), StatusInProgress)
	store.tasks[task.ID] = task

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// The recipient reads the alarm; mark-read releases the dedupe guard.
	svc := NewNotificationService(store, &fakeBus{}, n.deduper)
	actor := &Member{ID: "m-1", Role: RoleMember}
	notes, _ := store.ListNotifications(ctx)
	if err := svc.MarkRead(ctx, actor, notes[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	notes, _ = store.ListNotifications(ctx)
	unread := 0
	for _, note := range notes {
		if !note.IsRead {
			unread++
		}
	}
	// A read alarm no longer suppresses; the next pass raises a fresh one.
	if len(notes) != 2 || unread != 1 {
		t.Fatalf("expected a fresh unread alarm next to the read one, got %#v", notes)
	}
}

func TestEvaluateNeverRaisesBothAlarmTypes(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	// Overdue wins; the same task must not also get a due-soon alarm.
	task := assignedTask("t-1", "Rapor", fixedNow().Add(-20*time.Hour), StatusInProgress)
	store.tasks[task.ID] = task

	if err := n.Evaluate(ctx, "m-1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	notes, _ := store.ListNotifications(ctx)
	if len(notes) != 1 {
		t.Fatalf("expected a single alarm, got %#v", notes)
	}
}

func TestEvaluateAllCoversEveryMember(t *testing.T) {
	n, store, _ := notifierFixture()
	ctx := context.Background()

	store.members["m-1"] = Member{ID: "m-1", Role: RoleAdmin}
	store.members["m-2"] = Member{ID: "m-2", Role: RoleMember}
	task := assignedTask("t-1", "Ortak", fixedNow().AddDate(0, 0, -1), StatusTodo)
	task.AssigneeIDs = []string{"m-1", "m-2"}
	store.tasks[task.ID] = task

	if err := n.EvaluateAll(ctx); err != nil {
		t.Fatalf("evaluate all: %v", err)
	}
	notes, _ := store.ListNotifications(ctx)
	recipients := map[string]int{}
	for _, note := range notes {
		recipients[note.RecipientID]++
	}
	if recipients["m-1"] != 1 || recipients["m-2"] != 1 {
		t.Fatalf("expected one alarm per assignee, got %#v", recipients)
	}
}
