package domain

import (
	"testing"
	"time"
)

func TestNewSeedData(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seed, err := NewSeedData(now, func(pw string) (string, error) { return "hashed:" + pw, nil })
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if len(seed.Members) != 2 {
		t.Fatalf("expected 2 demo members, got %d", len(seed.Members))
	}
	admins := 0
	for _, m := range seed.Members {
		if m.IsAdmin() {
			admins++
		}
		if m.ID == "" || m.Email == "" || m.PasswordHash != "hashed:password123" {
			t.Fatalf("incomplete member: %#v", m)
		}
	}
	if admins != 1 {
		t.Fatalf("expected exactly one admin, got %d", admins)
	}

	if len(seed.Tasks) != 5 {
		t.Fatalf("expected 5 demo tasks, got %d", len(seed.Tasks))
	}
	memberIDs := map[string]bool{seed.Members[0].ID: true, seed.Members[1].ID: true}
	doneTasks := 0
	for _, task := range seed.Tasks {
		if err := task.Validate(); err != nil {
			t.Fatalf("seed task %q invalid: %v", task.Title, err)
		}
		if !task.HasAssignee(task.ResponsibleID) {
			t.Fatalf("responsible %s not assigned on %q", task.ResponsibleID, task.Title)
		}
		if !memberIDs[task.ResponsibleID] || !memberIDs[task.CreatorID] {
			t.Fatalf("task %q references an unknown member", task.Title)
		}
		if task.DueDate == nil {
			t.Fatalf("task %q has no due date", task.Title)
		}
		if task.Status == StatusDone {
			doneTasks++
			if task.CompletedAt == nil {
				t.Fatalf("done seed task %q has no completedAt", task.Title)
			}
		}
	}
	if doneTasks != 1 {
		t.Fatalf("expected one done seed task, got %d", doneTasks)
	}

	if err := seed.Config.Validate(); err != nil {
		t.Fatalf("seed config invalid: %v", err)
	}
	if seed.Config.ID != BoardConfigID {
		t.Fatalf("config id %q", seed.Config.ID)
	}
}

func TestNewSeedDataWithoutHasher(t *testing.T) {
	seed, err := NewSeedData(time.Now(), nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, m := range seed.Members {
		if m.PasswordHash != "" {
			t.Fatalf("hosted-variant seed must not carry hashes: %#v", m)
		}
	}
}
