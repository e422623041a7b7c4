package domain

import "testing"

func TestNormalizeAddsResponsibleToAssignees(t *testing.T) {
	task := Task{ResponsibleID: "m-1", AssigneeIDs: []string{"m-2"}}
	task.Normalize()
	if got := task.AssigneeIDs; len(got) != 2 || got[0] != "m-2" || got[1] != "m-1" {
		t.Fatalf("unexpected assignees %v", got)
	}

	// Already assigned: no duplicate is appended.
	task.Normalize()
	if len(task.AssigneeIDs) != 2 {
		t.Fatalf("normalize must be idempotent: %v", task.AssigneeIDs)
	}

	empty := Task{AssigneeIDs: []string{"m-2"}}
	empty.Normalize()
	if len(empty.AssigneeIDs) != 1 {
		t.Fatalf("empty responsible must not change assignees: %v", empty.AssigneeIDs)
	}
}

func TestTaskValidate(t *testing.T) {
	valid := Task{Title: "x", Status: StatusTodo, Priority: PriorityLow, ResponsibleID: "m-1"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	cases := map[string]Task{
		"missing title":       {Status: StatusTodo, Priority: PriorityLow, ResponsibleID: "m-1"},
		"missing responsible": {Title: "x", Status: StatusTodo, Priority: PriorityLow},
		"bad status":          {Title: "x", Status: "waiting", Priority: PriorityLow, ResponsibleID: "m-1"},
		"bad priority":        {Title: "x", Status: StatusTodo, Priority: "urgent", ResponsibleID: "m-1"},
	}
	for name, task := range cases {
		if err := task.Validate(); !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestStatusAndPriorityTokens(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("status %q not valid", s)
		}
	}
	if TaskStatus("archived").Valid() {
		t.Error("unknown status accepted")
	}
	for _, p := range []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Errorf("priority %q not valid", p)
		}
	}
	if TaskPriority("").Valid() {
		t.Error("empty priority accepted")
	}
}

func TestBlobKeysCoversAttachmentsAndVoiceNotes(t *testing.T) {
	task := Task{
		Attachments: []Attachment{{BlobKey: "blob-a"}, {BlobKey: "blob-b"}},
		VoiceNotes:  []VoiceNote{{BlobKey: "blob-v"}},
	}
	keys := task.BlobKeys()
	if len(keys) != 3 || keys[0] != "blob-a" || keys[2] != "blob-v" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if n := len((&Task{}).BlobKeys()); n != 0 {
		t.Fatalf("bare task has %d keys", n)
	}
}
