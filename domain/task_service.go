package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// NewAttachment carries an uploaded file before it is bound to a task.
type NewAttachment struct {
	ID       string
	FileName string
	MimeType string
	Data     []byte
}

// NewVoiceNote carries a recorded audio payload before it is bound to a task.
type NewVoiceNote struct {
	ID         string
	DurationMs int64
	Data       []byte
}

// TaskService implements the task mutations: create, update, move, archive,
// unarchive and delete. Every successful write is announced so other views
// converge.
type TaskService struct {
	store   Store
	blobs   BlobStore
	purger  Purger
	bus     Announcer
	deduper Deduper
	now     func() time.Time
}

func NewTaskService(store Store, blobs BlobStore, purger Purger, bus Announcer, deduper Deduper) *TaskService {
	return &TaskService{
		store:   store,
		blobs:   blobs,
		purger:  purger,
		bus:     bus,
		deduper: deduper,
		now:     time.Now,
	}
}

// Create validates and persists a new task. Assignment notifications are
// raised eagerly for every assignee other than the actor.
func (s *TaskService) Create(ctx context.Context, actor *Member, t Task, atts []NewAttachment, vns []NewVoiceNote) (*Task, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CreatorID = actor.ID
	t.IsArchived = false

	processed, err := s.storeAttachments(ctx, atts)
	if err != nil {
		return nil, err
	}
	t.Attachments = append(t.Attachments, processed...)
	notes, err := s.storeVoiceNotes(ctx, vns)
	if err != nil {
		return nil, err
	}
	t.VoiceNotes = append(t.VoiceNotes, notes...)

	notified := s.notifyAssignment(ctx, actor, &t, t.AssigneeIDs)

	if err := s.store.PutTask(ctx, t); err != nil {
		return nil, fmt.Errorf("put task: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	if notified {
		s.bus.Announce(CategoryNotifications)
	}
	return &t, nil
}

// Update persists a full task replacement. Content edits require the creator
// or an admin; a status-only change is open to every member. The final state
// is the caller's payload in full, so concurrent editors race under
// last-write-wins.
func (s *TaskService) Update(ctx context.Context, actor *Member, updated Task, newAtts []NewAttachment, removeAtts []Attachment, newVNs []NewVoiceNote, removeVNs []VoiceNote) (*Task, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	original, err := s.store.GetTask(ctx, updated.ID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if original == nil {
		return nil, ErrNotFound
	}

	contentEdit := contentChanged(original, &updated) || len(newAtts) > 0 || len(removeAtts) > 0 || len(newVNs) > 0 || len(removeVNs) > 0
	if contentEdit && !CanEditTaskContent(actor, original) {
		return nil, ErrForbidden
	}

	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	notified := false
	added := addedAssignees(original, &updated)
	if len(added) > 0 {
		notified = s.notifyAssignment(ctx, actor, &updated, added)
	}

	alarmsRemoved := false
	updated.CompletedAt = original.CompletedAt
	if updated.Status != original.Status {
		if updated.Status == StatusDone {
			now := s.now()
			updated.CompletedAt = &now
			removed, derr := s.deleteDueAlarms(ctx, updated.ID)
			if derr != nil {
				return nil, derr
			}
			alarmsRemoved = removed
		} else if original.Status == StatusDone {
			updated.CompletedAt = nil
		}
	}

	processed, err := s.storeAttachments(ctx, newAtts)
	if err != nil {
		return nil, err
	}
	updated.Attachments = append(updated.Attachments, processed...)
	notes, err := s.storeVoiceNotes(ctx, newVNs)
	if err != nil {
		return nil, err
	}
	updated.VoiceNotes = append(updated.VoiceNotes, notes...)

	if err := s.removeBlobs(ctx, removeAtts, removeVNs); err != nil {
		log.WithField("task", updated.ID).Warnf("blob removal: %v", err)
	}
	updated.Attachments = dropAttachments(updated.Attachments, removeAtts)
	updated.VoiceNotes = dropVoiceNotes(updated.VoiceNotes, removeVNs)

	updated.UpdatedAt = s.now()
	updated.UpdatedBy = actor.ID
	if err := s.store.PutTask(ctx, updated); err != nil {
		return nil, fmt.Errorf("put task: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	if notified || alarmsRemoved {
		s.bus.Announce(CategoryNotifications)
	}
	return &updated, nil
}

// Move changes only the task's column. A transition into Done stamps
// completedAt and clears the task's due-date alarms; leaving Done clears the
// stamp.
func (s *TaskService) Move(ctx context.Context, actor *Member, taskID string, newStatus TaskStatus) (*Task, error) {
	if !CanMoveTask(actor) {
		return nil, ErrForbidden
	}
	if !newStatus.Valid() {
		return nil, Validation("unknown status")
	}
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	if t.Status == newStatus {
		return t, nil
	}

	alarmsRemoved := false
	if newStatus == StatusDone {
		now := s.now()
		t.CompletedAt = &now
		removed, derr := s.deleteDueAlarms(ctx, t.ID)
		if derr != nil {
			return nil, derr
		}
		alarmsRemoved = removed
	} else if t.Status == StatusDone {
		t.CompletedAt = nil
	}

	t.Status = newStatus
	t.UpdatedAt = s.now()
	t.UpdatedBy = actor.ID
	if err := s.store.PutTask(ctx, *t); err != nil {
		return nil, fmt.Errorf("put task: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	if alarmsRemoved {
		s.bus.Announce(CategoryNotifications)
	}
	return t, nil
}

// Delete removes the task record and schedules its blobs for purge. Deleting
// an already-missing task is a no-op.
func (s *TaskService) Delete(ctx context.Context, actor *Member, taskID string) error {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if t == nil {
		return nil
	}
	if !CanDeleteTask(actor, t) {
		return ErrForbidden
	}
	if keys := t.BlobKeys(); len(keys) > 0 {
		if err := s.purger.EnqueuePurge(ctx, keys); err != nil {
			return fmt.Errorf("enqueue blob purge: %w", err)
		}
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	return nil
}

// Archive soft-deletes the given tasks one by one. The writes are independent,
// so a failure part way through leaves the earlier tasks archived; the count
// of archived tasks is returned alongside the error.
func (s *TaskService) Archive(ctx context.Context, actor *Member, taskIDs []string) (int, error) {
	if actor == nil {
		return 0, ErrForbidden
	}
	archived := 0
	for _, id := range taskIDs {
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return archived, fmt.Errorf("get task: %w", err)
		}
		if t == nil {
			continue
		}
		t.IsArchived = true
		if t.CompletedAt == nil {
			now := s.now()
			t.CompletedAt = &now
		}
		if err := s.store.PutTask(ctx, *t); err != nil {
			return archived, fmt.Errorf("archive task %s: %w", id, err)
		}
		archived++
	}
	if archived > 0 {
		s.bus.Announce(CategoryTasks)
	}
	return archived, nil
}

// Unarchive restores a soft-deleted task to the board.
func (s *TaskService) Unarchive(ctx context.Context, actor *Member, taskID string) (*Task, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t == nil || !t.IsArchived {
		return nil, ErrNotFound
	}
	t.IsArchived = false
	if err := s.store.PutTask(ctx, *t); err != nil {
		return nil, fmt.Errorf("put task: %w", err)
	}
	s.bus.Announce(CategoryTasks)
	return t, nil
}

func (s *TaskService) storeAttachments(ctx context.Context, atts []NewAttachment) ([]Attachment, error) {
	processed := make([]Attachment, 0, len(atts))
	for _, a := range atts {
		key := uuid.NewString()
		if _, err := s.blobs.Upload(ctx, key, a.Data, a.MimeType); err != nil {
			return nil, fmt.Errorf("upload attachment %s: %w", a.FileName, err)
		}
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		processed = append(processed, Attachment{
			ID:        id,
			FileName:  a.FileName,
			MimeType:  a.MimeType,
			SizeBytes: int64(len(a.Data)),
			BlobKey:   key,
			CreatedAt: s.now(),
		})
	}
	return processed, nil
}

func (s *TaskService) storeVoiceNotes(ctx context.Context, vns []NewVoiceNote) ([]VoiceNote, error) {
	processed := make([]VoiceNote, 0, len(vns))
	for _, v := range vns {
		key := uuid.NewString()
		if _, err := s.blobs.Upload(ctx, key, v.Data, "audio/webm"); err != nil {
			return nil, fmt.Errorf("upload voice note: %w", err)
		}
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}
		processed = append(processed, VoiceNote{
			ID:         id,
			BlobKey:    key,
			DurationMs: v.DurationMs,
			CreatedAt:  s.now(),
		})
	}
	return processed, nil
}

func (s *TaskService) removeBlobs(ctx context.Context, atts []Attachment, vns []VoiceNote) error {
	keys := make([]string, 0, len(atts)+len(vns))
	for _, a := range atts {
		keys = append(keys, a.BlobKey)
	}
	for _, v := range vns {
		keys = append(keys, v.BlobKey)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.purger.EnqueuePurge(ctx, keys)
}

// notifyAssignment writes one Assignment notification per recipient, skipping
// the actor. Returns true when at least one notification was persisted.
func (s *TaskService) notifyAssignment(ctx context.Context, actor *Member, t *Task, recipients []string) bool {
	notified := false
	for _, recipientID := range recipients {
		if recipientID == actor.ID {
			continue
		}
		n := Notification{
			ID:          uuid.NewString(),
			RecipientID: recipientID,
			TaskID:      t.ID,
			TaskTitle:   t.Title,
			Type:        NotificationAssignment,
			Message:     assignmentMessage(actor.Name, t.Title),
			IsRead:      false,
			CreatedAt:   s.now(),
		}
		if err := s.store.PutNotification(ctx, n); err != nil {
			log.WithFields(log.Fields{"task": t.ID, "recipient": recipientID}).Errorf("assignment notification: %v", err)
			continue
		}
		notified = true
	}
	return notified
}

// deleteDueAlarms removes every Overdue/DueSoon notification for the task,
// for all recipients and regardless of read state, and releases the matching
// creation guards.
func (s *TaskService) deleteDueAlarms(ctx context.Context, taskID string) (bool, error) {
	all, err := s.store.ListNotifications(ctx)
	if err != nil {
		return false, fmt.Errorf("list notifications: %w", err)
	}
	var ids []string
	for _, n := range all {
		if n.TaskID == taskID && n.IsDueAlarm() {
			ids = append(ids, n.ID)
			releaseAlarmGuard(ctx, s.deduper, n.RecipientID, n.TaskID, n.Type)
		}
	}
	if len(ids) == 0 {
		return false, nil
	}
	if err := s.store.DeleteNotifications(ctx, ids); err != nil {
		return false, fmt.Errorf("delete notifications: %w", err)
	}
	return true, nil
}

func contentChanged(original, updated *Task) bool {
	if original.Title != updated.Title || original.Description != updated.Description {
		return true
	}
	if original.ResponsibleID != updated.ResponsibleID {
		return true
	}
	if !timePtrEqual(original.DueDate, updated.DueDate) {
		return true
	}
	if len(original.AssigneeIDs) != len(updated.AssigneeIDs) {
		return true
	}
	for i := range original.AssigneeIDs {
		if original.AssigneeIDs[i] != updated.AssigneeIDs[i] {
			return true
		}
	}
	if len(original.Notes) != len(updated.Notes) {
		return true
	}
	return false
}

func addedAssignees(original, updated *Task) []string {
	old := make(map[string]struct{}, len(original.AssigneeIDs))
	for _, id := range original.AssigneeIDs {
		old[id] = struct{}{}
	}
	var added []string
	for _, id := range updated.AssigneeIDs {
		if _, ok := old[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func dropAttachments(atts []Attachment, remove []Attachment) []Attachment {
	if len(remove) == 0 {
		return atts
	}
	gone := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		gone[r.ID] = struct{}{}
	}
	kept := atts[:0]
	for _, a := range atts {
		if _, ok := gone[a.ID]; !ok {
			kept = append(kept, a)
		}
	}
	return kept
}

func dropVoiceNotes(vns []VoiceNote, remove []VoiceNote) []VoiceNote {
	if len(remove) == 0 {
		return vns
	}
	gone := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		gone[r.ID] = struct{}{}
	}
	kept := vns[:0]
	for _, v := range vns {
		if _, ok := gone[v.ID]; !ok {
			kept = append(kept, v)
		}
	}
	return kept
}
