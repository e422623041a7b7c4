package domain

// Authorization rules are enforced here, at the mutation layer, not only in
// the UI. Handlers translate ErrForbidden into a 403.

// CanEditTaskContent reports whether the actor may change a task's title,
// description, assignee set or other content fields.
func CanEditTaskContent(actor *Member, t *Task) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || t.CreatorID == actor.ID
}

// CanDeleteTask reports whether the actor may delete the task.
func CanDeleteTask(actor *Member, t *Task) bool {
	return CanEditTaskContent(actor, t)
}

// CanMoveTask reports whether the actor may change a task's column or
// priority. Any signed-in member may.
func CanMoveTask(actor *Member) bool {
	return actor != nil
}

// CanManageBoard reports whether the actor may edit column labels, reset the
// board or clear all tasks.
func CanManageBoard(actor *Member) bool {
	return actor != nil && actor.IsAdmin()
}

// CanEditMember reports whether the actor may update the given roster entry.
func CanEditMember(actor *Member, memberID string) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.ID == memberID
}

// CanDeleteMember returns nil when the actor may remove the roster entry,
// ErrSelfDelete for the actor's own record and ErrForbidden otherwise.
func CanDeleteMember(actor *Member, memberID string) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrForbidden
	}
	if actor.ID == memberID {
		return ErrSelfDelete
	}
	return nil
}
