package domain

import "testing"

func TestAccessRules(t *testing.T) {
	admin := &Member{ID: "m-admin", Role: RoleAdmin}
	creator := &Member{ID: "m-creator", Role: RoleMember}
	other := &Member{ID: "m-other", Role: RoleMember}
	task := &Task{ID: "t-1", CreatorID: creator.ID}

	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"admin edits any task content", CanEditTaskContent(admin, task), true},
		{"creator edits own task content", CanEditTaskContent(creator, task), true},
		{"other member cannot edit content", CanEditTaskContent(other, task), false},
		{"anonymous cannot edit content", CanEditTaskContent(nil, task), false},
		{"delete follows edit rule", CanDeleteTask(other, task), false},
		{"any member moves tasks", CanMoveTask(other), true},
		{"anonymous cannot move", CanMoveTask(nil), false},
		{"admin manages board", CanManageBoard(admin), true},
		{"member cannot manage board", CanManageBoard(creator), false},
		{"member edits own record", CanEditMember(other, other.ID), true},
		{"member cannot edit others", CanEditMember(other, creator.ID), false},
		{"admin edits any record", CanEditMember(admin, other.ID), true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %v", tc.name, tc.got)
		}
	}

	if err := CanDeleteMember(admin, other.ID); err != nil {
		t.Errorf("admin deleting another member: %v", err)
	}
	if err := CanDeleteMember(admin, admin.ID); err != ErrSelfDelete {
		t.Errorf("self delete: expected ErrSelfDelete, got %v", err)
	}
	if err := CanDeleteMember(other, creator.ID); err != ErrForbidden {
		t.Errorf("member delete: expected ErrForbidden, got %v", err)
	}
	if err := CanDeleteMember(nil, creator.ID); err != ErrForbidden {
		t.Errorf("anonymous delete: expected ErrForbidden, got %v", err)
	}
}
