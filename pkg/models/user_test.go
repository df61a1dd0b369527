package models

import (
	"testing"
)

func TestSessionUser_ToUser(t *testing.T) {
	su := &SessionUser{ID: "user-1", Name: "Ada Lovelace", Email: "ada@example.com"}

	u := su.ToUser()

	if u.ID != "user-1" || u.Email != "ada@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if u.Name == nil || *u.Name != "Ada Lovelace" {
		t.Errorf("expected name to be copied, got %v", u.Name)
	}
	if u.Image != nil {
		t.Errorf("expected nil image, got %v", *u.Image)
	}
}

func TestWorkflow_OwnedBy(t *testing.T) {
	w := &Workflow{UserID: "owner"}
	if !w.OwnedBy("owner") {
		t.Error("expected owner to own workflow")
	}
	if w.OwnedBy("someone-else") {
		t.Error("expected other user not to own workflow")
	}
}

func TestWorkflowDescription(t *testing.T) {
	if got := WorkflowDescription("Quantum Computing"); got != "Workflow for: Quantum Computing" {
		t.Errorf("unexpected description %q", got)
	}
}
