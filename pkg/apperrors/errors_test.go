package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify_KeepsSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", ErrUnauthenticated, ErrUnauthenticated},
		{"not found wrapped", fmt.Errorf("lookup: %w", ErrNotFound), ErrNotFound},
		{"forbidden", ErrForbidden, ErrForbidden},
		{"invalid input", ErrInvalidInput, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("workflow.delete", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if IsPersistence(got) {
				t.Error("sentinel should not become a persistence error")
			}
		})
	}
}

func TestClassify_UnknownBecomesPersistence(t *testing.T) {
	cause := errors.New("connection reset by peer")

	got := Classify("workflow.create", cause)

	var pe *PersistenceError
	if !errors.As(got, &pe) {
		t.Fatalf("expected *PersistenceError, got %T", got)
	}
	if pe.Op != "workflow.create" {
		t.Errorf("expected op workflow.create, got %q", pe.Op)
	}
	if !errors.Is(got, cause) {
		t.Error("expected persistence error to unwrap to the cause")
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify("x", nil) != nil {
		t.Error("expected nil")
	}
}

func TestPersistenceError_Message(t *testing.T) {
	err := NewPersistenceError("workflow.list", errors.New("boom"))
	if err.Error() != "workflow.list: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
