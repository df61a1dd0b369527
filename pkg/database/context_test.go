package database

import (
	"context"
	"testing"
)

func TestGetScope_Missing(t *testing.T) {
	if _, ok := GetScope(context.Background()); ok {
		t.Error("expected no scope in empty context")
	}
}

func TestGetScope_NilScope(t *testing.T) {
	ctx := SetScope(context.Background(), nil)
	if _, ok := GetScope(ctx); ok {
		t.Error("expected nil scope to be reported as missing")
	}
}

func TestSetScope_RoundTrip(t *testing.T) {
	scope := &Scope{}
	ctx := SetScope(context.Background(), scope)

	got, ok := GetScope(ctx)
	if !ok || got != scope {
		t.Errorf("expected stored scope, got %v (ok=%v)", got, ok)
	}
}

func TestScope_CloseWithoutConnection(t *testing.T) {
	// Must not panic.
	(&Scope{}).Close()
}
