package sidebar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// State is a step of the delete flow.
type State int

const (
	Idle State = iota
	ConfirmPending
	Deleting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ConfirmPending:
		return "confirm_pending"
	case Deleting:
		return "deleting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is returned when an event is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid delete flow transition")
	// ErrNotInList is returned when a delete is requested for a workflow not held by the flow.
	ErrNotInList = errors.New("workflow not in list")
)

// DeleteFunc performs the actual deletion.
type DeleteFunc func(ctx context.Context, workflowID uuid.UUID) error

// DeleteFlow drives Idle → ConfirmPending → Deleting → Idle over a held
// sidebar list. A successful delete removes the item from the list; a failed
// one keeps the list and records the error.
type DeleteFlow struct {
	mu       sync.Mutex
	state    State
	items    []*models.SidebarWorkflow
	pending  uuid.UUID
	lastErr  error
	deleteFn DeleteFunc
}

// NewDeleteFlow starts an idle flow over items.
func NewDeleteFlow(items []*models.SidebarWorkflow, deleteFn DeleteFunc) *DeleteFlow {
	held := make([]*models.SidebarWorkflow, len(items))
	copy(held, items)
	return &DeleteFlow{items: held, deleteFn: deleteFn}
}

func (f *DeleteFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Items returns a copy of the held list.
func (f *DeleteFlow) Items() []*models.SidebarWorkflow {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*models.SidebarWorkflow, len(f.items))
	copy(items, f.items)
	return items
}

// Err returns the error of the last failed delete, cleared by the next Request.
func (f *DeleteFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Pending returns the workflow awaiting confirmation or deletion.
func (f *DeleteFlow) Pending() (uuid.UUID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.state != Idle
}

// Request selects workflowID for deletion. Idle → ConfirmPending.
func (f *DeleteFlow) Request(workflowID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Idle {
		return fmt.Errorf("request in %s: %w", f.state, ErrInvalidTransition)
	}
	if f.indexOf(workflowID) < 0 {
		return ErrNotInList
	}

	f.state = ConfirmPending
	f.pending = workflowID
	f.lastErr = nil
	return nil
}

// Cancel abandons the pending delete. ConfirmPending → Idle, nothing is deleted.
func (f *DeleteFlow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != ConfirmPending {
		return fmt.Errorf("cancel in %s: %w", f.state, ErrInvalidTransition)
	}
	f.state = Idle
	f.pending = uuid.Nil
	return nil
}

// Confirm runs the delete. ConfirmPending → Deleting → Idle.
// The delete error, if any, is returned and kept in Err.
func (f *DeleteFlow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.state != ConfirmPending {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("confirm in %s: %w", state, ErrInvalidTransition)
	}
	f.state = Deleting
	id := f.pending
	f.mu.Unlock()

	err := f.deleteFn(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		if i := f.indexOf(id); i >= 0 {
			f.items = append(f.items[:i], f.items[i+1:]...)
		}
	}
	f.lastErr = err
	f.state = Idle
	f.pending = uuid.Nil
	return err
}

func (f *DeleteFlow) indexOf(id uuid.UUID) int {
	for i, w := range f.items {
		if w.ID == id {
			return i
		}
	}
	return -1
}
