package sidebar

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// recordingDelete captures calls and returns err.
type recordingDelete struct {
	calls []uuid.UUID
	err   error
	state func() State
	seen  State
}

func (r *recordingDelete) fn(ctx context.Context, id uuid.UUID) error {
	r.calls = append(r.calls, id)
	if r.state != nil {
		r.seen = r.state()
	}
	return r.err
}

func twoItems() []*models.SidebarWorkflow {
	return []*models.SidebarWorkflow{{ID: uuid.New()}, {ID: uuid.New()}}
}

func TestDeleteFlow_ConfirmRemovesItem(t *testing.T) {
	items := twoItems()
	rec := &recordingDelete{}
	flow := NewDeleteFlow(items, rec.fn)
	rec.state = flow.State

	require.NoError(t, flow.Request(items[0].ID))
	assert.Equal(t, ConfirmPending, flow.State())

	require.NoError(t, flow.Confirm(context.Background()))

	assert.Equal(t, Deleting, rec.seen, "delete should run in the Deleting state")
	assert.Equal(t, Idle, flow.State())
	assert.Equal(t, []uuid.UUID{items[0].ID}, rec.calls)
	assert.Equal(t, []*models.SidebarWorkflow{items[1]}, flow.Items())
	assert.NoError(t, flow.Err())
}

func TestDeleteFlow_ConfirmFailureKeepsItem(t *testing.T) {
	items := twoItems()
	deleteErr := errors.New("Workflow not found")
	flow := NewDeleteFlow(items, (&recordingDelete{err: deleteErr}).fn)

	require.NoError(t, flow.Request(items[1].ID))
	err := flow.Confirm(context.Background())

	assert.ErrorIs(t, err, deleteErr)
	assert.ErrorIs(t, flow.Err(), deleteErr)
	assert.Equal(t, Idle, flow.State())
	assert.Len(t, flow.Items(), 2)
}

func TestDeleteFlow_CancelDoesNotDelete(t *testing.T) {
	items := twoItems()
	rec := &recordingDelete{}
	flow := NewDeleteFlow(items, rec.fn)

	require.NoError(t, flow.Request(items[0].ID))
	require.NoError(t, flow.Cancel())

	assert.Equal(t, Idle, flow.State())
	assert.Empty(t, rec.calls)
	assert.Len(t, flow.Items(), 2)
	_, pending := flow.Pending()
	assert.False(t, pending)
}

func TestDeleteFlow_InvalidTransitions(t *testing.T) {
	items := twoItems()
	flow := NewDeleteFlow(items, (&recordingDelete{}).fn)

	assert.ErrorIs(t, flow.Cancel(), ErrInvalidTransition, "cancel from idle")
	assert.ErrorIs(t, flow.Confirm(context.Background()), ErrInvalidTransition, "confirm from idle")

	require.NoError(t, flow.Request(items[0].ID))
	assert.ErrorIs(t, flow.Request(items[1].ID), ErrInvalidTransition, "request while pending")

	id, pending := flow.Pending()
	assert.True(t, pending)
	assert.Equal(t, items[0].ID, id)
}

func TestDeleteFlow_RequestUnknownWorkflow(t *testing.T) {
	flow := NewDeleteFlow(twoItems(), (&recordingDelete{}).fn)

	assert.ErrorIs(t, flow.Request(uuid.New()), ErrNotInList)
	assert.Equal(t, Idle, flow.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "confirm_pending", ConfirmPending.String())
	assert.Equal(t, "deleting", Deleting.String())
	assert.Equal(t, "state(9)", State(9).String())
}
