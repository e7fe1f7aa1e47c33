package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusScheduled, StatusConfirmed))
	assert.True(t, CanTransition(StatusScheduled, StatusCancelled))
	assert.True(t, CanTransition(StatusScheduled, StatusRescheduled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusRescheduled))

	// Completion only happens through a prescription, never as a plain
	// status change.
	for _, from := range []Status{StatusScheduled, StatusConfirmed, StatusCancelled, StatusRescheduled} {
		assert.False(t, CanTransition(from, StatusCompleted), "from %s", from)
	}

	// Terminal states go nowhere.
	for _, from := range []Status{StatusCompleted, StatusCancelled, StatusRescheduled} {
		for _, to := range []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.False(t, CanTransition(StatusConfirmed, StatusScheduled))
	assert.False(t, CanTransition(StatusScheduled, StatusScheduled))
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRescheduled.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusConfirmed.Terminal())

	assert.True(t, StatusScheduled.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}
