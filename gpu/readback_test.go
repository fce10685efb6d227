package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadbackSlotSingleInFlight(t *testing.T) {
	s := &Simulator{}
	assert.False(t, s.ReadbackPending())

	require.True(t, s.tryAcquireReadbackSlot())
	assert.True(t, s.ReadbackPending())

	// A second request while the copy is outstanding is dropped, and the
	// slot stays where it was.
	assert.False(t, s.tryAcquireReadbackSlot())
	assert.Equal(t, readbackCopied, s.rbState)
}

func TestReadbackSlotBusyThroughMapStates(t *testing.T) {
	s := &Simulator{}
	for _, state := range []readbackState{readbackCopied, readbackMapping, readbackMapped} {
		s.rbState = state
		assert.False(t, s.tryAcquireReadbackSlot(), "state %d must not be reacquired", state)
		assert.Equal(t, state, s.rbState)
		assert.True(t, s.ReadbackPending())
	}
}

func TestReadbackSlotReleaseAllowsRetry(t *testing.T) {
	s := &Simulator{}
	require.True(t, s.tryAcquireReadbackSlot())

	// A failed submission frees the slot for the next frame.
	s.releaseReadbackSlot()
	assert.False(t, s.ReadbackPending())
	assert.True(t, s.tryAcquireReadbackSlot())
}
