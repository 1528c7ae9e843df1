package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrobhoward/rustbridge"
	"github.com/jrobhoward/rustbridge/errcode"
)

func TestAllowedTransitionHappyPath(t *testing.T) {
	assert.True(t, AllowedTransition(rustbridge.StateInstalled, rustbridge.StateStarting))
	assert.True(t, AllowedTransition(rustbridge.StateStarting, rustbridge.StateActive))
	assert.True(t, AllowedTransition(rustbridge.StateActive, rustbridge.StateStopping))
	assert.True(t, AllowedTransition(rustbridge.StateStopping, rustbridge.StateStopped))
}

func TestAllowedTransitionFailurePaths(t *testing.T) {
	assert.True(t, AllowedTransition(rustbridge.StateStarting, rustbridge.StateFailed))
	assert.True(t, AllowedTransition(rustbridge.StateActive, rustbridge.StateFailed))
	assert.True(t, AllowedTransition(rustbridge.StateStopping, rustbridge.StateFailed))
}

func TestAllowedTransitionRejectsSkips(t *testing.T) {
	assert.False(t, AllowedTransition(rustbridge.StateInstalled, rustbridge.StateActive))
	assert.False(t, AllowedTransition(rustbridge.StateActive, rustbridge.StateInstalled))
	assert.False(t, AllowedTransition(rustbridge.StateStopped, rustbridge.StateActive))
	assert.False(t, AllowedTransition(rustbridge.StateFailed, rustbridge.StateActive))
}

func TestLifecycleCellTransition(t *testing.T) {
	c := NewLifecycleCell(rustbridge.StateInstalled)
	require.NoError(t, c.Transition(rustbridge.StateStarting))
	require.NoError(t, c.Transition(rustbridge.StateActive))
	assert.Equal(t, rustbridge.StateActive, c.Load())
}

func TestLifecycleCellRejectsInvalidTransition(t *testing.T) {
	c := NewLifecycleCell(rustbridge.StateInstalled)
	err := c.Transition(rustbridge.StateActive)
	require.Error(t, err)
	assert.Equal(t, uint32(errcode.InvalidState), errcode.CodeOf(err))
}

func TestRequireActive(t *testing.T) {
	c := NewLifecycleCell(rustbridge.StateInstalled)
	require.Error(t, c.requireActive())

	require.NoError(t, c.Transition(rustbridge.StateStarting))
	require.NoError(t, c.Transition(rustbridge.StateActive))
	assert.NoError(t, c.requireActive())
}
