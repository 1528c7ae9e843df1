// Package runtime implements the plugin lifecycle state machine, the
// per-Handle admission control, and the JSON/binary dispatch paths
// (spec.md §4.F) that sit between the C-ABI surface and a Plugin
// implementation.
package runtime

import (
	"sync/atomic"

	"github.com/jrobhoward/rustbridge"
	"github.com/jrobhoward/rustbridge/errcode"
)

// transitions enumerates every valid LifecycleState move. Installed ->
// Starting happens instantaneously inside init and is included for
// completeness even though no ABI entry point drives it directly.
var transitions = map[rustbridge.LifecycleState]map[rustbridge.LifecycleState]bool{
	rustbridge.StateInstalled: {rustbridge.StateStarting: true},
	rustbridge.StateStarting: {
		rustbridge.StateActive: true,
		rustbridge.StateFailed: true,
	},
	rustbridge.StateActive: {
		rustbridge.StateStopping: true,
		rustbridge.StateFailed:   true,
	},
	rustbridge.StateStopping: {
		rustbridge.StateStopped: true,
		rustbridge.StateFailed:  true,
	},
	rustbridge.StateStopped: {},
	rustbridge.StateFailed:  {},
}

// AllowedTransition reports whether moving from -> to is a valid edge in
// the lifecycle state machine.
func AllowedTransition(from, to rustbridge.LifecycleState) bool {
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// LifecycleCell holds a LifecycleState atomically and enforces the state
// machine on every transition, generalizing the teacher's implicit
// running/helloFailed boolean tracking into an explicit CAS loop.
type LifecycleCell struct {
	v atomic.Uint32
}

// NewLifecycleCell creates a cell in the given initial state.
func NewLifecycleCell(initial rustbridge.LifecycleState) *LifecycleCell {
	c := &LifecycleCell{}
	c.v.Store(uint32(initial))
	return c
}

// Load reads the current state.
func (c *LifecycleCell) Load() rustbridge.LifecycleState {
	return rustbridge.LifecycleState(c.v.Load())
}

// Transition attempts to move the cell from its current state to to,
// failing with InvalidState (code 1) if that edge is not in the table —
// including the case where a concurrent transition already moved the
// cell away from the caller's expected current state.
func (c *LifecycleCell) Transition(to rustbridge.LifecycleState) error {
	for {
		from := c.Load()
		if !AllowedTransition(from, to) {
			return errcode.New(errcode.InvalidState, "cannot move from %s to %s", from, to)
		}
		if c.v.CompareAndSwap(uint32(from), uint32(to)) {
			return nil
		}
		// Lost the race to a concurrent transition; retry against the
		// now-current state.
	}
}

// requireActive returns an InvalidState error unless the cell is
// currently Active, the only state plugin_call is valid in.
func (c *LifecycleCell) requireActive() error {
	if c.Load() != rustbridge.StateActive {
		return errcode.New(errcode.InvalidState, "plugin_call requires Active, have %s", c.Load())
	}
	return nil
}
