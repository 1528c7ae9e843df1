// Package rlog is the process-global logging upcall layer (spec.md §4.D):
// a structured log sink shared by every loaded plugin in the process, with
// a dynamically reloadable level filter and an optional callback into the
// host. Deliberately process-global — multi-plugin isolated log sinks are
// a named non-goal.
package rlog

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Upcall is the host-provided logging callback: level, target (module
// path), and the already-formatted message. Package abi is the only
// caller that constructs one from an actual C function pointer.
type Upcall func(level Level, target string, msg string)

var (
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

	level atomic.Uint32 // holds a Level

	mu       sync.Mutex
	upcall   Upcall
	refcount int
)

func init() {
	level.Store(uint32(Info))
}

// SetLevel reloads the process-wide filter threshold. Because the
// subscriber is process-global, this affects every registered plugin.
func SetLevel(l Level) {
	level.Store(uint32(l))
}

// CurrentLevel returns the active filter threshold.
func CurrentLevel() Level {
	return Level(level.Load())
}

// Register installs (or shares) the host callback, incrementing the
// reference count so Release knows when it is safe to clear the slot.
// Registering a second callback while one is live replaces it — this
// process-global layer speaks for whichever plugin last reloaded it.
func Register(cb Upcall) {
	mu.Lock()
	upcall = cb
	refcount++
	mu.Unlock()
}

// Release decrements the reference count and, once it reaches zero,
// clears the callback slot so a stale host function pointer from an
// unloaded plugin can never be invoked on a later reload.
func Release() {
	mu.Lock()
	defer mu.Unlock()
	if refcount > 0 {
		refcount--
	}
	if refcount == 0 {
		upcall = nil
	}
}

// Emit records a structured event at level, tagged with target, after
// applying the current filter. The internal lock guarding the callback
// slot is always released before the callback runs: emitting a log
// record, or the callback itself re-entering this package, must never
// observe that lock held.
func Emit(lvl Level, target, format string, args ...interface{}) {
	if lvl == Off || lvl < CurrentLevel() {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	base.WithLevel(lvl.zerologLevel()).Str("target", target).Msg(msg)

	mu.Lock()
	cb := upcall
	mu.Unlock()

	if cb != nil {
		cb(lvl, target, msg)
	}
}

// WithFields records a structured event carrying arbitrary key/value
// context (such as the plugin_init handshake details) rather than a
// pre-formatted message, using zerolog's native field-logging rather
// than string interpolation. Framework-internal call sites prefer this
// over Emit when the data has natural structure; the host upcall still
// only ever sees a flattened message string, matching Upcall's shape.
func WithFields(lvl Level, target string, msg string, fields map[string]interface{}) {
	if lvl == Off || lvl < CurrentLevel() {
		return
	}
	ev := base.WithLevel(lvl.zerologLevel()).Str("target", target)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)

	mu.Lock()
	cb := upcall
	mu.Unlock()

	if cb != nil {
		cb(lvl, target, msg)
	}
}

// resetForTest clears all process-global state. Unexported: tests within
// this package only, never a production reset path.
func resetForTest() {
	mu.Lock()
	upcall = nil
	refcount = 0
	mu.Unlock()
	level.Store(uint32(Info))
}
