package runtime

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Admission is the non-blocking concurrency permit source sized by
// max_concurrent_ops (spec.md §4.F). Acquisition never queues: a call
// that finds no free permit is rejected immediately rather than parked,
// generalizing the teacher's channel-based "select default: drop"
// backpressure into a proper weighted semaphore.
type Admission struct {
	sem      *semaphore.Weighted
	rejected atomic.Uint64
}

// NewAdmission creates an Admission bounded to max concurrent in-flight
// calls. max must already have PluginConfig's "0 means 1000" default
// resolved by the caller.
func NewAdmission(max uint32) *Admission {
	return &Admission{sem: semaphore.NewWeighted(int64(max))}
}

// TryAcquire attempts to reserve one permit without blocking. On failure
// it increments the rejection counter and returns false; the caller
// should fail the request with code 13 (TooManyRequests).
func (a *Admission) TryAcquire() bool {
	if a.sem.TryAcquire(1) {
		return true
	}
	a.rejected.Add(1)
	return false
}

// Release returns a permit acquired by TryAcquire. Callers must call this
// exactly once per successful TryAcquire, on every exit path.
func (a *Admission) Release() {
	a.sem.Release(1)
}

// Rejected returns the cumulative count of calls turned away by
// admission control, the monitoring accessor spec.md §4.F calls for.
func (a *Admission) Rejected() uint64 {
	return a.rejected.Load()
}
