// Package clockstate implements the Program Clock: Khronos's own
// disciplined notion of wall-clock time, published as an immutable
// snapshot so that any number of readers can call Now concurrently with
// the single Discipline Loop writer applying corrections.
package clockstate

import (
	"sync/atomic"
	"time"

	"github.com/khronos/khronos/internal/monoclock"
)

// snapshot is the immutable state published by the writer. A reader loads
// the pointer once and derives Now from it without ever observing a
// partially-updated anchor pair.
type snapshot struct {
	anchorUTC  time.Time // wall-clock value at the anchor instant
	anchorMono time.Time // monotonic reading taken at the same instant
	epoch      uint64    // bumped only on a hard re-sync, never on a slew
}

// Clock is Khronos's disciplined virtual clock. The zero value is not
// usable; construct with New.
type Clock struct {
	state atomic.Pointer[snapshot]
	mono  monoclock.Source
}

// New creates a Clock anchored at initialUTC, read through mono for
// elapsed-time measurement between corrections.
func New(initialUTC time.Time, mono monoclock.Source) *Clock {
	c := &Clock{mono: mono}
	c.state.Store(&snapshot{
		anchorUTC:  initialUTC,
		anchorMono: mono.Now(),
		epoch:      0,
	})
	return c
}

// Now returns the current disciplined time: the anchor plus elapsed
// monotonic time since the anchor was taken. This ordering (read the
// anchor once, then add elapsed) is what makes Now safe to call
// concurrently with ApplyOffset.
func (c *Clock) Now() time.Time {
	s := c.state.Load()
	elapsed := c.mono.Now().Sub(s.anchorMono)
	return s.anchorUTC.Add(elapsed)
}

// Epoch returns the current re-sync epoch counter. Readers can compare
// successive Epoch values to detect that a hard re-sync occurred between
// two Now() calls.
func (c *Clock) Epoch() uint64 {
	return c.state.Load().epoch
}

// ApplyOffset applies a correction to the clock. The current time is
// recomputed from the existing anchor first, then the offset is added and
// the anchor is re-taken, never the reverse, or the elapsed time baked
// into the old anchor would be double-counted. hardResync distinguishes a
// full re-synchronization (bumps the epoch counter, for slew-limited
// callers to detect a discontinuity) from an ordinary slew correction
// (epoch unchanged).
func (c *Clock) ApplyOffset(offset time.Duration, hardResync bool) {
	old := c.state.Load()
	current := c.Now()

	epoch := old.epoch
	if hardResync {
		epoch++
	}

	c.state.Store(&snapshot{
		anchorUTC:  current.Add(offset),
		anchorMono: c.mono.Now(),
		epoch:      epoch,
	})
}

// Reset re-anchors the clock directly at baseUTC, unconditionally bumping
// the epoch counter. Used by the Discipline Loop for a hard re-sync and for
// corrections at or above its slew threshold, where the new base is already
// known rather than derived from an offset to the current estimate.
func (c *Clock) Reset(baseUTC time.Time) {
	old := c.state.Load()
	c.state.Store(&snapshot{
		anchorUTC:  baseUTC,
		anchorMono: c.mono.Now(),
		epoch:      old.epoch + 1,
	})
}
