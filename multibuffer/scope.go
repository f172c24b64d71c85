package multibuffer

import (
	"errors"
	"sync/atomic"

	"github.com/gogpu/vram/backend"
)

// WriteScope grants exclusive CPU write access to one backing
// allocation. It finishes exactly once, through Commit or Discard;
// either is safe to defer, and whichever runs second is a no-op.
//
// Writes land directly in the allocation's GPU-visible (or staging)
// memory via the backend; no intermediate CPU-side copy is made here.
type WriteScope struct {
	p        *Pool
	s        *slot
	finished atomic.Bool
}

// Size returns the allocation capacity in bytes.
func (w *WriteScope) Size() uint64 { return w.s.alloc.Size() }

// Write stores data at offset in the held allocation. Fails with
// backend.ErrOutOfBounds if offset+len(data) exceeds the capacity, and
// with backend.ErrDeviceLost if the device failed; a device failure
// mid-write poisons the whole pool.
func (w *WriteScope) Write(offset uint64, data []byte) error {
	if w.finished.Load() {
		return ErrScopeFinished
	}
	// Bulk transfer runs without the pool lock: the slot is exclusively
	// ours while the scope is open.
	if err := w.p.dev.Write(w.s.alloc, offset, data); err != nil {
		if errors.Is(err, backend.ErrDeviceLost) {
			w.p.poison(err)
		}
		return err
	}
	return nil
}

// Commit publishes the held allocation as the resource's current
// version under the next generation and closes the scope. In-flight
// reads of previous generations are unaffected. Returns
// backend.ErrDeviceLost if the pool was poisoned while the scope was
// open; the scope still closes.
func (w *WriteScope) Commit() error {
	if !w.finished.CompareAndSwap(false, true) {
		return ErrScopeFinished
	}
	p := w.p

	p.mu.Lock()
	if p.poisoned || p.closed {
		w.s.state = stateIdle
		p.writer = false
		p.wakeAllLocked()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return ErrPoolClosed
		}
		return backend.ErrDeviceLost
	}
	p.gen++
	gen := p.gen
	w.s.gen = gen
	w.s.state = stateSubmitted
	p.current = w.s
	p.writer = false
	// The previous current stays Submitted until a fence-confirmed
	// release of a newer generation retires it; see Pool.retire.
	p.wakeAllLocked()
	p.mu.Unlock()

	select {
	case p.dirty <- struct{}{}:
	default:
	}
	slogger().Debug("commit", "pool", p.label, "generation", gen)
	return nil
}

// Discard closes the scope without publishing: the allocation returns
// to Idle, the generation is unchanged, and pending writes in it are
// abandoned. Discard after Commit is a no-op, so it can be deferred
// unconditionally.
func (w *WriteScope) Discard() {
	if !w.finished.CompareAndSwap(false, true) {
		return
	}
	p := w.p
	p.mu.Lock()
	w.s.state = stateIdle
	p.writer = false
	p.wakeAllLocked()
	p.mu.Unlock()
	slogger().Debug("discard", "pool", p.label)
}
