package multibuffer

import (
	"context"
	"sync/atomic"

	"github.com/gogpu/vram/backend"
)

// ReadToken binds one consuming pass to one committed allocation.
//
// The token stays bound to its allocation for the pass's whole
// duration, even if newer generations are committed meanwhile. It is
// released exactly once; later releases are no-ops.
type ReadToken struct {
	p        *Pool
	s        *slot
	gen      uint64
	released atomic.Bool
}

// Allocation returns the backing allocation the pass reads from.
func (t *ReadToken) Allocation() backend.Allocation { return t.s.alloc }

// Generation returns the committed generation this token observes.
func (t *ReadToken) Generation() uint64 { return t.gen }

// Release ends the pass's claim on the allocation. fence is the
// completion fence of the GPU work that consumed it; the pool waits for
// it in the background and only then treats the allocation as retired.
// A nil fence means the consumer already synchronized (or none was
// needed, as with the no-op backend) and retirement is immediate.
//
// If the fence wait reports a device failure the pool is poisoned and
// every later acquisition fails with backend.ErrDeviceLost.
func (t *ReadToken) Release(fence backend.Fence) {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	if fence == nil {
		t.p.retire(t.s, t.gen)
		return
	}
	go func() {
		if err := t.p.dev.Wait(context.Background(), fence); err != nil {
			t.p.poison(err)
		}
		// Reader bookkeeping stays truthful even on a poisoned pool.
		t.p.retire(t.s, t.gen)
	}()
}
