package vram

import (
	"context"
	"fmt"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/multibuffer"
)

// DynamicBuffer is a buffer rewritten across update cycles. Writes and
// reads rotate over a pool of backing allocations so an update never
// stalls behind an in-flight render pass.
type DynamicBuffer struct {
	desc Descriptor
	pool *multibuffer.Pool
}

var _ Resource = (*DynamicBuffer)(nil)

// NewDynamicBuffer creates the pool and publishes the initial contents
// as generation 1. A nil initializer publishes zeroed contents.
func NewDynamicBuffer(dev backend.Device, desc Descriptor, init Initializer, opts ...Option) (*DynamicBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Type != TypeBuffer || desc.Mutability != Dynamic {
		return nil, fmt.Errorf("%w: %s %s is not a dynamic buffer",
			ErrInvalidDescriptor, desc.Mutability, desc.Type)
	}
	if desc.Direction != Forward {
		return nil, fmt.Errorf("%w: %s direction", ErrNotImplemented, desc.Direction)
	}

	pool, err := newPool(dev, desc, opts)
	if err != nil {
		return nil, fmt.Errorf("dynamic buffer %q: %w", desc.DebugName, err)
	}
	if err := publishInitial(pool, fillElements(desc, init)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dynamic buffer %q: %w", desc.DebugName, err)
	}
	return &DynamicBuffer{desc: desc, pool: pool}, nil
}

func newPool(dev backend.Device, desc Descriptor, opts []Option) (*multibuffer.Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return multibuffer.New(dev, desc.allocationDescriptor(), multibuffer.Config{
		InitialCopies: o.initialCopies,
		MaxCopies:     o.maxCopies,
		Label:         desc.DebugName,
		Sink:          o.sink,
	})
}

// publishInitial commits the construction-time contents so readers
// have a valid generation before the first update cycle.
func publishInitial(pool *multibuffer.Pool, data []byte) error {
	w, err := pool.AcquireWrite(context.Background())
	if err != nil {
		return err
	}
	if err := w.Write(0, data); err != nil {
		w.Discard()
		return err
	}
	return w.Commit()
}

// Descriptor implements Resource.
func (b *DynamicBuffer) Descriptor() Descriptor { return b.desc }

// AcquireWrite opens the exclusive write scope for the next update
// cycle. It blocks while another scope is open, or while every
// allocation is still consumed by the GPU and the pool is at its
// growth bound.
func (b *DynamicBuffer) AcquireWrite(ctx context.Context) (*multibuffer.WriteScope, error) {
	return b.pool.AcquireWrite(ctx)
}

// RenderSide returns the pass-facing consumer contract.
func (b *DynamicBuffer) RenderSide() *RenderSide {
	return &RenderSide{pool: b.pool}
}

// Generation returns the newest committed generation.
func (b *DynamicBuffer) Generation() uint64 { return b.pool.Generation() }

// Dirty signals after each commit. A render loop selects on it to
// know when re-encoding is needed; signals coalesce.
func (b *DynamicBuffer) Dirty() <-chan struct{} { return b.pool.Dirty() }

// Close implements Resource. All backing allocations return to the
// backend.
func (b *DynamicBuffer) Close() { b.pool.Close() }
