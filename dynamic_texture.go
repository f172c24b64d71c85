package vram

import (
	"context"
	"fmt"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/multibuffer"
)

// DynamicTexture is a 2D texture rewritten across update cycles, for
// example a CPU-composited frame uploaded every cycle. Texel rows are
// tightly packed in each backing allocation.
type DynamicTexture struct {
	desc Descriptor
	pool *multibuffer.Pool
}

var _ Resource = (*DynamicTexture)(nil)

// NewDynamicTexture creates the pool and publishes the initial texels
// as generation 1. A nil initializer publishes zeroed contents.
func NewDynamicTexture(dev backend.Device, desc Descriptor, init TexelInitializer, opts ...Option) (*DynamicTexture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Type != TypeTexture || desc.Mutability != Dynamic {
		return nil, fmt.Errorf("%w: %s %s is not a dynamic texture",
			ErrInvalidDescriptor, desc.Mutability, desc.Type)
	}
	if desc.Direction != Forward {
		return nil, fmt.Errorf("%w: %s direction", ErrNotImplemented, desc.Direction)
	}

	pool, err := newPool(dev, desc, opts)
	if err != nil {
		return nil, fmt.Errorf("dynamic texture %q: %w", desc.DebugName, err)
	}
	if err := publishInitial(pool, fillTexels(desc, init)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dynamic texture %q: %w", desc.DebugName, err)
	}
	return &DynamicTexture{desc: desc, pool: pool}, nil
}

// Descriptor implements Resource.
func (t *DynamicTexture) Descriptor() Descriptor { return t.desc }

// Width returns the texel width.
func (t *DynamicTexture) Width() int { return t.desc.Width }

// Height returns the texel height.
func (t *DynamicTexture) Height() int { return t.desc.Height }

// AcquireWrite opens the exclusive write scope for the next texel
// upload. Offsets are byte offsets into the tightly packed texel rows.
func (t *DynamicTexture) AcquireWrite(ctx context.Context) (*multibuffer.WriteScope, error) {
	return t.pool.AcquireWrite(ctx)
}

// WriteImage writes full-texture contents from a texel initializer
// inside one scope and commits. Convenience for whole-frame updates.
func (t *DynamicTexture) WriteImage(ctx context.Context, init TexelInitializer) error {
	w, err := t.pool.AcquireWrite(ctx)
	if err != nil {
		return err
	}
	if err := w.Write(0, fillTexels(t.desc, init)); err != nil {
		w.Discard()
		return err
	}
	return w.Commit()
}

// RenderSide returns the pass-facing consumer contract.
func (t *DynamicTexture) RenderSide() *RenderSide {
	return &RenderSide{pool: t.pool}
}

// Generation returns the newest committed generation.
func (t *DynamicTexture) Generation() uint64 { return t.pool.Generation() }

// Dirty signals after each commit; signals coalesce.
func (t *DynamicTexture) Dirty() <-chan struct{} { return t.pool.Dirty() }

// Close implements Resource.
func (t *DynamicTexture) Close() { t.pool.Close() }
