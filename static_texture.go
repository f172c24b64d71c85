package vram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/vram/backend"
)

// StaticTexture is an immutable 2D texture: one backing allocation
// holding tightly packed texel rows, uploaded once at construction.
type StaticTexture struct {
	mu     sync.Mutex
	desc   Descriptor
	dev    backend.Device
	alloc  backend.Allocation
	closed bool
}

var _ Resource = (*StaticTexture)(nil)

// NewStaticTexture allocates and uploads a static texture. The
// initializer runs once per texel; nil leaves the contents zeroed.
func NewStaticTexture(dev backend.Device, desc Descriptor, init TexelInitializer, opts ...Option) (*StaticTexture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Type != TypeTexture || desc.Mutability != Static {
		return nil, fmt.Errorf("%w: %s %s is not a static texture",
			ErrInvalidDescriptor, desc.Mutability, desc.Type)
	}
	if desc.Direction != Forward {
		return nil, fmt.Errorf("%w: %s direction", ErrNotImplemented, desc.Direction)
	}

	alloc, err := dev.Allocate(desc.allocationDescriptor())
	if err != nil {
		return nil, fmt.Errorf("static texture %q: %w", desc.DebugName, err)
	}
	if err := dev.Write(alloc, 0, fillTexels(desc, init)); err != nil {
		dev.Release(alloc)
		return nil, fmt.Errorf("static texture %q upload: %w", desc.DebugName, err)
	}
	return &StaticTexture{desc: desc, dev: dev, alloc: alloc}, nil
}

// Descriptor implements Resource.
func (t *StaticTexture) Descriptor() Descriptor { return t.desc }

// Allocation returns the single backing allocation for pass binding.
func (t *StaticTexture) Allocation() backend.Allocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alloc
}

// Width returns the texel width.
func (t *StaticTexture) Width() int { return t.desc.Width }

// Height returns the texel height.
func (t *StaticTexture) Height() int { return t.desc.Height }

// ReadBack copies the texel contents to the CPU. It suspends on a
// backend fence; intended for verification, not hot paths.
func (t *StaticTexture) ReadBack(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	alloc := t.alloc
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return t.dev.Read(ctx, alloc)
}

// Close implements Resource.
func (t *StaticTexture) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.dev.Release(t.alloc)
}
