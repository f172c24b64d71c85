package vram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/vram/backend"
)

// StaticBuffer is an immutable buffer: one backing allocation,
// uploaded once at construction, no write access afterwards.
type StaticBuffer struct {
	mu     sync.Mutex
	desc   Descriptor
	dev    backend.Device
	alloc  backend.Allocation
	closed bool
}

var _ Resource = (*StaticBuffer)(nil)

// NewStaticBuffer allocates and uploads a static buffer. The
// initializer runs once per element; nil leaves the contents zeroed.
func NewStaticBuffer(dev backend.Device, desc Descriptor, init Initializer, opts ...Option) (*StaticBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Type != TypeBuffer || desc.Mutability != Static {
		return nil, fmt.Errorf("%w: %s %s is not a static buffer",
			ErrInvalidDescriptor, desc.Mutability, desc.Type)
	}
	if desc.Direction != Forward {
		return nil, fmt.Errorf("%w: %s direction", ErrNotImplemented, desc.Direction)
	}

	alloc, err := dev.Allocate(desc.allocationDescriptor())
	if err != nil {
		return nil, fmt.Errorf("static buffer %q: %w", desc.DebugName, err)
	}
	if err := dev.Write(alloc, 0, fillElements(desc, init)); err != nil {
		dev.Release(alloc)
		return nil, fmt.Errorf("static buffer %q upload: %w", desc.DebugName, err)
	}
	return &StaticBuffer{desc: desc, dev: dev, alloc: alloc}, nil
}

// Descriptor implements Resource.
func (b *StaticBuffer) Descriptor() Descriptor { return b.desc }

// Allocation returns the single backing allocation for pass binding.
func (b *StaticBuffer) Allocation() backend.Allocation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc
}

// Size returns the backing size in bytes.
func (b *StaticBuffer) Size() uint64 { return b.desc.ByteSize() }

// ReadBack copies the buffer contents to the CPU. It suspends on a
// backend fence; intended for verification, not hot paths.
func (b *StaticBuffer) ReadBack(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	alloc := b.alloc
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return b.dev.Read(ctx, alloc)
}

// Close implements Resource.
func (b *StaticBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.dev.Release(b.alloc)
}
