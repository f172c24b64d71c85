// Package backend defines the device abstraction vram resources are
// built on, and a registry for selecting among interchangeable backend
// implementations (no-op, wgpu).
package backend

import (
	"context"
	"errors"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrOutOfBounds is returned when a write or copy exceeds an
	// allocation's capacity.
	ErrOutOfBounds = errors.New("backend: access out of bounds")

	// ErrDeviceLost is returned when the device has failed
	// unrecoverably. Every subsequent operation on the device and on
	// resources built over it fails with this error.
	ErrDeviceLost = errors.New("backend: device lost")

	// ErrAllocationFailed is returned when the backend cannot create an
	// allocation (for example, out of device memory). It is reported
	// once and never retried internally.
	ErrAllocationFailed = errors.New("backend: allocation failed")

	// ErrReleased is returned when operating on a released allocation.
	ErrReleased = errors.New("backend: allocation released")
)

// Usage declares how an allocation will be consumed by the GPU.
// Flags combine with bitwise OR.
type Usage uint32

const (
	// UsageCopySrc allows the allocation as a copy source.
	UsageCopySrc Usage = 1 << iota

	// UsageCopyDst allows the allocation as a copy destination.
	UsageCopyDst

	// UsageVertex marks a vertex buffer.
	UsageVertex

	// UsageIndex marks an index buffer.
	UsageIndex

	// UsageUniform marks a uniform buffer.
	UsageUniform

	// UsageStorage marks a storage buffer readable from shaders.
	UsageStorage

	// UsageTextureBinding marks a texture sampled or read by shaders.
	UsageTextureBinding
)

// WriteHint advises how often the host rewrites an allocation.
// Advisory only: it steers memory placement, never correctness.
type WriteHint uint8

const (
	// WriteHintUnknown lets the backend choose.
	WriteHintUnknown WriteHint = iota

	// WriteHintEveryCycle marks data rewritten every update cycle;
	// backends keep such allocations cheap to write from the host.
	WriteHintEveryCycle

	// WriteHintOccasional marks data rewritten rarely; backends may
	// prefer device-local placement.
	WriteHintOccasional
)

// AllocationDescriptor describes one backing allocation to create.
type AllocationDescriptor struct {
	// Label is a debug name carried through to the backend.
	Label string

	// Size is the capacity in bytes.
	Size uint64

	// Usage declares GPU consumption of the allocation.
	Usage Usage

	// Mappable requests host-visible memory for direct CPU writes.
	// Backends without unified memory route writes through a staging
	// path instead; callers never see the difference.
	Mappable bool

	// WriteHint advises how often the host rewrites the allocation.
	WriteHint WriteHint
}

// Allocation is a handle to one GPU-visible memory region.
//
// Allocations carry no synchronization of their own: coordinating CPU
// writes against GPU reads is the multibuffer engine's job.
type Allocation interface {
	// Size returns the allocation capacity in bytes.
	Size() uint64

	// Label returns the debug name given at creation.
	Label() string
}

// Fence is a completion signal for submitted device work.
// A fence starts unsignaled and signals exactly once.
type Fence interface {
	// Signaled reports whether the fence has signaled, without blocking.
	Signaled() bool
}

// Caps describes backend capabilities and limits. The no-op backend
// answers these identically to a native backend so upper layers never
// special-case it.
type Caps struct {
	// CopyAlignment is the required alignment for copy offsets and
	// sizes, in bytes.
	CopyAlignment uint64

	// MaxAllocation is the largest single allocation, in bytes.
	MaxAllocation uint64

	// UnifiedMemory reports whether allocations can be host-visible and
	// device-local at once, making direct mapped writes cheap.
	UnifiedMemory bool
}

// Device is the backend device abstraction.
//
// All mutating operations besides the no-op backend's enqueue command
// buffer work; completion is observed through fences, never through
// synchronous confirmation. Implementations must be safe for concurrent
// use unless wrapped by a Tracked thread-binding guard.
type Device interface {
	// Name returns the backend identifier (e.g. "noop", "wgpu").
	Name() string

	// Caps returns capability and limit queries.
	Caps() Caps

	// Allocate creates one backing allocation.
	// Fails with ErrAllocationFailed or ErrDeviceLost.
	Allocate(desc AllocationDescriptor) (Allocation, error)

	// Write stores data into the allocation at offset. Fails with
	// ErrOutOfBounds if offset+len(data) exceeds the capacity.
	Write(a Allocation, offset uint64, data []byte) error

	// SubmitCopy enqueues a device-to-device copy of min(src, dst)
	// bytes and returns the fence observing its completion.
	SubmitCopy(src, dst Allocation) (Fence, error)

	// Read returns the allocation contents. The read is asynchronous on
	// the device; Read suspends the calling goroutine until the
	// completion fence signals or ctx is done.
	Read(ctx context.Context, a Allocation) ([]byte, error)

	// Wait blocks until the fence signals or ctx is done. A device
	// failure surfaces here as ErrDeviceLost.
	Wait(ctx context.Context, f Fence) error

	// Release returns the allocation to the backend. Releasing an
	// already-released allocation is a no-op.
	Release(a Allocation)

	// Close releases the device and everything it owns.
	Close()
}
