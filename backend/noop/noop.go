// Package noop provides an in-memory stand-in for a GPU backend.
//
// The no-op device satisfies the same size, alignment and capacity
// queries as a native backend so upper layers never special-case it.
// It exists for tests and for bringing up new backends: writes land in
// host memory, copies are memmoves, and fences signal immediately
// unless the test asks the device to hold them.
package noop

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/vram/backend"
)

func init() {
	backend.Register("noop", func() (backend.Device, error) {
		return NewDevice(), nil
	})
}

// copyAlignment matches the wgpu COPY_BUFFER_ALIGNMENT so code tuned
// against the no-op backend behaves identically on the native one.
const copyAlignment = 4

// fence is a one-shot completion signal.
type fence struct {
	ch chan struct{}
}

func newFence(signaled bool) *fence {
	f := &fence{ch: make(chan struct{})}
	if signaled {
		close(f.ch)
	}
	return f
}

func (f *fence) Signaled() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// allocation is one host-memory backing region.
type allocation struct {
	label    string
	data     []byte
	released bool
}

func (a *allocation) Size() uint64  { return uint64(len(a.data)) }
func (a *allocation) Label() string { return a.label }

// Device is the no-op backend device.
//
// Beyond the backend.Device contract it exposes two test hooks:
// HoldFences, which keeps copy fences pending until SignalFences, and
// Lose, which simulates an unrecoverable device failure.
type Device struct {
	mu      sync.Mutex
	held    []*fence
	holding bool
	lost    bool
	lostCh  chan struct{}
	allocs  map[*allocation]struct{}
}

// NewDevice creates a no-op device.
func NewDevice() *Device {
	return &Device{
		lostCh: make(chan struct{}),
		allocs: make(map[*allocation]struct{}),
	}
}

// Name implements backend.Device.
func (d *Device) Name() string { return "noop" }

// Caps implements backend.Device.
func (d *Device) Caps() backend.Caps {
	return backend.Caps{
		CopyAlignment: copyAlignment,
		MaxAllocation: 1 << 30,
		UnifiedMemory: true,
	}
}

// Allocate implements backend.Device.
func (d *Device) Allocate(desc backend.AllocationDescriptor) (backend.Allocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, backend.ErrDeviceLost
	}
	if desc.Size == 0 || desc.Size > d.Caps().MaxAllocation {
		return nil, fmt.Errorf("%w: size %d", backend.ErrAllocationFailed, desc.Size)
	}
	a := &allocation{
		label: desc.Label,
		data:  make([]byte, desc.Size),
	}
	d.allocs[a] = struct{}{}
	return a, nil
}

// Write implements backend.Device.
func (d *Device) Write(alloc backend.Allocation, offset uint64, data []byte) error {
	a, err := d.own(alloc)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return backend.ErrDeviceLost
	}
	if a.released {
		return backend.ErrReleased
	}
	// Two-step comparison so a near-max offset cannot wrap past the
	// capacity check.
	if capacity := uint64(len(a.data)); offset > capacity || uint64(len(data)) > capacity-offset {
		return fmt.Errorf("%w: offset %d + %d bytes exceeds capacity %d (%s)",
			backend.ErrOutOfBounds, offset, len(data), len(a.data), a.label)
	}
	copy(a.data[offset:], data)
	return nil
}

// SubmitCopy implements backend.Device. The copy happens inline; the
// returned fence signals immediately unless the device is holding
// fences for a test.
func (d *Device) SubmitCopy(src, dst backend.Allocation) (backend.Fence, error) {
	s, err := d.own(src)
	if err != nil {
		return nil, err
	}
	t, err := d.own(dst)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, backend.ErrDeviceLost
	}
	if s.released || t.released {
		return nil, backend.ErrReleased
	}
	copy(t.data, s.data)
	f := newFence(!d.holding)
	if d.holding {
		d.held = append(d.held, f)
	}
	return f, nil
}

// Read implements backend.Device. It returns a copy of the allocation
// contents after a (trivially signaled) completion fence.
func (d *Device) Read(ctx context.Context, alloc backend.Allocation) ([]byte, error) {
	a, err := d.own(alloc)
	if err != nil {
		return nil, err
	}
	f := newFence(true)
	if err := d.Wait(ctx, f); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, backend.ErrDeviceLost
	}
	if a.released {
		return nil, backend.ErrReleased
	}
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out, nil
}

// Wait implements backend.Device.
func (d *Device) Wait(ctx context.Context, bf backend.Fence) error {
	f, ok := bf.(*fence)
	if !ok {
		return fmt.Errorf("noop: foreign fence %T", bf)
	}
	select {
	case <-f.ch:
		// Loss sticks even for fences that signaled first: the device
		// is gone, so completion can no longer be trusted.
		d.mu.Lock()
		lost := d.lost
		d.mu.Unlock()
		if lost {
			return backend.ErrDeviceLost
		}
		return nil
	case <-d.lostCh:
		return backend.ErrDeviceLost
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release implements backend.Device.
func (d *Device) Release(alloc backend.Allocation) {
	a, err := d.own(alloc)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	a.released = true
	delete(d.allocs, a)
}

// Close implements backend.Device.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for a := range d.allocs {
		a.released = true
	}
	d.allocs = make(map[*allocation]struct{})
}

// HoldFences makes subsequent SubmitCopy fences stay pending until
// SignalFences is called. Test hook for exercising stall paths.
func (d *Device) HoldFences() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holding = true
}

// SignalFences signals every held fence and stops holding.
func (d *Device) SignalFences() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.held {
		close(f.ch)
	}
	d.held = nil
	d.holding = false
}

// Lose simulates an unrecoverable device failure. Every subsequent
// operation, and every wait in flight, fails with backend.ErrDeviceLost.
func (d *Device) Lose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return
	}
	d.lost = true
	close(d.lostCh)
}

// Contents returns the bytes currently backing the allocation.
// Test hook for inspecting committed data without a readback pass.
func (d *Device) Contents(alloc backend.Allocation) []byte {
	a, err := d.own(alloc)
	if err != nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out
}

func (d *Device) own(alloc backend.Allocation) (*allocation, error) {
	a, ok := alloc.(*allocation)
	if !ok {
		return nil, fmt.Errorf("noop: foreign allocation %T", alloc)
	}
	return a, nil
}
