// Package wgpu backs allocations with real GPU buffers through the
// wgpu HAL. The device is either standalone (its own Vulkan instance)
// or shared with a host application via OpenWith.
package wgpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/vram/backend"
)

func init() {
	backend.Register("wgpu", func() (backend.Device, error) {
		return Open()
	})
}

const (
	// copyAlignment matches wgpu COPY_BUFFER_ALIGNMENT.
	copyAlignment = 4

	// maxAllocation matches the wgpu default max_buffer_size limit.
	maxAllocation = 1 << 28

	// waitSlice bounds each blocking HAL wait so a context cancel is
	// observed promptly.
	waitSlice = 10 * time.Millisecond
)

// allocation wraps one HAL buffer.
type allocation struct {
	label string
	size  uint64
	buf   hal.Buffer
}

func (a *allocation) Size() uint64  { return a.size }
func (a *allocation) Label() string { return a.label }

// fence wraps one HAL fence plus the command buffer whose completion
// it tracks. finish releases both exactly once.
type fence struct {
	d    *Device
	f    hal.Fence
	cmd  hal.CommandBuffer
	once sync.Once
	done bool
	mu   sync.Mutex
}

// Signaled implements backend.Fence with a zero-timeout poll.
func (f *fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return true
	}
	ok, err := f.d.device.Wait(f.f, 1, 0)
	if err != nil || !ok {
		return false
	}
	f.done = true
	f.finishLocked()
	return true
}

func (f *fence) finishLocked() {
	f.once.Do(func() {
		if f.cmd != nil {
			f.cmd.Destroy()
		}
		f.d.device.DestroyFence(f.f)
	})
}

// Device is the wgpu backend device.
type Device struct {
	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	name     string
	external bool
	lost     bool
}

var _ backend.Device = (*Device)(nil)

// Open creates a standalone device on the first usable adapter.
func Open() (*Device, error) {
	hb, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := hb.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	slogger().Info("wgpu: device opened (standalone)", "adapter", selected.Info.Name)
	return &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
	}, nil
}

// OpenWith shares the HAL device of a host application. The provider
// must also expose HalDevice() any and HalQueue() any, the way gogpu's
// context provider does. The shared device is not destroyed on Close.
func OpenWith(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrForeignHandle)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrForeignHandle)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrForeignHandle)
	}

	slogger().Debug("wgpu: device opened (shared)")
	return &Device{
		device:   device,
		queue:    queue,
		name:     "shared",
		external: true,
	}, nil
}

// Name implements backend.Device.
func (d *Device) Name() string { return d.name }

// Caps implements backend.Device.
func (d *Device) Caps() backend.Caps {
	return backend.Caps{
		CopyAlignment: copyAlignment,
		MaxAllocation: maxAllocation,
		UnifiedMemory: false,
	}
}

// Allocate implements backend.Device.
func (d *Device) Allocate(desc backend.AllocationDescriptor) (backend.Allocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, backend.ErrDeviceLost
	}
	if desc.Size == 0 || desc.Size > maxAllocation {
		return nil, fmt.Errorf("%w: size %d", backend.ErrAllocationFailed, desc.Size)
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrAllocationFailed, err)
	}
	return &allocation{label: desc.Label, size: desc.Size, buf: buf}, nil
}

// bufferUsage translates descriptor usage into HAL buffer usage.
// Copy in both directions is always allowed: every allocation must be
// writable by the host path and copyable for readback.
func bufferUsage(desc backend.AllocationDescriptor) gputypes.BufferUsage {
	usage := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if desc.Usage&backend.UsageVertex != 0 {
		usage |= gputypes.BufferUsageVertex
	}
	if desc.Usage&backend.UsageIndex != 0 {
		usage |= gputypes.BufferUsageIndex
	}
	if desc.Usage&backend.UsageUniform != 0 {
		usage |= gputypes.BufferUsageUniform
	}
	if desc.Usage&backend.UsageStorage != 0 || desc.Usage&backend.UsageTextureBinding != 0 {
		usage |= gputypes.BufferUsageStorage
	}
	// Data rewritten every cycle stays host-writable like an
	// explicitly mappable allocation, sparing a staging round trip per
	// update.
	if desc.Mappable || desc.WriteHint == backend.WriteHintEveryCycle {
		usage |= gputypes.BufferUsageMapWrite
	}
	return usage
}

// Write implements backend.Device via the queue's staging-ring upload.
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
	// Two-step comparison so a near-max offset cannot wrap past the
	// capacity check.
	if offset > a.size || uint64(len(data)) > a.size-offset {
		return fmt.Errorf("%w: offset %d + %d bytes exceeds capacity %d (%s)",
			backend.ErrOutOfBounds, offset, len(data), a.size, a.label)
	}
	if len(data) == 0 {
		return nil
	}
	d.queue.WriteBuffer(a.buf, offset, data)
	return nil
}

// SubmitCopy implements backend.Device. It encodes a full-buffer copy
// and submits it with a fresh fence.
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

	size := s.size
	if t.size < size {
		size = t.size
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "vram-copy",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vram-copy"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(s.buf, t.buf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}

	halFence, err := d.device.CreateFence()
	if err != nil {
		cmd.Destroy()
		return nil, fmt.Errorf("create fence: %w", err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, halFence, 1); err != nil {
		cmd.Destroy()
		d.device.DestroyFence(halFence)
		d.lost = true
		return nil, fmt.Errorf("%w: submit: %v", backend.ErrDeviceLost, err)
	}
	return &fence{d: d, f: halFence, cmd: cmd}, nil
}

// Wait implements backend.Device. The HAL wait is sliced so the
// context deadline is honored.
func (d *Device) Wait(ctx context.Context, bf backend.Fence) error {
	f, ok := bf.(*fence)
	if !ok {
		return fmt.Errorf("%w: fence %T", ErrForeignHandle, bf)
	}
	for {
		f.mu.Lock()
		if f.done {
			f.mu.Unlock()
			return nil
		}
		signaled, err := f.d.device.Wait(f.f, 1, waitSlice)
		if err != nil {
			f.mu.Unlock()
			d.mu.Lock()
			d.lost = true
			d.mu.Unlock()
			return fmt.Errorf("%w: fence wait: %v", backend.ErrDeviceLost, err)
		}
		if signaled {
			f.done = true
			f.finishLocked()
			f.mu.Unlock()
			return nil
		}
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Read implements backend.Device: copy into a MapRead staging buffer,
// fence the copy, then read the staging contents back.
func (d *Device) Read(ctx context.Context, alloc backend.Allocation) ([]byte, error) {
	a, err := d.own(alloc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return nil, backend.ErrDeviceLost
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vram-staging",
		Size:  a.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: staging: %v", backend.ErrAllocationFailed, err)
	}
	d.mu.Unlock()
	defer d.device.DestroyBuffer(staging)

	stagingAlloc := &allocation{label: "vram-staging", size: a.size, buf: staging}
	f, err := d.SubmitCopy(a, stagingAlloc)
	if err != nil {
		return nil, err
	}
	if err := d.Wait(ctx, f); err != nil {
		return nil, err
	}

	out := make([]byte, a.size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return out, nil
}

// Release implements backend.Device.
func (d *Device) Release(alloc backend.Allocation) {
	a, err := d.own(alloc)
	if err != nil {
		return
	}
	if a.buf != nil {
		d.device.DestroyBuffer(a.buf)
		a.buf = nil
	}
}

// Close implements backend.Device. A shared device is not destroyed;
// the host application owns it.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.external {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

func (d *Device) own(alloc backend.Allocation) (*allocation, error) {
	a, ok := alloc.(*allocation)
	if !ok {
		return nil, fmt.Errorf("%w: allocation %T", ErrForeignHandle, alloc)
	}
	if a.buf == nil {
		return nil, backend.ErrReleased
	}
	return a, nil
}
