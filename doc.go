// Package vram provides higher-order GPU resource types for the GoGPU
// ecosystem: buffers and textures that hide multibuffering and CPU/GPU
// synchronization behind a small closed set of resource variants.
//
// # Overview
//
// A dynamic resource keeps several backing allocations. The CPU writes
// the next version of the data into an idle allocation while the GPU
// still consumes the previous one, so an update never stalls behind an
// in-flight render pass. Static resources upload once and stay
// immutable.
//
// # Quick Start
//
//	import "github.com/gogpu/vram"
//
//	dev, err := vram.OpenDevice()
//	if err != nil { ... }
//	defer dev.Close()
//
//	buf, err := vram.NewDynamicBuffer(dev, vram.Descriptor{
//	    Type:         vram.TypeBuffer,
//	    Mutability:   vram.Dynamic,
//	    Direction:    vram.Forward,
//	    ElementSize:  64,
//	    ElementCount: 1024,
//	    DebugName:    "instances",
//	}, initInstances)
//	if err != nil { ... }
//	defer buf.Close()
//
//	// Per update cycle:
//	scope, _ := buf.AcquireWrite(ctx)
//	scope.Write(0, payload)
//	scope.Commit()
//
//	// Per render pass:
//	tok, _ := buf.RenderSide().Bind(ctx)
//	... encode pass reading tok.Allocation() ...
//	tok.Release(passFence)
//
// # Architecture
//
// The library is organized into:
//   - Public API: Descriptor, StaticBuffer, DynamicBuffer, StaticTexture,
//     DynamicTexture, RenderSide
//   - multibuffer: the allocation pool and write/read rotation engine
//   - backend: the device abstraction with noop and wgpu implementations
//   - threadbind: goroutine-affinity guard for backend handles
package vram
