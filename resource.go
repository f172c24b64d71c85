package vram

import (
	"fmt"

	"github.com/gogpu/vram/backend"
)

// Initializer fills one element of a buffer resource. dst is exactly
// ElementSize bytes and starts zeroed.
type Initializer func(index int, dst []byte)

// TexelInitializer fills one texel of a texture resource. texel is
// exactly FormatSize(Format) bytes and starts zeroed.
type TexelInitializer func(x, y int, texel []byte)

// Resource is the common surface of every axis combination.
type Resource interface {
	// Descriptor returns the immutable construction descriptor.
	Descriptor() Descriptor

	// Close releases all backing allocations.
	Close()
}

// New constructs the resource variant matching the descriptor's axis
// combination. Buffer initializers are index-based; texture variants
// adapt index i to texel (i mod Width, i div Width). A nil initializer
// leaves contents zeroed.
//
// Only the Forward direction is built. Reverse and Sideways are part
// of the declared surface and return ErrNotImplemented, keeping one
// uniform construction path across targets.
func New(dev backend.Device, desc Descriptor, init Initializer, opts ...Option) (Resource, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Direction != Forward {
		return nil, fmt.Errorf("%w: %s %s %s", ErrNotImplemented,
			desc.Mutability, desc.Type, desc.Direction)
	}

	switch desc.Type {
	case TypeBuffer:
		if desc.Mutability == Static {
			return NewStaticBuffer(dev, desc, init, opts...)
		}
		return NewDynamicBuffer(dev, desc, init, opts...)
	case TypeTexture:
		texInit := adaptTexelInit(desc, init)
		if desc.Mutability == Static {
			return NewStaticTexture(dev, desc, texInit, opts...)
		}
		return NewDynamicTexture(dev, desc, texInit, opts...)
	default:
		return nil, fmt.Errorf("%w: type %d", ErrInvalidDescriptor, desc.Type)
	}
}

func adaptTexelInit(desc Descriptor, init Initializer) TexelInitializer {
	if init == nil {
		return nil
	}
	return func(x, y int, texel []byte) {
		init(y*desc.Width+x, texel)
	}
}

// fillElements builds the full initial contents of one allocation.
func fillElements(desc Descriptor, init Initializer) []byte {
	data := make([]byte, desc.ByteSize())
	if init == nil {
		return data
	}
	es := int(desc.ElementSize)
	for i := 0; i < desc.ElementCount; i++ {
		init(i, data[i*es:(i+1)*es])
	}
	return data
}

// fillTexels builds the full initial contents of one texture allocation.
func fillTexels(desc Descriptor, init TexelInitializer) []byte {
	data := make([]byte, desc.ByteSize())
	if init == nil {
		return data
	}
	ts := FormatSize(desc.Format)
	for y := 0; y < desc.Height; y++ {
		row := y * desc.Width * ts
		for x := 0; x < desc.Width; x++ {
			off := row + x*ts
			init(x, y, data[off:off+ts])
		}
	}
	return data
}
