package vram

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vram/backend"
)

// ResourceType selects buffer or texture backing.
type ResourceType uint8

const (
	// TypeBuffer is a linear byte buffer.
	TypeBuffer ResourceType = iota

	// TypeTexture is a 2D texture.
	TypeTexture
)

// String returns the type name.
func (t ResourceType) String() string {
	switch t {
	case TypeBuffer:
		return "buffer"
	case TypeTexture:
		return "texture"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Mutability selects whether contents may change after construction.
type Mutability uint8

const (
	// Static resources upload once and stay immutable.
	Static Mutability = iota

	// Dynamic resources are rewritten across update cycles through the
	// multibuffer engine.
	Dynamic
)

// String returns the mutability name.
func (m Mutability) String() string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("mutability(%d)", uint8(m))
	}
}

// Direction is the data flow axis of a resource.
type Direction uint8

const (
	// Forward flows CPU to GPU. The only direction currently built.
	Forward Direction = iota

	// Reverse flows GPU to CPU. Declared, returns ErrNotImplemented.
	Reverse

	// Sideways flows GPU to GPU. Declared, returns ErrNotImplemented.
	Sideways
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	case Sideways:
		return "sideways"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// WriteFrequency is an advisory hint for how often a dynamic resource
// is rewritten. It never changes correctness, only allocation tuning.
type WriteFrequency uint8

const (
	// WriteUnspecified lets the backend choose.
	WriteUnspecified WriteFrequency = iota

	// WriteEveryCycle marks data rewritten every update cycle.
	WriteEveryCycle

	// WriteOccasional marks data rewritten rarely.
	WriteOccasional
)

// CPUStrategy hints whether the CPU will read data back.
type CPUStrategy uint8

const (
	// CPUWontRead: data flows one way to the GPU. The backend may use
	// copy-only staging.
	CPUWontRead CPUStrategy = iota

	// CPUReadsFrequently: keep allocations host-visible where the
	// backend supports it.
	CPUReadsFrequently
)

// Usage re-exports backend usage flags for descriptor construction.
type Usage = backend.Usage

// Usage flag re-exports.
const (
	UsageCopySrc        = backend.UsageCopySrc
	UsageCopyDst        = backend.UsageCopyDst
	UsageVertex         = backend.UsageVertex
	UsageIndex          = backend.UsageIndex
	UsageUniform        = backend.UsageUniform
	UsageStorage        = backend.UsageStorage
	UsageTextureBinding = backend.UsageTextureBinding
)

// Descriptor fully describes a resource before construction. It is
// immutable afterwards: the axis combination of a live resource never
// changes.
type Descriptor struct {
	// Type selects buffer or texture backing.
	Type ResourceType

	// Mutability selects static or dynamic behavior.
	Mutability Mutability

	// Direction is the data flow axis. Only Forward is built.
	Direction Direction

	// ElementSize is the byte size of one element. Buffers only.
	ElementSize uint32

	// ElementCount is the number of elements. Buffers only.
	ElementCount int

	// Format is the texel format. Textures only.
	Format gputypes.TextureFormat

	// Width and Height are texel dimensions. Textures only.
	Width, Height int

	// Usage declares GPU consumption.
	Usage Usage

	// WriteFrequency is an advisory rewrite-rate hint.
	WriteFrequency WriteFrequency

	// CPUStrategy hints whether the CPU reads data back.
	CPUStrategy CPUStrategy

	// DebugName labels backend allocations for diagnostics.
	DebugName string
}

// Validate checks the descriptor. It reports ErrInvalidDescriptor with
// a reason; unbuilt directions are reported by construction, not here,
// so declaring them stays legal.
func (d Descriptor) Validate() error {
	if d.Type != TypeBuffer && d.Type != TypeTexture {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidDescriptor, d.Type)
	}
	if d.Mutability != Static && d.Mutability != Dynamic {
		return fmt.Errorf("%w: unknown mutability %d", ErrInvalidDescriptor, d.Mutability)
	}
	if d.Direction != Forward && d.Direction != Reverse && d.Direction != Sideways {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidDescriptor, d.Direction)
	}
	switch d.Type {
	case TypeBuffer:
		if d.ElementSize == 0 {
			return fmt.Errorf("%w: zero element size", ErrInvalidDescriptor)
		}
		if d.ElementCount <= 0 {
			return fmt.Errorf("%w: element count %d", ErrInvalidDescriptor, d.ElementCount)
		}
	case TypeTexture:
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
		}
		if FormatSize(d.Format) == 0 {
			return fmt.Errorf("%w: unsupported format %v", ErrInvalidDescriptor, d.Format)
		}
	}
	return nil
}

// ByteSize is the total backing size of one allocation.
func (d Descriptor) ByteSize() uint64 {
	switch d.Type {
	case TypeBuffer:
		return uint64(d.ElementSize) * uint64(d.ElementCount)
	case TypeTexture:
		return uint64(FormatSize(d.Format)) * uint64(d.Width) * uint64(d.Height)
	default:
		return 0
	}
}

// allocationDescriptor lowers the descriptor for the backend.
func (d Descriptor) allocationDescriptor() backend.AllocationDescriptor {
	return backend.AllocationDescriptor{
		Label:     d.DebugName,
		Size:      d.ByteSize(),
		Usage:     d.Usage,
		Mappable:  d.CPUStrategy == CPUReadsFrequently,
		WriteHint: d.WriteFrequency.hint(),
	}
}

func (f WriteFrequency) hint() backend.WriteHint {
	switch f {
	case WriteEveryCycle:
		return backend.WriteHintEveryCycle
	case WriteOccasional:
		return backend.WriteHintOccasional
	default:
		return backend.WriteHintUnknown
	}
}
