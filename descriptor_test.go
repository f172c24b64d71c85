package vram

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vram/backend"
)

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "valid buffer",
			desc: Descriptor{Type: TypeBuffer, ElementSize: 16, ElementCount: 4},
		},
		{
			name: "valid texture",
			desc: Descriptor{
				Type: TypeTexture, Format: gputypes.TextureFormatRGBA8Unorm,
				Width: 4, Height: 4,
			},
		},
		{
			name: "declared reverse direction is legal",
			desc: Descriptor{
				Type: TypeBuffer, Direction: Reverse,
				ElementSize: 4, ElementCount: 1,
			},
		},
		{
			name:    "zero element size",
			desc:    Descriptor{Type: TypeBuffer, ElementCount: 4},
			wantErr: true,
		},
		{
			name:    "zero element count",
			desc:    Descriptor{Type: TypeBuffer, ElementSize: 16},
			wantErr: true,
		},
		{
			name: "zero texture dimensions",
			desc: Descriptor{
				Type: TypeTexture, Format: gputypes.TextureFormatRGBA8Unorm,
			},
			wantErr: true,
		},
		{
			name: "unsupported texture format",
			desc: Descriptor{
				Type: TypeTexture, Format: gputypes.TextureFormatUndefined,
				Width: 4, Height: 4,
			},
			wantErr: true,
		},
		{
			name:    "unknown type",
			desc:    Descriptor{Type: ResourceType(9), ElementSize: 4, ElementCount: 1},
			wantErr: true,
		},
		{
			name: "unknown direction",
			desc: Descriptor{
				Type: TypeBuffer, Direction: Direction(9),
				ElementSize: 4, ElementCount: 1,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDescriptor) {
					t.Errorf("Validate() = %v, want ErrInvalidDescriptor", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestDescriptorByteSize(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want uint64
	}{
		{
			name: "buffer",
			desc: Descriptor{Type: TypeBuffer, ElementSize: 64, ElementCount: 100},
			want: 6400,
		},
		{
			name: "rgba8 texture",
			desc: Descriptor{
				Type: TypeTexture, Format: gputypes.TextureFormatRGBA8Unorm,
				Width: 16, Height: 8,
			},
			want: 16 * 8 * 4,
		},
		{
			name: "r8 texture",
			desc: Descriptor{
				Type: TypeTexture, Format: gputypes.TextureFormatR8Unorm,
				Width: 10, Height: 10,
			},
			want: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.ByteSize(); got != tt.want {
				t.Errorf("ByteSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(gputypes.TextureFormatBGRA8Unorm); got != 4 {
		t.Errorf("FormatSize(BGRA8Unorm) = %d, want 4", got)
	}
	if got := FormatSize(gputypes.TextureFormatUndefined); got != 0 {
		t.Errorf("FormatSize(Undefined) = %d, want 0", got)
	}
}

func TestAllocationDescriptorCarriesHints(t *testing.T) {
	tests := []struct {
		name         string
		desc         Descriptor
		wantMappable bool
		wantHint     backend.WriteHint
	}{
		{
			name: "defaults",
			desc: Descriptor{Type: TypeBuffer, ElementSize: 4, ElementCount: 1},
		},
		{
			name: "cpu reads frequently",
			desc: Descriptor{
				Type: TypeBuffer, ElementSize: 4, ElementCount: 1,
				CPUStrategy: CPUReadsFrequently,
			},
			wantMappable: true,
		},
		{
			name: "rewritten every cycle",
			desc: Descriptor{
				Type: TypeBuffer, ElementSize: 4, ElementCount: 1,
				WriteFrequency: WriteEveryCycle,
			},
			wantHint: backend.WriteHintEveryCycle,
		},
		{
			name: "rewritten occasionally",
			desc: Descriptor{
				Type: TypeBuffer, ElementSize: 4, ElementCount: 1,
				WriteFrequency: WriteOccasional,
			},
			wantHint: backend.WriteHintOccasional,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := tt.desc.allocationDescriptor()
			if ad.Mappable != tt.wantMappable {
				t.Errorf("Mappable = %v, want %v", ad.Mappable, tt.wantMappable)
			}
			if ad.WriteHint != tt.wantHint {
				t.Errorf("WriteHint = %v, want %v", ad.WriteHint, tt.wantHint)
			}
		})
	}
}

func TestAxisStrings(t *testing.T) {
	if TypeBuffer.String() != "buffer" || TypeTexture.String() != "texture" {
		t.Error("ResourceType.String() mismatch")
	}
	if Static.String() != "static" || Dynamic.String() != "dynamic" {
		t.Error("Mutability.String() mismatch")
	}
	if Forward.String() != "forward" || Reverse.String() != "reverse" || Sideways.String() != "sideways" {
		t.Error("Direction.String() mismatch")
	}
}
