package vram

import "github.com/gogpu/gputypes"

// FormatSize returns the byte size of one texel, or 0 for formats this
// library does not upload.
func FormatSize(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	default:
		return 0
	}
}

// FormatAlignment returns the required row alignment of a texel format.
// Every supported format packs to its texel size.
func FormatAlignment(f gputypes.TextureFormat) int {
	return FormatSize(f)
}
