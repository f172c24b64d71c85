package vram

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FromImage converts any image.Image into an RGBA8 texel initializer.
// The image is converted once up front; the returned initializer is a
// cheap per-texel copy. Texels outside the image bounds stay zeroed.
func FromImage(img image.Image) TexelInitializer {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return texelsOf(rgba)
}

// FromImageScaled is FromImage with bilinear rescaling to the given
// texture dimensions. Use it when the source image size does not match
// the descriptor.
func FromImageScaled(img image.Image, width, height int) TexelInitializer {
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return texelsOf(rgba)
}

func texelsOf(rgba *image.RGBA) TexelInitializer {
	return func(x, y int, texel []byte) {
		if !(image.Point{X: x, Y: y}).In(rgba.Bounds()) {
			return
		}
		off := rgba.PixOffset(x, y)
		copy(texel, rgba.Pix[off:off+4])
	}
}
