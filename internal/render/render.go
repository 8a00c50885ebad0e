// Package render produces derived raster artifacts: gallery thumbnails and
// mask overlay previews.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultThumbnailSize is the bounding box thumbnails are fitted into.
const DefaultThumbnailSize = 256

// ErrInvalidSize is returned for a non-positive thumbnail bound.
var ErrInvalidSize = errors.New("thumbnail size must be positive")

// overlay tint for masked pixels, a translucent red matching the editing
// surface's brush color.
var overlayColor = color.NRGBA{R: 0xff, G: 0x2d, B: 0x2d, A: 0x80}

// Thumbnail decodes src and scales it to fit within a size x size bounding
// box, preserving aspect ratio. Images already within the box are returned
// re-encoded at their natural size.
func Thumbnail(src []byte, size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tw, th := fit(w, h, size)

	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// fit shrinks w x h to fit within a size x size box, never upscaling.
func fit(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	if w >= h {
		return size, max(1, h*size/w)
	}
	return max(1, w*size/h), size
}

// OverlayMask composites the mask raster over the base image as a
// translucent tint, for previewing which pixels a masked edit will touch.
// The mask is stretched to the base image's bounds when dimensions differ.
func OverlayMask(base []byte, maskImg *image.Gray) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decoding base image: %w", err)
	}

	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	m := maskImg
	if m.Bounds().Dx() != b.Dx() || m.Bounds().Dy() != b.Dy() {
		scaled := image.NewGray(b)
		draw.NearestNeighbor.Scale(scaled, b, maskImg, maskImg.Bounds(), draw.Src, nil)
		m = scaled
	}

	tint := image.NewUniform(overlayColor)
	alpha := maskAlpha(m)
	draw.DrawMask(dst, b, tint, image.Point{}, alpha, alpha.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// maskAlpha reinterprets the gray raster as an alpha mask. Gray colors
// always report full alpha, so passing the raster to DrawMask directly
// would tint every pixel; painted (white) pixels must become opaque and
// unpainted ones transparent.
func maskAlpha(m *image.Gray) *image.Alpha {
	a := image.NewAlpha(m.Bounds())
	copy(a.Pix, m.Pix)
	return a
}
