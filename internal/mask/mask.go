// Package mask implements the editable mask layer over the active image.
//
// A Canvas owns an 8-bit grayscale raster at the active image's natural
// resolution. Unmasked pixels are black (0), painted pixels are white (255).
// Strokes are painted with a circular brush; the raster is snapshotted into
// an undo/redo history once per completed stroke, not per paint event, so
// memory growth is bounded by the number of discrete user actions.
//
// # Coordinate mapping
//
// Pointer events arrive in screen space relative to the displayed element.
// The canvas converts them to raster space by scaling with the ratio of the
// raster dimensions to the on-screen display dimensions, which accounts for
// the mismatch between CSS size and intrinsic size. The pan/zoom Viewport
// never participates in this mapping: the displayed element's bounding box
// already reflects the view transform.
package mask

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
)

const (
	// DefaultBrushDiameter is the brush diameter used when none is configured.
	DefaultBrushDiameter = 40

	// MaxDimension is the maximum allowed raster width or height.
	MaxDimension = 8192

	// unmasked and masked are the two legal pixel values.
	unmasked = 0x00
	masked   = 0xff
)

var (
	// ErrNotInitialized indicates the canvas has no raster yet
	ErrNotInitialized = errors.New("mask canvas not initialized")
	// ErrInvalidDimensions indicates width or height is not positive
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrDimensionsTooLarge indicates the raster would exceed MaxDimension
	ErrDimensionsTooLarge = errors.New("dimensions exceed maximum allowed")
)

// Point is a screen-space coordinate relative to the displayed element.
type Point struct {
	X float64
	Y float64
}

// Canvas is the mask painting surface. It is not safe for concurrent use;
// the owning session serializes access.
type Canvas struct {
	raster *image.Gray
	width  int
	height int

	// On-screen size of the displayed element. Zero means the raster is
	// displayed at its natural size.
	displayW float64
	displayH float64

	brush int // diameter in raster pixels

	// Snapshot history. One full-raster copy per completed stroke or clear.
	snapshots [][]byte
	index     int

	// cleanIndex is the history position recorded at the last Initialize or
	// Clear. Dirty is derived from it rather than tracked as a flag.
	cleanIndex int

	stroking bool
	last     image.Point
}

// NewCanvas returns a Canvas with no raster. Initialize must be called with
// the active image's natural dimensions before painting.
func NewCanvas() *Canvas {
	return &Canvas{brush: DefaultBrushDiameter}
}

// Initialize allocates a fresh raster at the given natural resolution, fills
// it with the unmasked value, and resets the snapshot history to that single
// blank entry. Any in-progress stroke is discarded.
//
// Calling Initialize twice in a row is idempotent in effect: both calls leave
// a fully unmasked raster with a single-entry history.
func (c *Canvas) Initialize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidDimensions
	}
	if width > MaxDimension || height > MaxDimension {
		return ErrDimensionsTooLarge
	}

	c.raster = image.NewGray(image.Rect(0, 0, width, height))
	c.width = width
	c.height = height
	c.stroking = false

	c.snapshots = [][]byte{c.snapshot()}
	c.index = 0
	c.cleanIndex = 0
	return nil
}

// Initialized reports whether the canvas has a raster.
func (c *Canvas) Initialized() bool {
	return c.raster != nil
}

// Width returns the raster width in pixels, or 0 before Initialize.
func (c *Canvas) Width() int { return c.width }

// Height returns the raster height in pixels, or 0 before Initialize.
func (c *Canvas) Height() int { return c.height }

// SetDisplaySize records the on-screen size of the displayed element so that
// stroke coordinates can be mapped from screen space to raster space.
func (c *Canvas) SetDisplaySize(w, h float64) {
	c.displayW = w
	c.displayH = h
}

// SetBrushDiameter configures the brush diameter in raster pixels. It affects
// subsequent strokes only. Values below 1 are clamped to 1.
func (c *Canvas) SetBrushDiameter(px int) {
	if px < 1 {
		px = 1
	}
	c.brush = px
}

// BrushDiameter returns the configured brush diameter.
func (c *Canvas) BrushDiameter() int { return c.brush }

// BeginStroke starts a stroke at the given screen-space point and paints a
// brush-sized dot there, so a click with no movement still marks the mask.
func (c *Canvas) BeginStroke(p Point) error {
	if c.raster == nil {
		return ErrNotInitialized
	}
	pt := c.toRaster(p)
	c.stroking = true
	c.last = pt
	c.stampCircle(pt.X, pt.Y)
	return nil
}

// ExtendStroke continues the active stroke to the given point, painting a
// brush-width segment from the previous point. The segment is stamped along
// every pixel of the connecting line, so fast pointer movement cannot leave
// gaps between samples. Calls without an active stroke are ignored.
func (c *Canvas) ExtendStroke(p Point) {
	if !c.stroking || c.raster == nil {
		return
	}
	pt := c.toRaster(p)
	c.stampSegment(c.last, pt)
	c.last = pt
}

// EndStroke finalizes the active stroke and records a raster snapshot,
// discarding any redoable snapshots first. A pointer-leave while drawing is
// delivered as EndStroke so the canvas never sticks in the drawing state.
// Calls without an active stroke are ignored.
func (c *Canvas) EndStroke() {
	if !c.stroking || c.raster == nil {
		return
	}
	c.stroking = false
	c.push(c.snapshot())
}

// Undo repaints the raster from the previous snapshot. It reports whether a
// snapshot was available; at the boundary it is a no-op.
func (c *Canvas) Undo() bool {
	if !c.CanUndo() {
		return false
	}
	c.index--
	c.restore(c.snapshots[c.index])
	return true
}

// Redo repaints the raster from the next snapshot. It reports whether a
// snapshot was available; at the boundary it is a no-op.
func (c *Canvas) Redo() bool {
	if !c.CanRedo() {
		return false
	}
	c.index++
	c.restore(c.snapshots[c.index])
	return true
}

// CanUndo reports whether an earlier snapshot exists.
func (c *Canvas) CanUndo() bool {
	return c.raster != nil && c.index > 0
}

// CanRedo reports whether a later snapshot exists.
func (c *Canvas) CanRedo() bool {
	return c.raster != nil && c.index < len(c.snapshots)-1
}

// Clear repaints the whole raster with the unmasked value and records the
// blank state as a new history entry, so the clear itself can be undone.
// Afterward the mask reports not dirty.
func (c *Canvas) Clear() error {
	if c.raster == nil {
		return ErrNotInitialized
	}
	c.stroking = false
	for i := range c.raster.Pix {
		c.raster.Pix[i] = unmasked
	}
	c.push(c.snapshot())
	c.cleanIndex = c.index
	return nil
}

// Dirty reports whether the user has painted since the last Initialize or
// Clear. It is derived from the history position: the canvas is dirty exactly
// when the current snapshot is not the one recorded at the last clean point.
// Undoing back to the clean snapshot makes the mask not dirty again.
func (c *Canvas) Dirty() bool {
	return c.raster != nil && c.index != c.cleanIndex
}

// MaskedAt reports whether the raster pixel at (x, y) carries the masked
// value. Out-of-bounds coordinates report false.
func (c *Canvas) MaskedAt(x, y int) bool {
	if c.raster == nil || !(image.Pt(x, y).In(c.raster.Bounds())) {
		return false
	}
	return c.raster.GrayAt(x, y).Y != unmasked
}

// Raster returns a copy of the current raster. Callers may read or modify
// the copy freely without affecting the canvas.
func (c *Canvas) Raster() *image.Gray {
	if c.raster == nil {
		return nil
	}
	cp := image.NewGray(c.raster.Bounds())
	copy(cp.Pix, c.raster.Pix)
	return cp
}

// EncodePNG serializes the current raster as a PNG image, the external
// format consumed by masked edit requests.
func (c *Canvas) EncodePNG() ([]byte, error) {
	if c.raster == nil {
		return nil, ErrNotInitialized
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.raster); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toRaster converts a screen-space point to raster coordinates by scaling
// with the raster/display size ratio. With no display size recorded the
// mapping is identity.
func (c *Canvas) toRaster(p Point) image.Point {
	x := p.X
	y := p.Y
	if c.displayW > 0 && c.displayH > 0 {
		x = p.X * float64(c.width) / c.displayW
		y = p.Y * float64(c.height) / c.displayH
	}
	return image.Pt(int(x+0.5), int(y+0.5))
}

// snapshot copies the raster pixels.
func (c *Canvas) snapshot() []byte {
	cp := make([]byte, len(c.raster.Pix))
	copy(cp, c.raster.Pix)
	return cp
}

// restore repaints the raster from a snapshot.
func (c *Canvas) restore(pix []byte) {
	copy(c.raster.Pix, pix)
}

// push truncates any redoable entries and appends a snapshot.
func (c *Canvas) push(pix []byte) {
	c.snapshots = append(c.snapshots[:c.index+1], pix)
	c.index = len(c.snapshots) - 1
}

// stampCircle paints a filled circle of brush radius centred at (cx, cy).
func (c *Canvas) stampCircle(cx, cy int) {
	r := c.brush / 2
	if r < 1 {
		r = 1
	}
	bounds := c.raster.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			px, py := cx+dx, cy+dy
			if image.Pt(px, py).In(bounds) {
				c.raster.SetGray(px, py, color.Gray{Y: masked})
			}
		}
	}
}

// stampSegment paints the brush along every pixel of the line from a to b
// using a Bresenham walk.
func (c *Canvas) stampSegment(a, b image.Point) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y

	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.stampCircle(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
