package mask

// Viewport is the pan/zoom view transform applied to the displayed image and
// mask overlay. It affects presentation only: stroke painting maps through
// the displayed element's bounding box, which already reflects the transform,
// so painting stays accurate at any zoom level.
type Viewport struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

const (
	// MinScale is the lower zoom bound.
	MinScale = 0.2
	// MaxScale is the upper zoom bound.
	MaxScale = 10.0
)

// NewViewport returns an identity viewport.
func NewViewport() *Viewport {
	return &Viewport{Scale: 1}
}

// Reset restores the identity transform. Called whenever the active image
// changes.
func (v *Viewport) Reset() {
	v.Scale = 1
	v.OffsetX = 0
	v.OffsetY = 0
}

// Pan accumulates a screen-space pan delta into the offsets.
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// Zoom adjusts the scale by delta, clamped to [MinScale, MaxScale], keeping
// the anchor point fixed in screen space. A zero-delta call is a no-op.
func (v *Viewport) Zoom(delta, anchorX, anchorY float64) {
	next := clampScale(v.Scale + delta)
	if next == v.Scale {
		return
	}
	ratio := next / v.Scale
	v.OffsetX = anchorX - (anchorX-v.OffsetX)*ratio
	v.OffsetY = anchorY - (anchorY-v.OffsetY)*ratio
	v.Scale = next
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
