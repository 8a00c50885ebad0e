package studio

import (
	"image"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/mask"
)

// MaskState summarizes the mask layer for UI gating.
type MaskState struct {
	Initialized bool `json:"initialized"`
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	Brush       int  `json:"brush"`
	Dirty       bool `json:"dirty"`
	CanUndo     bool `json:"canUndo"`
	CanRedo     bool `json:"canRedo"`
}

// Mask returns the current mask layer state.
func (s *Studio) Mask() MaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MaskState{
		Initialized: s.canvas.Initialized(),
		Width:       s.canvas.Width(),
		Height:      s.canvas.Height(),
		Brush:       s.canvas.BrushDiameter(),
		Dirty:       s.canvas.Dirty(),
		CanUndo:     s.canvas.CanUndo(),
		CanRedo:     s.canvas.CanRedo(),
	}
}

// PaintStroke applies one complete brush stroke given as screen-space
// points. A single point paints a dot.
func (s *Studio) PaintStroke(points []mask.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canvas.BeginStroke(points[0]); err != nil {
		return err
	}
	for _, p := range points[1:] {
		s.canvas.ExtendStroke(p)
	}
	s.canvas.EndStroke()
	return nil
}

// UndoMask reverts the last stroke or clear. Reports whether anything
// changed.
func (s *Studio) UndoMask() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Undo()
}

// RedoMask re-applies the last undone stroke or clear.
func (s *Studio) RedoMask() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Redo()
}

// ClearMask wipes all painted pixels. The cleared state is undoable.
func (s *Studio) ClearMask() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Clear()
}

// SetBrushDiameter sets the brush diameter for subsequent strokes.
func (s *Studio) SetBrushDiameter(d int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.SetBrushDiameter(d)
}

// SetDisplaySize records the on-screen size of the image element so
// screen-space stroke points can be mapped to raster pixels.
func (s *Studio) SetDisplaySize(w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.SetDisplaySize(w, h)
}

// MaskPNG encodes the mask raster as a grayscale PNG for backend requests
// and inspection.
func (s *Studio) MaskPNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.EncodePNG()
}

// MaskRaster returns a copy of the mask raster, or nil when no image is
// active.
func (s *Studio) MaskRaster() *image.Gray {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Raster()
}

// View returns the current pan/zoom viewport.
func (s *Studio) View() mask.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.view
}

// Pan translates the viewport by a screen-space delta.
func (s *Studio) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Pan(dx, dy)
}

// Zoom scales the viewport around the given screen-space anchor point.
func (s *Studio) Zoom(delta, anchorX, anchorY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Zoom(delta, anchorX, anchorY)
}

// ResetView restores the identity viewport.
func (s *Studio) ResetView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Reset()
}
