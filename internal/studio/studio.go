// Package studio implements the tool orchestration layer: it owns the
// per-session application state (timeline, gallery, mask canvas, viewport,
// reference sections, seed, busy flag), translates tool submissions into
// backend requests, and applies successful results atomically.
//
// All state transitions happen through Studio methods under one mutex, so a
// web request sees the same single-event semantics a browser event loop
// would provide. Exactly one generation request may be in flight at a time;
// a second submission is rejected with ErrBusy rather than queued. There is
// no cancellation: once a request is sent the caller can only wait for
// success or failure.
package studio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // uploaded references may be JPEG
	"image/png"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/mask"
)

// Validation errors. These are caught before any backend call; state is
// never touched when one is returned.
var (
	// ErrNoActiveImage is returned by image-dependent tools with an empty canvas
	ErrNoActiveImage = errors.New("an active image is required for this tool")
	// ErrInputRequired is returned by Generate with neither prompt nor references
	ErrInputRequired = errors.New("a text prompt or at least one reference image is required")
	// ErrInstructionRequired is returned by Edit with an empty instruction
	ErrInstructionRequired = errors.New("an edit instruction is required")
	// ErrMaskRequired is returned by masked Edit when nothing has been painted
	ErrMaskRequired = errors.New("draw a mask on the image to specify the area to edit")
	// ErrBackgroundRequired is returned by Background with neither prompt nor image
	ErrBackgroundRequired = errors.New("either a background prompt or a background image is required")
	// ErrDirectionRequired is returned by Outpaint with no directions selected
	ErrDirectionRequired = errors.New("at least one expansion direction is required")
	// ErrInvalidVariant is returned by Enhance for an unknown variant
	ErrInvalidVariant = errors.New("unknown enhancement variant")
	// ErrInvalidDirection is returned by Outpaint for an unknown direction
	ErrInvalidDirection = errors.New("unknown expansion direction")
	// ErrInvalidCustomSize is returned by Outpaint custom sizing without positive dimensions
	ErrInvalidCustomSize = errors.New("custom size requires positive width and height")
	// ErrInvalidSection is returned for an unknown reference section
	ErrInvalidSection = errors.New("unknown reference section")
)

// Operational errors.
var (
	// ErrBusy is returned while a generation request is in flight
	ErrBusy = errors.New("another generation is already in flight")
	// ErrNotFound is returned when an image ID is not in the gallery
	ErrNotFound = errors.New("image not found")
	// ErrBadImage is returned when image bytes cannot be decoded
	ErrBadImage = errors.New("image could not be decoded")
)

// IsValidationError reports whether err is one of the pre-call validation
// errors, as opposed to a backend or I/O failure.
func IsValidationError(err error) bool {
	for _, v := range []error{
		ErrNoActiveImage, ErrInputRequired, ErrInstructionRequired,
		ErrMaskRequired, ErrBackgroundRequired, ErrDirectionRequired,
		ErrInvalidVariant, ErrInvalidDirection, ErrInvalidCustomSize,
		ErrInvalidSection,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// LoadingMessages are the rotating status lines shown while a request is in
// flight.
var LoadingMessages = []string{
	"Summoning digital muses...",
	"Painting with pixels and probability...",
	"Warming up the creativity core...",
	"Asking the AI for a masterpiece...",
	"Generating photorealistic details...",
	"This might take a moment, great art needs patience...",
	"Finalizing light and shadows...",
}

// loadingMessagePeriod is how long each status line is shown.
const loadingMessagePeriod = 2500 * time.Millisecond

// maxSyntheticSeed bounds synthesized seeds to the positive int32 range the
// backend accepts.
const maxSyntheticSeed = 1 << 31

// Studio is the orchestration layer for one working session.
type Studio struct {
	mu sync.Mutex

	backend gemini.Generator
	log     *logging.Logger

	timeline *history.Timeline
	gallery  *history.Collection
	canvas   *mask.Canvas
	view     *mask.Viewport

	refs map[Section]*Reference

	seed       *int64
	seedLocked bool

	busy      bool
	busySince time.Time
}

// New creates a Studio backed by the given generator. brushDiameter
// configures the initial mask brush; zero keeps the package default.
func New(backend gemini.Generator, brushDiameter int, log *logging.Logger) *Studio {
	canvas := mask.NewCanvas()
	if brushDiameter > 0 {
		canvas.SetBrushDiameter(brushDiameter)
	}
	return &Studio{
		backend:  backend,
		log:      log,
		timeline: history.NewTimeline(),
		gallery:  history.NewCollection(),
		canvas:   canvas,
		view:     mask.NewViewport(),
		refs:     make(map[Section]*Reference),
	}
}

// Status reports whether a generation request is in flight, along with the
// rotating human-readable status line for the current moment.
func (s *Studio) Status() (busy bool, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return false, ""
	}
	n := int(time.Since(s.busySince)/loadingMessagePeriod) % len(LoadingMessages)
	return true, LoadingMessages[n]
}

// Active returns the active image version, or nil when the canvas is empty.
func (s *Studio) Active() *history.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Active()
}

// HistoryState describes the timeline for UI gating.
type HistoryState struct {
	Entries  []*history.Version
	Playhead int
	CanUndo  bool
	CanRedo  bool
}

// History returns a snapshot of the timeline.
func (s *Studio) History() HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HistoryState{
		Entries:  s.timeline.Entries(),
		Playhead: s.timeline.Playhead(),
		CanUndo:  s.timeline.CanUndo(),
		CanRedo:  s.timeline.CanRedo(),
	}
}

// Undo moves the playhead one step back and re-initializes the mask canvas
// against the newly active image. No-op at the boundary.
func (s *Studio) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timeline.Undo() {
		return false
	}
	s.activateLocked(s.timeline.Active())
	return true
}

// Redo moves the playhead one step forward and re-initializes the mask
// canvas against the newly active image. No-op at the boundary.
func (s *Studio) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timeline.Redo() {
		return false
	}
	s.activateLocked(s.timeline.Active())
	return true
}

// JumpTo re-points the playhead at the gallery image with the given ID. An
// image that is not in the timeline (for example, one whose history was
// cleared) is appended instead of seeked to.
func (s *Studio) JumpTo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.gallery.Get(id)
	if !ok {
		return ErrNotFound
	}
	s.timeline.JumpTo(v)
	s.activateLocked(v)
	return nil
}

// ClearCanvas resets the timeline and active image. Gallery images are
// unaffected.
func (s *Studio) ClearCanvas() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.Reset()
	s.resetCanvasLocked()
}

// DeleteImages removes the given IDs from the gallery. When the active
// image is among them, the newest remaining image becomes active, or the
// canvas is cleared if none remain. Timeline entries are never rewritten.
func (s *Studio) DeleteImages(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	activeDeleted := false
	if active := s.timeline.Active(); active != nil {
		for _, id := range ids {
			if id == active.ID {
				activeDeleted = true
				break
			}
		}
	}

	removed := s.gallery.Remove(ids)
	if removed == 0 || !activeDeleted {
		return removed
	}

	if next := s.gallery.First(); next != nil {
		s.timeline.JumpTo(next)
		s.activateLocked(next)
	} else {
		s.timeline.ClearActive()
		s.resetCanvasLocked()
	}
	return removed
}

// Gallery returns the session's images, newest first, optionally filtered
// by provenance kind.
func (s *Studio) Gallery(kind history.Kind) []*history.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == "" {
		return s.gallery.All()
	}
	return s.gallery.ByKind(kind)
}

// Image returns the gallery image with the given ID.
func (s *Studio) Image(id string) (*history.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.gallery.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// SelectImages returns the gallery images matching ids, newest first, for
// export.
func (s *Studio) SelectImages(ids []string) []*history.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gallery.Select(ids)
}

// Seed returns the last generation seed and whether it is locked for reuse.
func (s *Studio) Seed() (seed *int64, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed, s.seedLocked
}

// LockSeed controls whether the last seed is reused for subsequent
// generations instead of re-rolling.
func (s *Studio) LockSeed(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked = locked
}

// commitLocked decodes the produced image, re-initializes the mask canvas
// against it, then mints a version and adds it to the gallery and the
// timeline. The caller holds the mutex. The canvas is initialized first
// because it enforces the raster dimension bounds; a result that fails to
// decode or exceeds them is rejected with nothing mutated.
func (s *Studio) commitLocked(pngData []byte, kind history.Kind, prompt string, seed *int64, refs []history.ReferenceSnapshot) (*history.Version, error) {
	w, h, err := decodeDims(pngData)
	if err != nil {
		return nil, err
	}
	if err := s.canvas.Initialize(w, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	v := history.NewVersion(pngData, kind, prompt, seed, refs)
	s.gallery.Add(v)
	s.timeline.Append(v)
	s.view.Reset()

	if s.log != nil {
		s.log.Info("new %s version %s (%dx%d)", kind, v.ID, w, h)
	}
	return v, nil
}

// activateLocked re-initializes the mask canvas and viewport for the given
// active image. The caller holds the mutex.
func (s *Studio) activateLocked(v *history.Version) {
	if v == nil {
		s.resetCanvasLocked()
		return
	}
	w, h, err := decodeDims(v.PNG)
	if err != nil {
		// The version decoded when it was committed; a failure here means
		// corruption, which we surface by clearing the mask layer.
		if s.log != nil {
			s.log.Error("re-activating %s: %v", v.ID, err)
		}
		s.resetCanvasLocked()
		return
	}
	_ = s.canvas.Initialize(w, h)
	s.view.Reset()
}

// resetCanvasLocked discards the mask raster entirely, keeping the
// configured brush. The caller holds the mutex.
func (s *Studio) resetCanvasLocked() {
	brush := s.canvas.BrushDiameter()
	s.canvas = mask.NewCanvas()
	s.canvas.SetBrushDiameter(brush)
	s.view.Reset()
}

// beginCall validates nothing itself; it flips the busy flag if free.
func (s *Studio) beginCallLocked() error {
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.busySince = time.Now()
	return nil
}

func (s *Studio) endCallLocked() {
	s.busy = false
}

// synthesizeSeed rolls a fresh positive seed in the backend's range.
func synthesizeSeed() int64 {
	return rand.Int64N(maxSyntheticSeed)
}

// decodeDims returns the natural pixel dimensions of encoded image data.
func decodeDims(data []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

// encodePNG re-encodes a decoded image as PNG. Used by Upload to normalize
// non-PNG uploads.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
