package studio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
)

// GenerateParams describes a Generate tool submission.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	Seed           *int64
}

// Generate creates a fresh image from the prompt and the populated
// reference sections. When no explicit seed is given, the locked seed is
// reused if locking is on, otherwise a new one is rolled. The seed that was
// actually used is recorded on the resulting version and kept for reuse.
func (s *Studio) Generate(ctx context.Context, p GenerateParams) (*history.Version, error) {
	s.mu.Lock()
	refs := s.referencePartsLocked()
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" && len(refs) == 0 {
		s.mu.Unlock()
		return nil, ErrInputRequired
	}

	seed := p.Seed
	if seed == nil {
		if s.seedLocked && s.seed != nil {
			v := *s.seed
			seed = &v
		} else {
			v := synthesizeSeed()
			seed = &v
		}
	}

	if err := s.beginCallLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	result, err := s.backend.Generate(ctx, gemini.GenerateRequest{
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(p.NegativePrompt),
		References:     refs,
		Seed:           seed,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCallLocked()
	if err != nil {
		return nil, err
	}

	v, err := s.commitLocked(result, history.KindGenerated, generatePrompt(p), seed, snapshotRefs(refs))
	if err != nil {
		return nil, err
	}
	s.seed = seed
	return v, nil
}

// generatePrompt renders the provenance prompt recorded on a generated
// version.
func generatePrompt(p GenerateParams) string {
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" {
		prompt = "Generated from image references"
	}
	if neg := strings.TrimSpace(p.NegativePrompt); neg != "" {
		prompt += " | Negative: " + neg
	}
	return prompt
}

// EditParams describes an Edit tool submission. Global edits apply the
// instruction to the whole image; masked edits confine it to the painted
// region and require a dirty mask.
type EditParams struct {
	Instruction string
	Global      bool
}

// Edit applies an instruction to the active image. On success the new
// version becomes active and the mask layer is reset.
func (s *Studio) Edit(ctx context.Context, p EditParams) (*history.Version, error) {
	s.mu.Lock()
	active := s.timeline.Active()
	if active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveImage
	}
	instruction := strings.TrimSpace(p.Instruction)
	if instruction == "" {
		s.mu.Unlock()
		return nil, ErrInstructionRequired
	}

	var maskPNG []byte
	if !p.Global {
		if !s.canvas.Dirty() {
			s.mu.Unlock()
			return nil, ErrMaskRequired
		}
		data, err := s.canvas.EncodePNG()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("encoding mask: %w", err)
		}
		maskPNG = data
	}

	refs := s.referencePartsLocked()
	if err := s.beginCallLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	result, err := s.backend.Edit(ctx, gemini.EditRequest{
		BaseImage:   active.PNG,
		Mask:        maskPNG,
		Instruction: instruction,
		References:  refs,
		Global:      p.Global,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCallLocked()
	if err != nil {
		return nil, err
	}
	return s.commitLocked(result, history.KindEdited, "Edited: "+instruction, nil, snapshotRefs(refs))
}

// Enhance upscales or refines the active image.
func (s *Studio) Enhance(ctx context.Context, variant gemini.EnhanceVariant) (*history.Version, error) {
	s.mu.Lock()
	active := s.timeline.Active()
	if active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveImage
	}
	if !variant.Valid() {
		s.mu.Unlock()
		return nil, ErrInvalidVariant
	}
	if err := s.beginCallLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	result, err := s.backend.Enhance(ctx, gemini.EnhanceRequest{
		BaseImage: active.PNG,
		Variant:   variant,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCallLocked()
	if err != nil {
		return nil, err
	}
	return s.commitLocked(result, history.KindEnhanced, enhancePrompt(variant), nil, nil)
}

func enhancePrompt(variant gemini.EnhanceVariant) string {
	switch variant {
	case gemini.EnhanceX2:
		return "Upscaled (x2)"
	case gemini.EnhanceX4:
		return "Upscaled (x4)"
	default:
		return "Enhanced Image"
	}
}

// BackgroundParams describes a background replacement. Exactly one of
// Prompt and Image drives the new background; Image wins when both are
// set.
type BackgroundParams struct {
	Prompt    string
	Image     []byte
	ImageMime string
}

// ReplaceBackground swaps the background of the active image while keeping
// the foreground subject intact.
func (s *Studio) ReplaceBackground(ctx context.Context, p BackgroundParams) (*history.Version, error) {
	s.mu.Lock()
	active := s.timeline.Active()
	if active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveImage
	}
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" && len(p.Image) == 0 {
		s.mu.Unlock()
		return nil, ErrBackgroundRequired
	}
	if err := s.beginCallLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	result, err := s.backend.ReplaceBackground(ctx, gemini.BackgroundRequest{
		BaseImage:      active.PNG,
		Prompt:         prompt,
		Background:     p.Image,
		BackgroundMime: p.ImageMime,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCallLocked()
	if err != nil {
		return nil, err
	}
	return s.commitLocked(result, history.KindBackground, backgroundPrompt(p), nil, nil)
}

func backgroundPrompt(p BackgroundParams) string {
	if prompt := strings.TrimSpace(p.Prompt); prompt != "" {
		return "Background: " + prompt
	}
	return "Background: custom image"
}

// OutpaintParams describes a canvas expansion.
type OutpaintParams struct {
	Directions []gemini.Direction
	Prompt     string
	Sizing     gemini.Sizing
}

// Outpaint extends the active image past its current borders in the chosen
// directions.
func (s *Studio) Outpaint(ctx context.Context, p OutpaintParams) (*history.Version, error) {
	s.mu.Lock()
	active := s.timeline.Active()
	if active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveImage
	}
	if len(p.Directions) == 0 {
		s.mu.Unlock()
		return nil, ErrDirectionRequired
	}
	for _, d := range p.Directions {
		if !d.Valid() {
			s.mu.Unlock()
			return nil, ErrInvalidDirection
		}
	}
	if p.Sizing.AspectRatio == gemini.AspectCustom &&
		(p.Sizing.CustomWidth <= 0 || p.Sizing.CustomHeight <= 0) {
		s.mu.Unlock()
		return nil, ErrInvalidCustomSize
	}
	if err := s.beginCallLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	result, err := s.backend.Outpaint(ctx, gemini.OutpaintRequest{
		BaseImage:  active.PNG,
		Directions: p.Directions,
		Prompt:     strings.TrimSpace(p.Prompt),
		Target:     p.Sizing,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCallLocked()
	if err != nil {
		return nil, err
	}
	return s.commitLocked(result, history.KindOutpainted, outpaintPrompt(p), nil, nil)
}

func outpaintPrompt(p OutpaintParams) string {
	dirs := make([]string, 0, len(p.Directions))
	for _, d := range p.Directions {
		dirs = append(dirs, string(d))
	}
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" {
		prompt = "Natural expansion"
	}
	return fmt.Sprintf("Outpainted (%s): %s", strings.Join(dirs, ", "), prompt)
}

// Upload brings a user image into the session as the active image. Non-PNG
// uploads are re-encoded to PNG so every version shares one format.
func (s *Studio) Upload(data []byte) (*history.Version, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	pngData := data
	if format != "png" {
		pngData, err = encodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("re-encoding upload: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	return s.commitLocked(pngData, history.KindUploaded, "Uploaded for editing", nil, nil)
}
