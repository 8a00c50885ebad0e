// Package gemini provides the client for the remote generative-image
// backend and the request shapes of the five studio tools. The orchestration
// layer depends on the Generator interface so tests can substitute a fake.
package gemini

import (
	"context"
	"errors"
)

// DefaultModel is the image model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image-preview"

// Sentinel errors for backend operations
var (
	// ErrNoImage is returned when the response carries no image part
	ErrNoImage = errors.New("no image returned from the API")
	// ErrBlocked is returned when the request was refused by content safety
	ErrBlocked = errors.New("generation blocked")
	// ErrRequestFailed is returned when the API request fails
	ErrRequestFailed = errors.New("generation request failed")
)

// ReferencePart is one named reference section attached to a request: an
// optional guide image plus an optional sub-prompt for that section.
type ReferencePart struct {
	Section  string
	Prompt   string
	Image    []byte
	MimeType string
}

// GenerateRequest asks for a new image from text and reference sections.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	References     []ReferencePart
	// Seed, when non-nil, makes generation deterministic.
	Seed *int64
}

// EditRequest asks for a modification of the base image. In masked mode the
// white areas of Mask delimit where changes are permitted; in global mode
// the mask is absent and the instruction applies to the whole image.
type EditRequest struct {
	BaseImage   []byte
	Mask        []byte // PNG; nil in global mode
	Instruction string
	References  []ReferencePart
	Global      bool
}

// EnhanceVariant selects one of the discrete enhancement passes.
type EnhanceVariant string

const (
	// EnhanceX2 is a 2x upscale pass.
	EnhanceX2 EnhanceVariant = "x2"
	// EnhanceX4 is a 4x upscale pass.
	EnhanceX4 EnhanceVariant = "x4"
	// EnhanceGeneral is a general quality pass.
	EnhanceGeneral EnhanceVariant = "general"
)

// Valid reports whether v is a known variant.
func (v EnhanceVariant) Valid() bool {
	switch v {
	case EnhanceX2, EnhanceX4, EnhanceGeneral:
		return true
	}
	return false
}

// EnhanceRequest asks for an enhancement pass over the base image.
type EnhanceRequest struct {
	BaseImage []byte
	Variant   EnhanceVariant
}

// BackgroundRequest asks for the base image's background to be replaced,
// either from a text description or from a supplied background image.
type BackgroundRequest struct {
	BaseImage []byte
	Prompt    string
	// Background, when set, is used as the new background instead of Prompt.
	Background     []byte
	BackgroundMime string
}

// Direction is an outpaint expansion direction.
type Direction string

const (
	// DirUp expands the canvas upward.
	DirUp Direction = "up"
	// DirDown expands the canvas downward.
	DirDown Direction = "down"
	// DirLeft expands the canvas to the left.
	DirLeft Direction = "left"
	// DirRight expands the canvas to the right.
	DirRight Direction = "right"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// Aspect ratio options for outpaint target sizing.
const (
	// AspectFreeform expands naturally without a fixed ratio.
	AspectFreeform = "Freeform"
	// AspectCustom uses the request's explicit width and height.
	AspectCustom = "Custom"
)

// Sizing is the outpaint target: a named aspect ratio such as "16:9",
// AspectFreeform, or AspectCustom with explicit pixel dimensions.
type Sizing struct {
	AspectRatio  string
	CustomWidth  int
	CustomHeight int
}

// OutpaintRequest asks for the base image to be expanded beyond its bounds.
type OutpaintRequest struct {
	BaseImage  []byte
	Prompt     string
	Directions []Direction
	Target     Sizing
}

// Generator is the call boundary to the remote generation backend. Every
// method blocks for the round trip and returns either the produced image
// bytes or an error; there is no partial result.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
	Edit(ctx context.Context, req EditRequest) ([]byte, error)
	Enhance(ctx context.Context, req EnhanceRequest) ([]byte, error)
	ReplaceBackground(ctx context.Context, req BackgroundRequest) ([]byte, error)
	Outpaint(ctx context.Context, req OutpaintRequest) ([]byte, error)
}
