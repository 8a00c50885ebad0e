// Package history provides the version record for produced images, the
// linear timeline with a movable playhead, and the session-wide image
// collection backing the gallery.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Kind records which tool produced an image version. The values double as
// folder names in exported archives.
type Kind string

const (
	// KindGenerated marks images produced by the Generate tool.
	KindGenerated Kind = "GENERATED"
	// KindEdited marks images produced by a masked or global edit.
	KindEdited Kind = "EDITED"
	// KindEnhanced marks images produced by the Enhance tool.
	KindEnhanced Kind = "ENHANCED"
	// KindBackground marks images produced by background replacement.
	KindBackground Kind = "BACKGROUND"
	// KindOutpainted marks images produced by the Outpaint tool.
	KindOutpainted Kind = "OUTPAINTED"
	// KindUploaded marks images the user uploaded directly.
	KindUploaded Kind = "UPLOADED"
)

// Valid reports whether k is one of the known provenance kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGenerated, KindEdited, KindEnhanced, KindBackground, KindOutpainted, KindUploaded:
		return true
	}
	return false
}

// ReferenceSnapshot is an audit copy of one reference section used to
// produce a version. It is recorded for export, not for replay.
type ReferenceSnapshot struct {
	Section  string
	Prompt   string
	Image    []byte
	MimeType string
}

// Version is a single produced or uploaded image. Versions are immutable
// once created; deletion from the gallery never rewrites versions already
// recorded in the timeline.
type Version struct {
	// ID is unique for the lifetime of the session.
	ID string

	// PNG is the image content.
	PNG []byte

	// Kind is the provenance tag.
	Kind Kind

	// Prompt describes how the version was produced, if known.
	Prompt string

	// Seed is the deterministic generation seed, when one was used.
	Seed *int64

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time

	// References holds the reference sections used, if any.
	References []ReferenceSnapshot
}

// NewVersion mints a Version with a fresh unique ID and the current time.
func NewVersion(png []byte, kind Kind, prompt string, seed *int64, refs []ReferenceSnapshot) *Version {
	return &Version{
		ID:         uuid.New().String(),
		PNG:        png,
		Kind:       kind,
		Prompt:     prompt,
		Seed:       seed,
		CreatedAt:  time.Now().UTC(),
		References: refs,
	}
}
