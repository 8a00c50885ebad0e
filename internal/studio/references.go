package studio

import (
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
)

// Section identifies one reference slot. Each section carries a distinct
// composition role in the generation prompt.
type Section string

const (
	SectionSubject      Section = "Subject"
	SectionStyle        Section = "Style"
	SectionEnvironment  Section = "Environment"
	SectionOutfit       Section = "Outfit"
	SectionPose         Section = "Pose"
	SectionAccessories  Section = "Accessories"
	SectionInsertObject Section = "Insert Object"
)

// SectionInfo describes a reference section for the UI.
type SectionInfo struct {
	Name        Section `json:"name"`
	Description string  `json:"description"`
}

// Sections lists all reference sections in display order.
var Sections = []SectionInfo{
	{SectionSubject, "The main person or character of the image."},
	{SectionStyle, "The artistic style, color palette and mood."},
	{SectionEnvironment, "The scene, location or background setting."},
	{SectionOutfit, "Clothing worn by the subject."},
	{SectionPose, "The body position and framing of the subject."},
	{SectionAccessories, "Props and accessories carried or worn."},
	{SectionInsertObject, "A standalone object to place into the scene."},
}

// Valid reports whether s names a known section.
func (s Section) Valid() bool {
	for _, info := range Sections {
		if info.Name == s {
			return true
		}
	}
	return false
}

// Reference is the content of one reference slot: an optional image and an
// optional per-section prompt refining how the image should be used.
type Reference struct {
	Image    []byte
	MimeType string
	Prompt   string
}

// SetReferenceImage attaches image bytes to a section, replacing any
// previous image there.
func (s *Studio) SetReferenceImage(section Section, data []byte, mimeType string) error {
	if !section.Valid() {
		return ErrInvalidSection
	}
	if _, _, err := decodeDims(data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.refs[section]
	if ref == nil {
		ref = &Reference{}
		s.refs[section] = ref
	}
	ref.Image = data
	ref.MimeType = mimeType
	return nil
}

// SetReferencePrompt sets the per-section refinement prompt. An empty
// prompt clears it.
func (s *Studio) SetReferencePrompt(section Section, prompt string) error {
	if !section.Valid() {
		return ErrInvalidSection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.refs[section]
	if ref == nil {
		if prompt == "" {
			return nil
		}
		ref = &Reference{}
		s.refs[section] = ref
	}
	ref.Prompt = prompt
	if ref.Image == nil && ref.Prompt == "" {
		delete(s.refs, section)
	}
	return nil
}

// ClearReference removes the section's slot entirely.
func (s *Studio) ClearReference(section Section) error {
	if !section.Valid() {
		return ErrInvalidSection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, section)
	return nil
}

// References returns the populated sections in display order.
func (s *Studio) References() map[Section]Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Section]Reference, len(s.refs))
	for section, ref := range s.refs {
		out[section] = *ref
	}
	return out
}

// referencePartsLocked converts the populated sections that carry an image
// into backend request parts, in stable display order. The caller holds
// the mutex.
func (s *Studio) referencePartsLocked() []gemini.ReferencePart {
	var parts []gemini.ReferencePart
	for _, info := range Sections {
		ref := s.refs[info.Name]
		if ref == nil || len(ref.Image) == 0 {
			continue
		}
		parts = append(parts, gemini.ReferencePart{
			Section:  string(info.Name),
			Prompt:   ref.Prompt,
			Image:    ref.Image,
			MimeType: ref.MimeType,
		})
	}
	return parts
}

// snapshotRefs records the references that contributed to a generation for
// provenance display.
func snapshotRefs(parts []gemini.ReferencePart) []history.ReferenceSnapshot {
	if len(parts) == 0 {
		return nil
	}
	out := make([]history.ReferenceSnapshot, 0, len(parts))
	for _, p := range parts {
		out = append(out, history.ReferenceSnapshot{
			Section:  p.Section,
			Prompt:   p.Prompt,
			Image:    p.Image,
			MimeType: p.MimeType,
		})
	}
	return out
}
