// Package export writes session archives. A session archive groups each
// image under its creation date and a provenance-kind folder, with a text
// sidecar recording how the image was produced:
//
//	2024-03-05/GENERATED/5f3a....png
//	2024-03-05/GENERATED/5f3a....txt
//
// The layout is deterministic for a given image set, so repeated exports
// of the same session produce the same paths no matter when they run.
package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
)

// ErrNoImages is returned when an archive is requested for an empty set.
var ErrNoImages = errors.New("no images to export")

// Mode selects the archive layout.
type Mode string

const (
	// ModeSession writes date/kind folders with provenance sidecars.
	ModeSession Mode = "session"
	// ModeImages writes a flat folder of image files only.
	ModeImages Mode = "images"
)

// ArchiveName returns the download filename for an archive written at now.
func ArchiveName(mode Mode, now time.Time) string {
	date := now.UTC().Format("2006-01-02")
	if mode == ModeImages {
		return "nano-banana-images-" + date + ".zip"
	}
	return "nano-banana-session-" + date + ".zip"
}

// Archiver writes zip archives of session images.
type Archiver struct {
	log *logging.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(log *logging.Logger) *Archiver {
	return &Archiver{log: log}
}

// WriteSession writes the session-layout archive for versions to w. An
// image that fails to write is skipped and logged; the archive still
// contains the rest.
func (a *Archiver) WriteSession(w io.Writer, versions []*history.Version) error {
	if len(versions) == 0 {
		return ErrNoImages
	}

	zw := zip.NewWriter(w)
	for _, v := range versions {
		date := v.CreatedAt.UTC().Format("2006-01-02")
		base := fmt.Sprintf("%s/%s/%s", date, v.Kind, v.ID)
		if err := writeEntry(zw, base+".png", v.PNG); err != nil {
			a.warn("writing %s: %v", base+".png", err)
			continue
		}
		if err := writeEntry(zw, base+".txt", []byte(Sidecar(v))); err != nil {
			a.warn("writing %s: %v", base+".txt", err)
		}
	}
	return zw.Close()
}

// WriteImages writes the flat images-only archive for versions to w.
func (a *Archiver) WriteImages(w io.Writer, versions []*history.Version) error {
	if len(versions) == 0 {
		return ErrNoImages
	}
	zw := zip.NewWriter(w)
	for _, v := range versions {
		name := v.ID + ".png"
		if err := writeEntry(zw, name, v.PNG); err != nil {
			a.warn("writing %s: %v", name, err)
		}
	}
	return zw.Close()
}

func (a *Archiver) warn(format string, v ...any) {
	if a.log != nil {
		a.log.Warn(format, v...)
	}
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// Sidecar renders the provenance text written next to each image in a
// session archive. Lines use CRLF so the file reads cleanly everywhere.
func Sidecar(v *history.Version) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	line("Generation Details for %s", v.ID)
	line("====================================")
	line("Timestamp: %s", v.CreatedAt.UTC().Format(time.RFC3339))
	line("Type: %s", v.Kind)
	if v.Prompt != "" {
		line("Prompt: %s", v.Prompt)
	}
	if v.Seed != nil {
		line("Seed: %s", strconv.FormatInt(*v.Seed, 10))
	}
	if len(v.References) > 0 {
		line("")
		line("Reference Images Used:")
		for _, r := range v.References {
			if r.Prompt != "" {
				line("- %s: %s", r.Section, r.Prompt)
			} else {
				line("- %s", r.Section)
			}
		}
	}
	return b.String()
}
