package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/export"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/mask"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/render"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/studio"
)

var errBadBody = errors.New("invalid request body")

// sessionStudio resolves the Studio for the request's session.
func (s *Server) sessionStudio(r *http.Request) *studio.Studio {
	return s.sessions.GetOrCreate(GetSessionID(r.Context()))
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// toolResponse is the success body for all tool submissions.
type toolResponse struct {
	Image *versionJSON `json:"image"`
}

// handleGenerate creates a fresh image.
// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negativePrompt"`
		Seed           *int64 `json:"seed"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}

	v, err := s.sessionStudio(r).Generate(r.Context(), studio.GenerateParams{
		Prompt:         body.Prompt,
		NegativePrompt: body.NegativePrompt,
		Seed:           body.Seed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// handleEdit applies an instruction to the active image.
// POST /api/edit
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instruction string `json:"instruction"`
		Global      bool   `json:"global"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}

	v, err := s.sessionStudio(r).Edit(r.Context(), studio.EditParams{
		Instruction: body.Instruction,
		Global:      body.Global,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// handleEnhance upscales or refines the active image.
// POST /api/enhance
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Variant string `json:"variant"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}

	v, err := s.sessionStudio(r).Enhance(r.Context(), gemini.EnhanceVariant(body.Variant))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// handleBackground replaces the active image's background. Accepts JSON
// with a prompt, or multipart form data with an image file under "image"
// and an optional "prompt" field.
// POST /api/background
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	params := studio.BackgroundParams{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			s.badRequest(w, "invalid multipart form")
			return
		}
		params.Prompt = r.FormValue("prompt")
		data, mime, err := readFormFile(r, "image")
		if err == nil {
			params.Image = data
			params.ImageMime = mime
		}
	} else {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			s.badRequest(w, errBadBody.Error())
			return
		}
		params.Prompt = body.Prompt
	}

	v, err := s.sessionStudio(r).ReplaceBackground(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// handleOutpaint expands the active image's canvas.
// POST /api/outpaint
func (s *Server) handleOutpaint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Directions   []string `json:"directions"`
		Prompt       string   `json:"prompt"`
		AspectRatio  string   `json:"aspectRatio"`
		CustomWidth  int      `json:"customWidth"`
		CustomHeight int      `json:"customHeight"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}

	dirs := make([]gemini.Direction, 0, len(body.Directions))
	for _, d := range body.Directions {
		dirs = append(dirs, gemini.Direction(d))
	}

	v, err := s.sessionStudio(r).Outpaint(r.Context(), studio.OutpaintParams{
		Directions: dirs,
		Prompt:     body.Prompt,
		Sizing: gemini.Sizing{
			AspectRatio:  body.AspectRatio,
			CustomWidth:  body.CustomWidth,
			CustomHeight: body.CustomHeight,
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// handleUpload brings a user image in as the active image.
// POST /api/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		s.badRequest(w, "invalid multipart form")
		return
	}
	data, _, err := readFormFile(r, "image")
	if err != nil {
		s.badRequest(w, "image file required")
		return
	}

	v, err := s.sessionStudio(r).Upload(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Image: versionToJSON(v)})
}

// stateResponse describes the full session state for UI hydration.
type stateResponse struct {
	Active     *versionJSON     `json:"active"`
	History    historyResponse  `json:"history"`
	Mask       studio.MaskState `json:"mask"`
	View       mask.Viewport    `json:"view"`
	Seed       *int64           `json:"seed"`
	SeedLocked bool             `json:"seedLocked"`
	Busy       bool             `json:"busy"`
	Message    string           `json:"message,omitempty"`
}

// handleState reports everything the UI needs after a reload.
// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	seed, locked := st.Seed()
	busy, message := st.Status()
	writeJSON(w, http.StatusOK, stateResponse{
		Active:     versionToJSON(st.Active()),
		History:    historyToJSON(st.History()),
		Mask:       st.Mask(),
		View:       st.View(),
		Seed:       seed,
		SeedLocked: locked,
		Busy:       busy,
		Message:    message,
	})
}

// handleStatus reports the in-flight flag and the rotating status line.
// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	busy, message := s.sessionStudio(r).Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"busy":    busy,
		"message": message,
	})
}

// handleSeedLock toggles seed reuse.
// PUT /api/seed/lock
func (s *Server) handleSeedLock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Locked bool `json:"locked"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	s.sessionStudio(r).LockSeed(body.Locked)
	writeJSON(w, http.StatusOK, map[string]bool{"locked": body.Locked})
}

// referenceJSON describes one reference section and its populated state.
type referenceJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt,omitempty"`
	HasImage    bool   `json:"hasImage"`
}

// handleListReferences lists all sections with their populated content.
// GET /api/references
func (s *Server) handleListReferences(w http.ResponseWriter, r *http.Request) {
	refs := s.sessionStudio(r).References()
	out := make([]referenceJSON, 0, len(studio.Sections))
	for _, info := range studio.Sections {
		item := referenceJSON{
			Name:        string(info.Name),
			Description: info.Description,
		}
		if ref, ok := refs[info.Name]; ok {
			item.Prompt = ref.Prompt
			item.HasImage = len(ref.Image) > 0
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetReference populates a reference section. Multipart bodies carry
// an image under "image" and an optional "prompt" field; JSON bodies set
// the prompt only.
// PUT /api/references/{section}
func (s *Server) handleSetReference(w http.ResponseWriter, r *http.Request) {
	section, err := pathSection(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	st := s.sessionStudio(r)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			s.badRequest(w, "invalid multipart form")
			return
		}
		data, mime, err := readFormFile(r, "image")
		if err != nil {
			s.badRequest(w, "image file required")
			return
		}
		if err := st.SetReferenceImage(section, data, mime); err != nil {
			s.writeError(w, r, err)
			return
		}
		if prompt := r.FormValue("prompt"); prompt != "" {
			_ = st.SetReferencePrompt(section, prompt)
		}
	} else {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			s.badRequest(w, errBadBody.Error())
			return
		}
		if err := st.SetReferencePrompt(section, body.Prompt); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"section": string(section)})
}

// handleClearReference empties a reference section.
// DELETE /api/references/{section}
func (s *Server) handleClearReference(w http.ResponseWriter, r *http.Request) {
	section, err := pathSection(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.sessionStudio(r).ClearReference(section); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"section": string(section)})
}

// pathSection decodes the {section} path parameter. Section names contain
// spaces, so the value arrives URL-encoded.
func pathSection(r *http.Request) (studio.Section, error) {
	raw := chi.URLParam(r, "section")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", studio.ErrInvalidSection
	}
	section := studio.Section(name)
	if !section.Valid() {
		return "", studio.ErrInvalidSection
	}
	return section, nil
}

// handleMaskPNG serves the raw mask raster.
// GET /api/mask
func (s *Server) handleMaskPNG(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessionStudio(r).MaskPNG()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

// handleMaskOverlay serves the active image with the mask composited as a
// translucent tint.
// GET /api/mask/overlay
func (s *Server) handleMaskOverlay(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	active := st.Active()
	raster := st.MaskRaster()
	if active == nil || raster == nil {
		s.writeError(w, r, studio.ErrNoActiveImage)
		return
	}
	data, err := render.OverlayMask(active.PNG, raster)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

// handleMaskStroke applies one complete brush stroke.
// POST /api/mask/stroke
func (s *Server) handleMaskStroke(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points []mask.Point `json:"points"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	st := s.sessionStudio(r)
	if err := st.PaintStroke(body.Points); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Mask())
}

// handleMaskUndo reverts the last stroke or clear.
// POST /api/mask/undo
func (s *Server) handleMaskUndo(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.UndoMask()
	writeJSON(w, http.StatusOK, st.Mask())
}

// handleMaskRedo re-applies the last undone stroke.
// POST /api/mask/redo
func (s *Server) handleMaskRedo(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.RedoMask()
	writeJSON(w, http.StatusOK, st.Mask())
}

// handleMaskClear wipes the mask.
// POST /api/mask/clear
func (s *Server) handleMaskClear(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	if err := st.ClearMask(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Mask())
}

// handleMaskBrush sets the brush diameter.
// PUT /api/mask/brush
func (s *Server) handleMaskBrush(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Diameter int `json:"diameter"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	st := s.sessionStudio(r)
	st.SetBrushDiameter(body.Diameter)
	writeJSON(w, http.StatusOK, st.Mask())
}

// handleMaskDisplay records the on-screen size of the image element.
// PUT /api/mask/display
func (s *Server) handleMaskDisplay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	s.sessionStudio(r).SetDisplaySize(body.Width, body.Height)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleViewPan translates the viewport.
// POST /api/view/pan
func (s *Server) handleViewPan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	st := s.sessionStudio(r)
	st.Pan(body.DX, body.DY)
	writeJSON(w, http.StatusOK, st.View())
}

// handleViewZoom scales the viewport around an anchor point.
// POST /api/view/zoom
func (s *Server) handleViewZoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta   float64 `json:"delta"`
		AnchorX float64 `json:"anchorX"`
		AnchorY float64 `json:"anchorY"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	st := s.sessionStudio(r)
	st.Zoom(body.Delta, body.AnchorX, body.AnchorY)
	writeJSON(w, http.StatusOK, st.View())
}

// handleViewReset restores the identity viewport.
// POST /api/view/reset
func (s *Server) handleViewReset(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.ResetView()
	writeJSON(w, http.StatusOK, st.View())
}

// historyResponse is the wire shape of the timeline.
type historyResponse struct {
	Entries  []*versionJSON `json:"entries"`
	Playhead int            `json:"playhead"`
	CanUndo  bool           `json:"canUndo"`
	CanRedo  bool           `json:"canRedo"`
}

func historyToJSON(h studio.HistoryState) historyResponse {
	return historyResponse{
		Entries:  versionsToJSON(h.Entries),
		Playhead: h.Playhead,
		CanUndo:  h.CanUndo,
		CanRedo:  h.CanRedo,
	}
}

// handleHistory reports the timeline.
// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyToJSON(s.sessionStudio(r).History()))
}

// handleHistoryUndo steps the playhead back.
// POST /api/history/undo
func (s *Server) handleHistoryUndo(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.Undo()
	writeJSON(w, http.StatusOK, historyToJSON(st.History()))
}

// handleHistoryRedo steps the playhead forward.
// POST /api/history/redo
func (s *Server) handleHistoryRedo(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.Redo()
	writeJSON(w, http.StatusOK, historyToJSON(st.History()))
}

// handleHistoryJump re-points the playhead at a gallery image.
// POST /api/history/jump
func (s *Server) handleHistoryJump(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	st := s.sessionStudio(r)
	if err := st.JumpTo(body.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyToJSON(st.History()))
}

// handleHistoryClear resets the timeline and active image.
// POST /api/history/clear
func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	st := s.sessionStudio(r)
	st.ClearCanvas()
	writeJSON(w, http.StatusOK, historyToJSON(st.History()))
}

// handleListImages lists the gallery, optionally filtered by kind.
// GET /api/images?kind=GENERATED
func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	kind := history.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		s.badRequest(w, "unknown image kind")
		return
	}
	writeJSON(w, http.StatusOK, versionsToJSON(s.sessionStudio(r).Gallery(kind)))
}

// handleDeleteImages removes gallery images.
// DELETE /api/images
func (s *Server) handleDeleteImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.badRequest(w, errBadBody.Error())
		return
	}
	removed := s.sessionStudio(r).DeleteImages(body.IDs)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleImage serves a gallery image by ID.
// GET /images/{id}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "id"), ".png")
	v, err := s.sessionStudio(r).Image(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(v.PNG)
}

// handleThumbnail serves a scaled-down gallery image.
// GET /images/{id}/thumbnail
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	v, err := s.sessionStudio(r).Image(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := render.Thumbnail(v.PNG, render.DefaultThumbnailSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

// handleExport streams a zip archive of the session's images. mode selects
// the layout; ids narrows the set to a comma-separated list of gallery IDs.
// GET /api/export?mode=session&ids=a,b
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mode := export.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = export.ModeSession
	}
	if mode != export.ModeSession && mode != export.ModeImages {
		s.badRequest(w, "unknown export mode")
		return
	}

	st := s.sessionStudio(r)
	var versions []*history.Version
	if raw := r.URL.Query().Get("ids"); raw != "" {
		versions = st.SelectImages(strings.Split(raw, ","))
	} else {
		versions = st.Gallery("")
	}
	if len(versions) == 0 {
		s.writeError(w, r, export.ErrNoImages)
		return
	}

	name := export.ArchiveName(mode, timeNow())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	var err error
	if mode == export.ModeImages {
		err = s.archiver.WriteImages(w, versions)
	} else {
		err = s.archiver.WriteSession(w, versions)
	}
	if err != nil {
		// Headers are already out; all we can do is log.
		s.log.Error("writing %s archive: %v", mode, err)
	}
}

// readFormFile reads a multipart file field fully into memory.
func readFormFile(r *http.Request, field string) (data []byte, mime string, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

// timeNow is stubbed in tests.
var timeNow = time.Now
