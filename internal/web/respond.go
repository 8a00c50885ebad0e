package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/export"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/studio"
)

// versionJSON is the wire shape of an image version. Pixel data is served
// separately from /images/{id}.
type versionJSON struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Prompt       string    `json:"prompt"`
	Seed         *int64    `json:"seed,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
}

func versionToJSON(v *history.Version) *versionJSON {
	if v == nil {
		return nil
	}
	return &versionJSON{
		ID:           v.ID,
		Kind:         string(v.Kind),
		Prompt:       v.Prompt,
		Seed:         v.Seed,
		CreatedAt:    v.CreatedAt,
		URL:          "/images/" + v.ID,
		ThumbnailURL: "/images/" + v.ID + "/thumbnail",
	}
}

func versionsToJSON(vs []*history.Version) []*versionJSON {
	out := make([]*versionJSON, 0, len(vs))
	for _, v := range vs {
		out = append(out, versionToJSON(v))
	}
	return out
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the wire shape of all error responses.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps an error to its HTTP status and writes the JSON body.
// Validation failures are the caller's fault; backend failures are not.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case studio.IsValidationError(err), errors.Is(err, studio.ErrBadImage),
		errors.Is(err, export.ErrNoImages):
		status = http.StatusBadRequest
	case errors.Is(err, studio.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, studio.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gemini.ErrBlocked), errors.Is(err, gemini.ErrNoImage),
		errors.Is(err, gemini.ErrRequestFailed):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.log.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decodeJSON parses a JSON request body into dst, enforcing the body size
// limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
