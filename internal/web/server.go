// Package web exposes the studio over HTTP. Every request carries a
// session cookie; each session owns an independent Studio, so two browser
// tabs with different cookies never see each other's images.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/export"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
)

//go:embed static/*
var embeddedFS embed.FS

const (
	// DefaultAddr is the default address the server listens on.
	DefaultAddr = "localhost:8080"

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 60 * time.Second

	// WriteTimeout is the maximum duration before timing out writes. It
	// must cover a full backend generation round trip.
	WriteTimeout = 300 * time.Second

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout = 120 * time.Second

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxJSONBodySize is the maximum size of JSON request bodies (1MB).
	MaxJSONBodySize = 1 * 1024 * 1024

	// MaxUploadSize is the maximum size of multipart image uploads (32MB).
	MaxUploadSize = 32 * 1024 * 1024
)

// Server provides the HTTP surface over per-session studios.
type Server struct {
	addr     string
	server   *http.Server
	sessions *SessionManager
	archiver *export.Archiver
	log      *logging.Logger
}

// NewServer creates a Server listening on addr. If addr is empty,
// DefaultAddr is used. factory builds the Studio backing each new session.
func NewServer(addr string, factory StudioFactory, log *logging.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:     addr,
		sessions: NewSessionManager(factory, log),
		archiver: export.NewArchiver(log),
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)
	s.registerRoutes(r)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	return s
}

// Sessions returns the session manager, for tests and shutdown hooks.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the root handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.FileServer(http.FS(embeddedFS)))

	r.Route("/api", func(r chi.Router) {
		// Tool submissions
		r.Post("/generate", s.handleGenerate)
		r.Post("/edit", s.handleEdit)
		r.Post("/enhance", s.handleEnhance)
		r.Post("/background", s.handleBackground)
		r.Post("/outpaint", s.handleOutpaint)
		r.Post("/upload", s.handleUpload)

		// Session state
		r.Get("/state", s.handleState)
		r.Get("/status", s.handleStatus)
		r.Put("/seed/lock", s.handleSeedLock)

		// Reference sections
		r.Get("/references", s.handleListReferences)
		r.Put("/references/{section}", s.handleSetReference)
		r.Delete("/references/{section}", s.handleClearReference)

		// Mask layer
		r.Get("/mask", s.handleMaskPNG)
		r.Get("/mask/overlay", s.handleMaskOverlay)
		r.Post("/mask/stroke", s.handleMaskStroke)
		r.Post("/mask/undo", s.handleMaskUndo)
		r.Post("/mask/redo", s.handleMaskRedo)
		r.Post("/mask/clear", s.handleMaskClear)
		r.Put("/mask/brush", s.handleMaskBrush)
		r.Put("/mask/display", s.handleMaskDisplay)

		// Viewport
		r.Post("/view/pan", s.handleViewPan)
		r.Post("/view/zoom", s.handleViewZoom)
		r.Post("/view/reset", s.handleViewReset)

		// Version history
		r.Get("/history", s.handleHistory)
		r.Post("/history/undo", s.handleHistoryUndo)
		r.Post("/history/redo", s.handleHistoryRedo)
		r.Post("/history/jump", s.handleHistoryJump)
		r.Post("/history/clear", s.handleHistoryClear)

		// Gallery
		r.Get("/images", s.handleListImages)
		r.Delete("/images", s.handleDeleteImages)

		// Export
		r.Get("/export", s.handleExport)
	})

	// Raw image serving
	r.Get("/images/{id}", s.handleImage)
	r.Get("/images/{id}/thumbnail", s.handleThumbnail)
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled. Returns an error if the server fails to start or encounters a
// non-graceful shutdown error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("starting web server on http://%s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.sessions.Shutdown()
		s.log.Info("web server stopped")
		return nil

	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// handleIndex serves the index page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := embeddedFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
