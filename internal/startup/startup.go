// Package startup wires the application components together and owns the
// process lifecycle: initialization order, signal handling and shutdown.
package startup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/config"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/logging"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/studio"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/web"
)

// Components holds all initialized application components.
type Components struct {
	GeminiClient *gemini.Client
	WebServer    *web.Server
	Logger       *logging.Logger
}

// CreateLogger creates a logger with the configured log level.
func CreateLogger(cfg *config.Config) *logging.Logger {
	return logging.NewFromString(cfg.LogLevel, nil)
}

// CreateGeminiClient creates the generation backend client from the
// configured API key, model and timeout. It does not validate the key
// against the API; a bad key surfaces on the first generation request.
func CreateGeminiClient(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*gemini.Client, error) {
	client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.RequestTimeout(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// CreateWebServer creates the HTTP server with a studio factory that gives
// each session its own independent state.
func CreateWebServer(cfg *config.Config, backend gemini.Generator, logger *logging.Logger) *web.Server {
	addr := fmt.Sprintf("localhost:%d", cfg.Port)
	factory := func() *studio.Studio {
		return studio.New(backend, cfg.BrushDiameter, logger)
	}
	return web.NewServer(addr, factory, logger)
}

// InitializeAll creates and wires all application components.
func InitializeAll(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Components, error) {
	logger.Debug("Initializing components")

	client, err := CreateGeminiClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Created gemini client: model=%s, timeout=%s", cfg.Model, cfg.RequestTimeout())

	server := CreateWebServer(cfg, client, logger)
	logger.Debug("Created web server")

	return &Components{
		GeminiClient: client,
		WebServer:    server,
		Logger:       logger,
	}, nil
}

// Run starts the web server and blocks until a shutdown signal is received.
// It handles SIGTERM and SIGINT signals for graceful shutdown.
// Returns nil on clean shutdown, error otherwise.
func Run(ctx context.Context, server *web.Server, logger *logging.Logger) error {
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(shutdownCtx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
