package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/config"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse configuration from CLI flags
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrShowHelp) || errors.Is(err, config.ErrShowVersion) {
		// Help or version was shown, exit successfully
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintf(os.Stderr, "\nSet your Gemini API key first:\n")
			fmt.Fprintf(os.Stderr, "  export %s=your-key\n", config.APIKeyEnv)
		}
		return 1
	}

	// Create logger early
	logger := startup.CreateLogger(cfg)

	logger.Info("Starting nano banana studio...")
	logger.Debug("Configuration: port=%d, model=%s, timeout=%ds, brush=%d",
		cfg.Port, cfg.Model, cfg.TimeoutSeconds, cfg.BrushDiameter)
	logger.Debug("Log level: %s", cfg.LogLevel)

	ctx := context.Background()

	components, err := startup.InitializeAll(ctx, cfg, logger)
	if err != nil {
		logger.Error("Initialization failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger.Info("Listening on http://localhost:%d", cfg.Port)

	if err := startup.Run(ctx, components.WebServer, logger); err != nil {
		logger.Error("Server error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
