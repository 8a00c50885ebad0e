// Package config provides configuration management for the studio server.
//
// Configuration is parsed from CLI flags with sensible defaults. An optional
// YAML config file supplies values for flags that were not set explicitly on
// the command line. The Config struct is passed to components during
// initialization.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Version is the application version
	Version = "0.1.0"

	// APIKeyEnv is the environment variable holding the Gemini API key.
	APIKeyEnv = "GEMINI_API_KEY"

	// Default values for CLI flags
	defaultPort     = 8080
	defaultModel    = "gemini-2.5-flash-image-preview"
	defaultTimeout  = 120
	defaultBrush    = 40
	defaultLogLevel = "info"

	// Validation constraints
	minPort    = 1024
	maxPort    = 65535
	minTimeout = 5
	maxTimeout = 600
	minBrush   = 1
	maxBrush   = 500
)

var (
	// ErrInvalidPort is returned when port is out of valid range
	ErrInvalidPort = errors.New("port must be between 1024 and 65535")
	// ErrInvalidTimeout is returned when timeout is out of valid range
	ErrInvalidTimeout = errors.New("timeout must be between 5 and 600 seconds")
	// ErrInvalidBrush is returned when the brush diameter is out of valid range
	ErrInvalidBrush = errors.New("brush diameter must be between 1 and 500 pixels")
	// ErrInvalidModel is returned when the model name is empty
	ErrInvalidModel = errors.New("model name must not be empty")
	// ErrInvalidLogLevel is returned when log level is not recognized
	ErrInvalidLogLevel = errors.New("log-level must be one of: debug, info, warn, error")
	// ErrMissingAPIKey is returned when no API key is available
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable not set")
	// ErrShowHelp is returned when --help flag is requested
	ErrShowHelp = errors.New("help requested")
	// ErrShowVersion is returned when --version flag is requested
	ErrShowVersion = errors.New("version requested")
)

// Config holds all configuration values for the studio server.
// Values are populated from an optional YAML file, then CLI flags.
type Config struct {
	// Server configuration
	Port int `yaml:"port"`

	// Generation backend configuration
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"-"`

	// Mask canvas defaults
	BrushDiameter int `yaml:"brush_diameter"`

	// Logging configuration
	LogLevel string `yaml:"log_level"`
}

// Parse parses CLI flags into a Config struct.
// It returns the parsed Config or an error if validation fails.
// If --help or --version is requested, it prints the output and returns
// ErrShowHelp or ErrShowVersion.
//
// When -config names a YAML file, its values apply to every flag the command
// line left unset. The API key is never read from the file; it comes from the
// GEMINI_API_KEY environment variable only.
func Parse(args []string, output io.Writer) (*Config, error) {
	c := &Config{}

	fs := flag.NewFlagSet("nanobanana", flag.ContinueOnError)
	fs.SetOutput(output)

	var configPath string
	var showVersion bool

	fs.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	fs.IntVar(&c.Port, "port", defaultPort, "HTTP server port")
	fs.StringVar(&c.Model, "model", defaultModel, "Gemini image model name")
	fs.IntVar(&c.TimeoutSeconds, "timeout", defaultTimeout, "Generation request timeout in seconds")
	fs.IntVar(&c.BrushDiameter, "brush", defaultBrush, "Default mask brush diameter in pixels")
	fs.StringVar(&c.LogLevel, "log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrShowHelp
		}
		return nil, err
	}

	if showVersion {
		fmt.Fprintf(output, "nanobanana %s\n", Version)
		return nil, ErrShowVersion
	}

	if configPath != "" {
		if err := applyFile(c, configPath, setFlags(fs)); err != nil {
			return nil, err
		}
	}

	c.APIKey = os.Getenv(APIKeyEnv)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// setFlags returns the names of flags that were set explicitly on the
// command line. Those keep precedence over config file values.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// applyFile loads the YAML config file at path and fills in values for flags
// that were not set on the command line.
func applyFile(c *Config, path string, explicit map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if !explicit["port"] && file.Port != 0 {
		c.Port = file.Port
	}
	if !explicit["model"] && file.Model != "" {
		c.Model = file.Model
	}
	if !explicit["timeout"] && file.TimeoutSeconds != 0 {
		c.TimeoutSeconds = file.TimeoutSeconds
	}
	if !explicit["brush"] && file.BrushDiameter != 0 {
		c.BrushDiameter = file.BrushDiameter
	}
	if !explicit["log-level"] && file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	return nil
}

// RequestTimeout returns the generation timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks all configuration values against their constraints.
func (c *Config) Validate() error {
	if c.Port < minPort || c.Port > maxPort {
		return ErrInvalidPort
	}
	if c.Model == "" {
		return ErrInvalidModel
	}
	if c.TimeoutSeconds < minTimeout || c.TimeoutSeconds > maxTimeout {
		return ErrInvalidTimeout
	}
	if c.BrushDiameter < minBrush || c.BrushDiameter > maxBrush {
		return ErrInvalidBrush
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Default returns a Config populated with default values and the API key
// from the environment. Useful for tests and embedding.
func Default() *Config {
	return &Config{
		Port:           defaultPort,
		Model:          defaultModel,
		TimeoutSeconds: defaultTimeout,
		BrushDiameter:  defaultBrush,
		LogLevel:       defaultLogLevel,
		APIKey:         os.Getenv(APIKeyEnv),
	}
}
