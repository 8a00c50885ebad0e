package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setKey(t *testing.T) {
	t.Helper()
	t.Setenv(APIKeyEnv, "test-key")
}

func TestParseDefaults(t *testing.T) {
	setKey(t)
	var out bytes.Buffer

	cfg, err := Parse(nil, &out)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	if cfg.Port != defaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, defaultPort)
	}
	if cfg.Model != defaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, defaultModel)
	}
	if cfg.TimeoutSeconds != defaultTimeout {
		t.Errorf("TimeoutSeconds = %d, want %d", cfg.TimeoutSeconds, defaultTimeout)
	}
	if cfg.BrushDiameter != defaultBrush {
		t.Errorf("BrushDiameter = %d, want %d", cfg.BrushDiameter, defaultBrush)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want value from environment", cfg.APIKey)
	}
}

func TestParseFlags(t *testing.T) {
	setKey(t)
	var out bytes.Buffer

	cfg, err := Parse([]string{"-port", "9000", "-model", "custom-model", "-timeout", "30", "-brush", "12", "-log-level", "debug"}, &out)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	if cfg.Port != 9000 || cfg.Model != "custom-model" || cfg.TimeoutSeconds != 30 || cfg.BrushDiameter != 12 || cfg.LogLevel != "debug" {
		t.Errorf("Parse() = %+v", cfg)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"port too low", []string{"-port", "80"}, ErrInvalidPort},
		{"port too high", []string{"-port", "70000"}, ErrInvalidPort},
		{"timeout too low", []string{"-timeout", "1"}, ErrInvalidTimeout},
		{"timeout too high", []string{"-timeout", "1000"}, ErrInvalidTimeout},
		{"brush zero", []string{"-brush", "0"}, ErrInvalidBrush},
		{"brush huge", []string{"-brush", "1000"}, ErrInvalidBrush},
		{"empty model", []string{"-model", ""}, ErrInvalidModel},
		{"bad log level", []string{"-log-level", "verbose"}, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setKey(t)
			var out bytes.Buffer
			_, err := Parse(tt.args, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%v) = %v, want %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestParseMissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	var out bytes.Buffer

	_, err := Parse(nil, &out)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Parse() = %v, want ErrMissingAPIKey", err)
	}
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := Parse([]string{"-h"}, &out)
	if !errors.Is(err, ErrShowHelp) {
		t.Errorf("Parse(-h) = %v, want ErrShowHelp", err)
	}
	if out.Len() == 0 {
		t.Error("no usage output for -h")
	}
}

func TestParseVersion(t *testing.T) {
	var out bytes.Buffer
	_, err := Parse([]string{"-version"}, &out)
	if !errors.Is(err, ErrShowVersion) {
		t.Errorf("Parse(-version) = %v, want ErrShowVersion", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(Version)) {
		t.Errorf("version output %q missing %q", out.String(), Version)
	}
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	setKey(t)
	path := filepath.Join(t.TempDir(), "studio.yaml")
	content := "port: 9100\nmodel: file-model\nlog_level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	var out bytes.Buffer
	cfg, err := Parse([]string{"-config", path, "-port", "9200"}, &out)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	// Explicit flag wins over the file
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want explicit 9200", cfg.Port)
	}
	// File values apply where no flag was given
	if cfg.Model != "file-model" {
		t.Errorf("Model = %q, want file-model", cfg.Model)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	// File silent, flag unset: default stands
	if cfg.BrushDiameter != defaultBrush {
		t.Errorf("BrushDiameter = %d, want default", cfg.BrushDiameter)
	}
}

func TestConfigFileMissing(t *testing.T) {
	setKey(t)
	var out bytes.Buffer
	if _, err := Parse([]string{"-config", "/does/not/exist.yaml"}, &out); err == nil {
		t.Error("Parse() = nil error for missing config file")
	}
}

func TestRequestTimeout(t *testing.T) {
	cfg := &Config{TimeoutSeconds: 30}
	if got := cfg.RequestTimeout().Seconds(); got != 30 {
		t.Errorf("RequestTimeout() = %vs, want 30s", got)
	}
}
