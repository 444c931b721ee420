package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"caduceus-hq/veil/pkg/config"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("policy approved", "policy", "ChestCT", "version", "1.0")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["policy"] != "ChestCT" {
		t.Errorf("policy field = %v, want ChestCT", entry["policy"])
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("not emitted")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "not emitted") {
		t.Error("info entry emitted at warn level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("warn entry missing")
	}
}

func TestSetup_InvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"bad level", config.LoggingConfig{Level: "verbose", Format: "json"}},
		{"bad format", config.LoggingConfig{Level: "info", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Setup(&tt.cfg, &bytes.Buffer{}); err == nil {
				t.Error("Setup() error = nil, want error")
			}
		})
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger, err := Setup(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if slog.Default() != logger {
		t.Error("Setup() did not install the logger as default")
	}
}
