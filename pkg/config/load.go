package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It starts from DefaultConfig, unmarshals the file over it, applies any
// remaining defaults, and validates the result. Environment variables are
// not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VEIL_SECTION_FIELD (e.g., VEIL_POLICY_APPROVAL_WORKFLOW) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML over defaults
//  2. Apply environment variable overrides
//  3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format VEIL_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Policy overrides
	if val := os.Getenv("VEIL_POLICY_REQUIRE_APPROVAL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.RequireApproval = b
		}
	}
	if val := os.Getenv("VEIL_POLICY_APPROVAL_WORKFLOW"); val != "" {
		cfg.Policy.ApprovalWorkflow = val
	}
	if val := os.Getenv("VEIL_POLICY_EMERGENCY_BYPASS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.EmergencyBypass = b
		}
	}
	if val := os.Getenv("VEIL_POLICY_STORAGE_BACKEND"); val != "" {
		cfg.Policy.Storage.Backend = val
	}
	if val := os.Getenv("VEIL_POLICY_SQLITE_PATH"); val != "" {
		cfg.Policy.Storage.SQLite.Path = val
	}
	if val := os.Getenv("VEIL_POLICY_SEED_PATH"); val != "" {
		cfg.Policy.Seed.Path = val
	}
	if val := os.Getenv("VEIL_POLICY_SEED_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Seed.Watch = b
		}
	}

	// Audit overrides
	if val := os.Getenv("VEIL_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_AUDIT_STORAGE_BACKEND"); val != "" {
		cfg.Audit.Storage.Backend = val
	}
	if val := os.Getenv("VEIL_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.Storage.SQLite.Path = val
	}
	if val := os.Getenv("VEIL_AUDIT_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Audit.Storage.SQLite.BusyTimeout = d
		}
	}
	if val := os.Getenv("VEIL_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}
	if val := os.Getenv("VEIL_AUDIT_RETENTION_SCHEDULE"); val != "" {
		cfg.Audit.Retention.PruneSchedule = val
	}
	if val := os.Getenv("VEIL_AUDIT_ENCRYPTION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Encryption.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_AUDIT_ENCRYPTION_KEY_PATH"); val != "" {
		cfg.Audit.Encryption.KeyPath = val
	}

	// Telemetry overrides
	if val := os.Getenv("VEIL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
