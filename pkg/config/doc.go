// Package config provides configuration management for Veil.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VEIL_SECTION_FIELD.
// For example:
//
//   - VEIL_POLICY_APPROVAL_WORKFLOW overrides policy.approval_workflow
//   - VEIL_AUDIT_STORAGE_BACKEND overrides audit.storage.backend
//   - VEIL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All configuration is validated automatically during loading. Unknown
// approval workflow kinds and unknown storage backends are rejected at load
// time, never at first use. Validation errors include field paths:
//
//	configuration validation failed with 2 errors:
//	  - policy.approval_workflow: unknown workflow "triple"
//	  - audit.storage.backend: unknown backend "postgres"
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	policy:
//	  approval_workflow: "dual"
//	  storage:
//	    backend: "sqlite"
//	    sqlite:
//	      path: "data/policies.db"
//
//	audit:
//	  enabled: true
//	  storage:
//	    backend: "sqlite"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
