package config

import "time"

// Config is the root configuration structure for Veil. It contains all
// configuration sections for policy governance, audit recording, and
// telemetry.
type Config struct {
	// Policy contains configuration for the policy manager including the
	// approval workflow, emergency bypass, storage, and seed loading.
	Policy PolicyConfig `yaml:"policy"`

	// Audit contains configuration for audit recording and storage
	// including retention and at-rest encryption settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for the policy manager.
type PolicyConfig struct {
	// RequireApproval controls whether new and updated policies are
	// automatically submitted for approval.
	// Default: true
	RequireApproval bool `yaml:"require_approval"`

	// ApprovalWorkflow selects the approval workflow kind.
	// Options: "single" (1 approver), "dual" (2), "committee" (3)
	// Default: "dual"
	ApprovalWorkflow string `yaml:"approval_workflow"`

	// EmergencyBypass enables emergency policy activation without the
	// configured quorum. Emergency-activated policies are flagged for
	// mandatory post-hoc review.
	// Default: false
	EmergencyBypass bool `yaml:"emergency_bypass"`

	// Storage selects and configures the policy store backend.
	Storage StorageConfig `yaml:"storage"`

	// Seed configures bootstrap policy definitions loaded from disk.
	Seed SeedConfig `yaml:"seed"`
}

// SeedConfig configures bootstrap policy definitions loaded from YAML files.
type SeedConfig struct {
	// Path is a directory of YAML policy definitions imported at startup.
	// Empty disables seed loading.
	Path string `yaml:"path"`

	// Watch enables automatic re-import when seed files change.
	// Default: false
	Watch bool `yaml:"watch"`
}

// StorageConfig selects and configures a storage backend.
type StorageConfig struct {
	// Backend specifies the storage backend to use.
	// Options: "memory" (tests only), "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditConfig contains configuration for the audit recorder.
type AuditConfig struct {
	// Enabled controls whether audit recording is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Storage selects and configures the audit store backend.
	Storage StorageConfig `yaml:"storage"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`

	// Encryption configures at-rest sealing of audit operation payloads.
	Encryption EncryptionConfig `yaml:"encryption"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain audit records. Records older
	// than this are eligible for deletion.
	// 0 means keep records forever (no pruning).
	// Default: 365
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete enables archiving records before deletion.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory to store archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`

	// MaxExportSize is the maximum number of records per export.
	// Default: 1000000 (1 million)
	MaxExportSize int `yaml:"max_export_size"`
}

// EncryptionConfig configures optional at-rest encryption of the sanitized
// operation payload in audit records.
type EncryptionConfig struct {
	// Enabled turns on AES-GCM sealing of sanitized operations.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// KeyPath is the path to a file containing the hex-encoded 32-byte
	// key. Required when Enabled is true.
	KeyPath string `yaml:"key_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP listener.
	// Default: "127.0.0.1:9465"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "veil"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`
}
