package config

import "time"

// Default values for configuration fields.
const (
	// Policy defaults
	DefaultRequireApproval  = true
	DefaultApprovalWorkflow = "dual"
	DefaultEmergencyBypass  = false
	DefaultPolicyBackend    = "sqlite"
	DefaultPolicySQLitePath = "data/policies.db"
	DefaultSeedWatch        = false

	// Audit defaults
	DefaultAuditEnabled            = true
	DefaultAuditBackend            = "sqlite"
	DefaultAuditSQLitePath         = "data/audit.db"
	DefaultSQLiteBusyTimeout       = 5 * time.Second
	DefaultRetentionDays           = 365
	DefaultRetentionSchedule       = "0 3 * * *"
	DefaultRetentionArchive        = false
	DefaultRetentionArchivePath    = "data/archives/"
	DefaultRetentionMaxRecords     = int64(0)
	DefaultExportJSONPretty        = true
	DefaultExportCSVHeader         = true
	DefaultExportMaxSize           = 1000000
	DefaultEncryptionEnabled       = false

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9465"
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "veil"
)

// DefaultConfig returns a Config populated with all default values.
// Loading unmarshals the YAML file over this struct, so fields absent
// from the file keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			RequireApproval:  DefaultRequireApproval,
			ApprovalWorkflow: DefaultApprovalWorkflow,
			EmergencyBypass:  DefaultEmergencyBypass,
			Storage: StorageConfig{
				Backend: DefaultPolicyBackend,
				SQLite: SQLiteConfig{
					Path:        DefaultPolicySQLitePath,
					BusyTimeout: DefaultSQLiteBusyTimeout,
				},
			},
			Seed: SeedConfig{
				Watch: DefaultSeedWatch,
			},
		},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			Storage: StorageConfig{
				Backend: DefaultAuditBackend,
				SQLite: SQLiteConfig{
					Path:        DefaultAuditSQLitePath,
					BusyTimeout: DefaultSQLiteBusyTimeout,
				},
			},
			Retention: RetentionConfig{
				Days:                DefaultRetentionDays,
				PruneSchedule:       DefaultRetentionSchedule,
				ArchiveBeforeDelete: DefaultRetentionArchive,
				ArchivePath:         DefaultRetentionArchivePath,
				MaxRecords:          DefaultRetentionMaxRecords,
			},
			Export: ExportConfig{
				JSONPretty:       DefaultExportJSONPretty,
				CSVIncludeHeader: DefaultExportCSVHeader,
				MaxExportSize:    DefaultExportMaxSize,
			},
			Encryption: EncryptionConfig{
				Enabled: DefaultEncryptionEnabled,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLoggingLevel,
				Format: DefaultLoggingFormat,
			},
			Metrics: MetricsConfig{
				Enabled:       DefaultMetricsEnabled,
				ListenAddress: DefaultMetricsListenAddress,
				Path:          DefaultPrometheusPath,
				Namespace:     DefaultMetricsNamespace,
			},
		},
	}
}

// ApplyDefaults fills zero-valued fields with defaults. It is idempotent
// and safe to call multiple times. Boolean fields are not touched; their
// defaults come from DefaultConfig.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.ApprovalWorkflow == "" {
		cfg.Policy.ApprovalWorkflow = DefaultApprovalWorkflow
	}
	if cfg.Policy.Storage.Backend == "" {
		cfg.Policy.Storage.Backend = DefaultPolicyBackend
	}
	if cfg.Policy.Storage.SQLite.Path == "" {
		cfg.Policy.Storage.SQLite.Path = DefaultPolicySQLitePath
	}
	if cfg.Policy.Storage.SQLite.BusyTimeout == 0 {
		cfg.Policy.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	if cfg.Audit.Storage.Backend == "" {
		cfg.Audit.Storage.Backend = DefaultAuditBackend
	}
	if cfg.Audit.Storage.SQLite.Path == "" {
		cfg.Audit.Storage.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.Storage.SQLite.BusyTimeout == 0 {
		cfg.Audit.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultRetentionSchedule
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultRetentionArchivePath
	}
	if cfg.Audit.Export.MaxExportSize == 0 {
		cfg.Audit.Export.MaxExportSize = DefaultExportMaxSize
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
