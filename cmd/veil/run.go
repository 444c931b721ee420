package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/crypto"
	"caduceus-hq/veil/pkg/audit/recorder"
	"caduceus-hq/veil/pkg/audit/retention"
	astorage "caduceus-hq/veil/pkg/audit/storage"
	"caduceus-hq/veil/pkg/cli"
	"caduceus-hq/veil/pkg/config"
	"caduceus-hq/veil/pkg/policy"
	"caduceus-hq/veil/pkg/policy/manager"
	pstorage "caduceus-hq/veil/pkg/policy/storage"
	"caduceus-hq/veil/pkg/telemetry/logging"
	"caduceus-hq/veil/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Veil governance service",
	Long: `Start the Veil governance service with the specified configuration.

The service warms the policy registry from durable storage, imports seed
policy definitions, watches the seed directory for changes, runs the
audit retention scheduler, and exposes a Prometheus metrics endpoint.

Examples:
  # Start with default config
  veil run

  # Start with custom config
  veil run --config /etc/veil/config.yaml

  # Validate config without starting the service
  veil run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runService(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(&cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Veil v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics endpoint
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if cfg.Telemetry.Metrics.Enabled {
		go func() {
			if err := collector.Serve(); err != nil {
				slog.Error("metrics listener failed", "error", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n",
			cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	// Policy manager
	slog.Info("initializing policy manager",
		"backend", cfg.Policy.Storage.Backend,
		"workflow", cfg.Policy.ApprovalWorkflow,
	)
	store, err := openPolicyStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()

	mgr, err := manager.NewManager(&cfg.Policy, store, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	mgr.SetMetrics(collector.Policy())

	if err := mgr.Load(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Printf("✓ Policy manager ready (%d policies, %d pending approvals)\n",
		len(mgr.AllPolicies()), len(mgr.PendingRequests()))

	// Seed policies
	if cfg.Policy.Seed.Path != "" {
		loader := manager.NewSeedLoader(cfg.Policy.Seed.Path, logger)
		reload := func() error {
			definitions, err := loader.LoadDirectory()
			if err != nil {
				return err
			}
			_, err = mgr.ImportSeeds(ctx, definitions, "system")
			return err
		}

		definitions, err := loader.LoadDirectory()
		if err != nil {
			slog.Warn("seed directory not loaded", "path", cfg.Policy.Seed.Path, "error", err)
		} else {
			created, err := mgr.ImportSeeds(ctx, definitions, "system")
			if err != nil {
				slog.Warn("seed import incomplete", "error", err)
			}
			fmt.Printf("✓ Seed policies imported (%d new)\n", created)
		}

		if cfg.Policy.Seed.Watch {
			watcher, err := manager.NewFileWatcher(cfg.Policy.Seed.Path, logger)
			if err != nil {
				slog.Warn("seed watcher not started", "error", err)
			} else {
				defer watcher.Stop()
				go func() {
					if err := watcher.Watch(ctx, reload); err != nil {
						slog.Error("seed watcher stopped", "error", err)
					}
				}()
				fmt.Println("✓ Seed directory watch enabled")
			}
		}
	}

	// Audit subsystem
	if cfg.Audit.Enabled {
		slog.Info("initializing audit recording", "backend", cfg.Audit.Storage.Backend)

		auditStore, err := openAuditStore(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer auditStore.Close()

		auditRecorder := recorder.NewRecorder(auditStore, nil)
		auditRecorder.SetMetrics(collector.Audit())

		if cfg.Audit.Encryption.Enabled {
			sealer, err := crypto.NewSealerFromKeyFile(cfg.Audit.Encryption.KeyPath)
			if err != nil {
				return cli.NewConfigError("audit.encryption.key_path", err.Error())
			}
			auditRecorder.SetSealer(sealer)
			fmt.Println("✓ Audit at-rest sealing enabled")
		}

		// Start retention pruner if a schedule is configured
		if cfg.Audit.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(auditStore, &retention.Config{
				RetentionDays:       cfg.Audit.Retention.Days,
				PruneSchedule:       cfg.Audit.Retention.PruneSchedule,
				ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Audit.Retention.ArchivePath,
				MaxRecords:          cfg.Audit.Retention.MaxRecords,
			})
			pruner.SetMetrics(collector.Audit())
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Audit store initialized")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sig := <-cli.WaitForShutdown()
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	cancel()

	fmt.Println("✓ Stopped")
	return nil
}

// openPolicyStore creates the policy store selected by the configuration.
func openPolicyStore(cfg *config.Config) (policy.Store, error) {
	switch cfg.Policy.Storage.Backend {
	case "sqlite":
		storeConfig := pstorage.DefaultSQLiteConfig()
		if cfg.Policy.Storage.SQLite.Path != "" {
			storeConfig.Path = cfg.Policy.Storage.SQLite.Path
		}
		if cfg.Policy.Storage.SQLite.BusyTimeout > 0 {
			storeConfig.BusyTimeout = cfg.Policy.Storage.SQLite.BusyTimeout
		}
		return pstorage.NewSQLiteStore(storeConfig)
	case "memory":
		return pstorage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported policy storage backend: %s (supported: sqlite, memory)", cfg.Policy.Storage.Backend)
	}
}

// openAuditStore creates the audit store selected by the configuration.
func openAuditStore(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Storage.Backend {
	case "sqlite":
		storeConfig := astorage.DefaultSQLiteConfig()
		if cfg.Audit.Storage.SQLite.Path != "" {
			storeConfig.Path = cfg.Audit.Storage.SQLite.Path
		}
		if cfg.Audit.Storage.SQLite.BusyTimeout > 0 {
			storeConfig.BusyTimeout = cfg.Audit.Storage.SQLite.BusyTimeout
		}
		return astorage.NewSQLiteStorage(storeConfig)
	case "memory":
		return astorage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported audit storage backend: %s (supported: sqlite, memory)", cfg.Audit.Storage.Backend)
	}
}
