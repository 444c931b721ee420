package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/export"
	"caduceus-hq/veil/pkg/telemetry/metrics"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain audit records.
	// 0 means keep records forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving records before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory to store archived records.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       365,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
		MaxRecords:          0,
	}
}

// Pruner enforces retention policies on audit records.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	metrics   *metrics.AuditMetrics
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// SetMetrics attaches Prometheus instrumentation.
func (p *Pruner) SetMetrics(m *metrics.AuditMetrics) {
	p.metrics = m
}

// Prune deletes audit records older than the retention period or
// exceeding the max record count.
//
// Pruning happens in two phases:
//  1. Age-based: delete records older than RetentionDays
//  2. Count-based: if total records > MaxRecords, delete oldest
//
// Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("Pruned audit records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("Pruned audit records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if p.metrics != nil && totalDeleted > 0 {
		p.metrics.RecordPruned(totalDeleted)
	}

	return totalDeleted, nil
}

// pruneByAge deletes records older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveBefore(ctx, cutoff, "age"); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}

	return deleted, nil
}

// pruneByCount deletes the oldest records when the total exceeds
// MaxRecords. The cutoff is located with a single boundary query so the
// backlog size never hits a query limit.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		return 0, nil
	}
	excess := count - p.config.MaxRecords

	// The newest record outside the cap marks the cutoff.
	boundary, err := p.storage.Query(ctx, &audit.Query{
		Limit:     1,
		Offset:    int(excess - 1),
		SortBy:    "timestamp",
		SortOrder: "asc",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to locate prune cutoff: %w", err)
	}
	if len(boundary) == 0 {
		return 0, nil
	}
	cutoff := boundary[0].Timestamp

	// Deleting by timestamp takes every record at the cutoff along with
	// it, so the archive must use the same bound.
	if p.config.ArchiveBeforeDelete {
		if err := p.archiveBefore(ctx, cutoff, "count"); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	return deleted, nil
}

// archiveBefore streams every record at or before the cutoff into a
// timestamped JSON file. Nothing may be deleted that was not written
// here first.
func (p *Pruner) archiveBefore(ctx context.Context, cutoff time.Time, reason string) error {
	q := &audit.Query{
		EndTime:   &cutoff,
		Limit:     audit.UnlimitedLimit,
		SortBy:    "timestamp",
		SortOrder: "asc",
	}

	count, err := p.storage.Count(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to count records for archiving: %w", err)
	}
	if count == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("audit-%s-%s.json", reason, time.Now().Format("2006-01-02-150405")))
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	recordsCh, errCh, err := p.storage.QueryStream(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to query records for archiving: %w", err)
	}

	exporter := export.NewJSONExporter(true)
	if err := exporter.ExportStream(ctx, recordsCh, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("failed to read records for archiving: %w", err)
	}

	p.logger.Info("Audit records archived",
		"archive_file", archiveFile,
		"record_count", count,
	)

	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
