package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/crypto"
	"caduceus-hq/veil/pkg/audit/export"
	"caduceus-hq/veil/pkg/audit/recorder"
	"caduceus-hq/veil/pkg/audit/retention"
	"caduceus-hq/veil/pkg/cli"
	"caduceus-hq/veil/pkg/config"
)

var auditFlags struct {
	timeRange  string
	actor      string
	source     string
	policy     string
	hipaa      string
	gdpr       string
	validation string
	limit      int
	offset     int
	format     string
	output     string
	recordID   string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and manage the audit trail",
	Long: `Query, export and verify the anonymization audit trail.

Audit records never contain raw PHI; tag values are reduced to a
presence flag, a length and a SHA-256 hash before they touch storage.

Subcommands:
  query  - Query audit records with filters
  export - Export audit records to JSON or CSV
  report - Generate a compliance report for a date range
  verify - Verify record integrity hashes
  prune  - Apply the retention policy once, immediately
  keygen - Generate an at-rest sealing key

Examples:
  # Records for one actor in August
  veil audit query --actor dr.adams \
      --time-range "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"

  # Monthly compliance report
  veil audit report --time-range "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters.

Time Range Format:
  RFC3339 interval: "start/end"
  Example: "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"

Examples:
  # Non-compliant records for a policy
  veil audit query --policy ChestCT --hipaa false

  # JSON output to a file
  veil audit query --format json --output records.json`,
	RunE: queryAudit,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records to JSON or CSV",
	Long: `Export audit records matching the filters to JSON or CSV.

Examples:
  # Everything from August as CSV
  veil audit export --format csv --output august.csv \
      --time-range "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"`,
	RunE: exportAudit,
}

var auditReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a compliance report for a date range",
	Long: `Generate a compliance report for a date range.

The report tallies successful and failed operations, HIPAA and GDPR
compliance percentages, high-risk records, and emits plain-language
recommendations.`,
	RunE: reportAudit,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify record integrity hashes",
	Long: `Verify the integrity hash of stored audit records.

Each record's hash is recomputed from its own summary fields and
compared with the stored value. A mismatch signals tampering or
corruption; mismatches are reported, never fatal.

Examples:
  # Verify one record
  veil audit verify --record-id 7f3a1c...

  # Verify a time range
  veil audit verify --time-range "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"`,
	RunE: verifyAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy once, immediately",
	Long: `Apply the configured retention policy once, immediately.

Deletes records older than the retention window and, when a maximum
record count is configured, the oldest records beyond it. Records are
archived first when archiving is enabled.`,
	RunE: pruneAudit,
}

var auditKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an at-rest sealing key",
	Long: `Generate a hex-encoded 256-bit key for at-rest sealing of audit
operation payloads.

Examples:
  veil audit keygen --output /etc/veil/audit.key`,
	RunE: generateSealingKey,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(
		auditQueryCmd, auditExportCmd, auditReportCmd,
		auditVerifyCmd, auditPruneCmd, auditKeygenCmd,
	)

	for _, c := range []*cobra.Command{auditQueryCmd, auditExportCmd, auditVerifyCmd} {
		c.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&auditFlags.actor, "actor", "", "filter by actor")
		c.Flags().StringVar(&auditFlags.source, "source", "", "filter by source system")
		c.Flags().StringVar(&auditFlags.policy, "policy", "", "filter by policy name")
		c.Flags().StringVar(&auditFlags.hipaa, "hipaa", "", "filter by HIPAA compliance (true, false)")
		c.Flags().StringVar(&auditFlags.gdpr, "gdpr", "", "filter by GDPR compliance (true, false)")
		c.Flags().StringVar(&auditFlags.validation, "validation", "", "filter by validation outcome (true, false)")
		c.Flags().IntVar(&auditFlags.limit, "limit", 100, "max results")
		c.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	}

	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditQueryCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "export format: json, csv")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditReportCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	auditReportCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	_ = auditReportCmd.MarkFlagRequired("time-range")

	auditVerifyCmd.Flags().StringVar(&auditFlags.recordID, "record-id", "", "verify one record by ID")

	auditKeygenCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "key file to write (default: stdout)")
}

// loadAuditStore opens the configured audit store.
func loadAuditStore() (audit.Storage, *config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	store, err := openAuditStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// buildAuditQuery translates the shared filter flags into a query.
func buildAuditQuery() (*audit.Query, error) {
	q := &audit.Query{
		Actor:        auditFlags.actor,
		SourceSystem: auditFlags.source,
		PolicyName:   auditFlags.policy,
		Limit:        auditFlags.limit,
		Offset:       auditFlags.offset,
	}

	if auditFlags.timeRange != "" {
		start, end, err := parseTimeRange(auditFlags.timeRange)
		if err != nil {
			return nil, err
		}
		q.StartTime = &start
		q.EndTime = &end
	}

	for _, f := range []struct {
		value  string
		target **bool
		name   string
	}{
		{auditFlags.hipaa, &q.HIPAACompliant, "hipaa"},
		{auditFlags.gdpr, &q.GDPRCompliant, "gdpr"},
		{auditFlags.validation, &q.ValidationPassed, "validation"},
	} {
		if f.value == "" {
			continue
		}
		b, err := strconv.ParseBool(f.value)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s value %q (expected true or false)", f.name, f.value)
		}
		*f.target = &b
	}

	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

func openOutput() (*os.File, func(), error) {
	if auditFlags.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(auditFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	store, _, err := loadAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := buildAuditQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	if auditFlags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Fprintf(out, "Total records: %d\n\n", len(records))
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Record ID: %s\n", record.ID)
		fmt.Fprintf(out, "Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(out, "Actor: %s\n", record.Context.Actor)
		fmt.Fprintf(out, "Policy: %s %s\n", record.Policy.Name, record.Policy.Version)
		fmt.Fprintf(out, "Tags: %d processed (removed: %d, pseudonymized: %d, preserved: %d)\n",
			record.Summary.TagsProcessed, record.Summary.TagsRemoved,
			record.Summary.TagsPseudonymized, record.Summary.TagsPreserved)
		fmt.Fprintf(out, "Validation: passed=%t\n", record.Summary.ValidationPassed)
		fmt.Fprintf(out, "Compliance: hipaa=%t gdpr=%t risk=%s\n",
			record.Compliance.HIPAACompliant, record.Compliance.GDPRCompliant, record.Compliance.RiskLevel)
		if len(record.Compliance.UnhandledIdentifiers) > 0 {
			fmt.Fprintf(out, "Unhandled identifiers: %s\n",
				strings.Join(record.Compliance.UnhandledIdentifiers, ", "))
		}

		if i >= 9 && len(records) > 10 {
			fmt.Fprintf(out, "\n... and %d more records\n", len(records)-10)
			fmt.Fprintln(out, "Use --limit and --offset for pagination.")
			break
		}
	}
	return nil
}

func exportAudit(cmd *cobra.Command, args []string) error {
	store, cfg, err := loadAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := buildAuditQuery()
	if err != nil {
		return err
	}
	if q.Limit == 100 && cfg.Audit.Export.MaxExportSize > 0 {
		q.Limit = cfg.Audit.Export.MaxExportSize
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	var exporter audit.Exporter
	switch auditFlags.format {
	case "json":
		exporter = export.NewJSONExporter(cfg.Audit.Export.JSONPretty)
	case "csv":
		exporter = export.NewCSVExporter(cfg.Audit.Export.CSVIncludeHeader)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, csv)", auditFlags.format)
	}

	ctx := context.Background()
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if err := exporter.ExportStream(ctx, recordsCh, out); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if auditFlags.output != "" {
		fmt.Printf("✓ Exported to %s\n", auditFlags.output)
	}
	return nil
}

func reportAudit(cmd *cobra.Command, args []string) error {
	store, _, err := loadAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	start, end, err := parseTimeRange(auditFlags.timeRange)
	if err != nil {
		return err
	}

	rec := recorder.NewRecorder(store, nil)
	ctx := context.Background()
	report, err := rec.GenerateComplianceReport(ctx, start, end)
	if err != nil {
		return cli.NewCommandError("audit report", err)
	}

	if auditFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println("Compliance Report")
	fmt.Println("=================")
	fmt.Printf("Period:    %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Total operations: %d\n", report.TotalRecords)
	fmt.Printf("  Successful:     %d\n", report.Successful)
	fmt.Printf("  Failed:         %d\n\n", report.Failed)
	fmt.Printf("HIPAA compliant: %d (%.2f%%)\n", report.HIPAACompliantCount, report.HIPAACompliancePct)
	fmt.Printf("GDPR compliant:  %d (%.2f%%)\n", report.GDPRCompliantCount, report.GDPRCompliancePct)
	fmt.Printf("High-risk records: %d\n", report.HighRiskRecords)

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
	return nil
}

func verifyAudit(cmd *cobra.Command, args []string) error {
	store, _, err := loadAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := buildAuditQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit verify", err)
	}

	if auditFlags.recordID != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.ID == auditFlags.recordID {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	rec := recorder.NewRecorder(store, nil)
	passed := 0
	for _, record := range records {
		if rec.VerifyRecord(record) {
			passed++
		} else {
			fmt.Printf("✗ %s (%s %s) failed integrity verification\n",
				record.ID, record.Policy.Name, record.Policy.Version)
		}
	}

	fmt.Printf("✓ Integrity verification: %d/%d valid\n", passed, len(records))
	if passed != len(records) {
		fmt.Printf("⚠ %d record(s) failed verification\n", len(records)-passed)
	}
	return nil
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	store, cfg, err := loadAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays:       cfg.Audit.Retention.Days,
		ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
		ArchivePath:         cfg.Audit.Retention.ArchivePath,
		MaxRecords:          cfg.Audit.Retention.MaxRecords,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Printf("✓ Pruned %d record(s)\n", deleted)
	return nil
}

func generateSealingKey(cmd *cobra.Command, args []string) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return cli.NewCommandError("audit keygen", err)
	}

	if auditFlags.output == "" {
		fmt.Println(key)
		return nil
	}

	if err := os.WriteFile(auditFlags.output, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	fmt.Printf("✓ Key written to %s\n", auditFlags.output)
	return nil
}
