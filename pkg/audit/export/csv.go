package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"caduceus-hq/veil/pkg/audit"
)

// CSVExporter exports audit records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes audit records to the provided writer in CSV format.
// Nested structures are flattened: operations become a JSON column,
// identifier lists become semicolon-separated strings.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	return nil
}

// ExportStream exports audit records from a channel to CSV format,
// flushing periodically so long exports show progress.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return audit.NewExportError("csv", recordCount, err)
			}

			recordCount++
			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

// headerRow returns the CSV header row.
func headerRow() []string {
	return []string{
		"id", "timestamp",
		"actor", "correlation_id", "source_system",
		"policy_name", "policy_version",
		"tags_processed", "tags_removed", "tags_pseudonymized", "tags_preserved",
		"validation_passed", "error_count", "warning_count",
		"original_tag_count", "anonymized_tag_count",
		"operations",
		"hipaa_compliant", "gdpr_compliant", "risk_level", "unhandled_identifiers",
		"integrity_hash",
	}
}

// recordToRow converts an audit record to a CSV row.
func recordToRow(record *audit.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	operations, _ := json.Marshal(record.Operations)

	return []string{
		record.ID,
		formatTime(record.Timestamp),
		record.Context.Actor,
		record.Context.CorrelationID,
		record.Context.SourceSystem,
		record.Policy.Name,
		record.Policy.Version,
		fmt.Sprintf("%d", record.Summary.TagsProcessed),
		fmt.Sprintf("%d", record.Summary.TagsRemoved),
		fmt.Sprintf("%d", record.Summary.TagsPseudonymized),
		fmt.Sprintf("%d", record.Summary.TagsPreserved),
		fmt.Sprintf("%t", record.Summary.ValidationPassed),
		fmt.Sprintf("%d", record.Summary.ErrorCount),
		fmt.Sprintf("%d", record.Summary.WarningCount),
		fmt.Sprintf("%d", record.Summary.OriginalTagCount),
		fmt.Sprintf("%d", record.Summary.AnonymizedTagCount),
		string(operations),
		fmt.Sprintf("%t", record.Compliance.HIPAACompliant),
		fmt.Sprintf("%t", record.Compliance.GDPRCompliant),
		string(record.Compliance.RiskLevel),
		strings.Join(record.Compliance.UnhandledIdentifiers, ";"),
		record.IntegrityHash,
	}
}
