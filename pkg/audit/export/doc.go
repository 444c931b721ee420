// Package export writes audit records to JSON and CSV. Both exporters
// offer a slice-based Export and a channel-based ExportStream for large
// result sets. Exported records are already sanitized; no raw tag values
// ever reach an export.
package export
