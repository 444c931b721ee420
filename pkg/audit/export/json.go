package export

import (
	"context"
	"encoding/json"
	"io"

	"caduceus-hq/veil/pkg/audit"
)

// JSONExporter exports audit records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes audit records to the provided writer in JSON format.
// Records are always exported as a JSON array, even for a single record,
// so consumers can parse exports uniformly.
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	return nil
}

// ExportStream exports audit records from a channel as a JSON array.
// Records are written as they arrive, making this suitable for very
// large exports.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return audit.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return audit.NewExportError("json", recordCount, err)
					}
				}
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return audit.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return audit.NewExportError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

// serializeRecord serializes a single record to JSON.
func (e *JSONExporter) serializeRecord(record *audit.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
