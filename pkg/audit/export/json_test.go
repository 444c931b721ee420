package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"caduceus-hq/veil/pkg/audit"
)

func exportRecord(id string) *audit.Record {
	return &audit.Record{
		ID:        id,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Context:   audit.Context{Actor: "dr.adams"},
		Policy:    audit.PolicyRef{Name: "ChestCT", Version: "1.0"},
		Summary:   audit.Summary{TagsProcessed: 2, ValidationPassed: true},
		Operations: []audit.SanitizedOperation{
			{Tag: "(0010,0010)", Action: audit.ActionRemoved, HadValue: true, ValueLength: 8, ValueHash: "ab12"},
		},
		Compliance: audit.ComplianceAssessment{
			HIPAACompliant: true,
			GDPRCompliant:  true,
			RiskLevel:      audit.RiskLow,
		},
		IntegrityHash: "deadbeef",
	}
}

func TestJSONExporter_Export(t *testing.T) {
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	records := []*audit.Record{exportRecord("r1"), exportRecord("r2")}
	if err := exporter.Export(context.Background(), records, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded []audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d records, want 2", len(decoded))
	}
	if decoded[0].ID != "r1" || decoded[0].Policy.Name != "ChestCT" {
		t.Errorf("decoded[0] = %+v, want r1/ChestCT", decoded[0])
	}
}

func TestJSONExporter_EmptySlice(t *testing.T) {
	exporter := NewJSONExporter(true)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("output = %q, want %q", buf.String(), "[]")
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	recordsCh := make(chan *audit.Record, 3)
	for _, id := range []string{"a", "b", "c"} {
		recordsCh <- exportRecord(id)
	}
	close(recordsCh)

	if err := exporter.ExportStream(context.Background(), recordsCh, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}

	var decoded []audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("stream output is not valid JSON: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded %d records, want 3", len(decoded))
	}
}
