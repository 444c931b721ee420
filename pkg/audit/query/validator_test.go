package query

import (
	"errors"
	"testing"
	"time"

	"caduceus-hq/veil/pkg/audit"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   *audit.Query
		wantErr bool
	}{
		{"empty query", &audit.Query{}, false},
		{"valid full query", &audit.Query{
			StartTime: &earlier,
			EndTime:   &now,
			Actor:     "dr.adams",
			Limit:     50,
			SortBy:    "timestamp",
			SortOrder: "asc",
		}, false},
		{"unlimited sentinel", &audit.Query{Limit: audit.UnlimitedLimit}, false},
		{"negative limit", &audit.Query{Limit: -2}, true},
		{"limit over max", &audit.Query{Limit: MaxLimit + 1}, true},
		{"negative offset", &audit.Query{Offset: -5}, true},
		{"unknown sort field", &audit.Query{SortBy: "integrity_hash"}, true},
		{"unknown sort order", &audit.Query{SortOrder: "sideways"}, true},
		{"inverted time range", &audit.Query{StartTime: &now, EndTime: &earlier}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qerr *audit.QueryError
				if !errors.As(err, &qerr) {
					t.Errorf("error type = %T, want *QueryError", err)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &audit.Query{}
	ApplyDefaults(q)

	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.SortBy != "timestamp" {
		t.Errorf("SortBy = %q, want timestamp", q.SortBy)
	}
	if q.SortOrder != "desc" {
		t.Errorf("SortOrder = %q, want desc", q.SortOrder)
	}

	// Explicit values survive.
	q = &audit.Query{Limit: 7, SortBy: "actor", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 7 || q.SortBy != "actor" || q.SortOrder != "asc" {
		t.Errorf("defaults overwrote explicit values: %+v", q)
	}

	// The unlimited sentinel is not replaced by the default limit.
	q = &audit.Query{Limit: audit.UnlimitedLimit}
	ApplyDefaults(q)
	if q.Limit != audit.UnlimitedLimit {
		t.Errorf("Limit = %d, want unlimited sentinel preserved", q.Limit)
	}
}
