package audit

import (
	"context"
	"io"
	"time"
)

// TagAction classifies what the redaction engine did with a single tag.
type TagAction string

const (
	ActionRemoved       TagAction = "removed"
	ActionPseudonymized TagAction = "pseudonymized"
	ActionPreserved     TagAction = "preserved"
)

// TagOperation is one tag-level action reported by the redaction engine.
// OriginalValue and NewValue may contain raw PHI; they exist only in memory
// and are never persisted. The recorder reduces them to presence, length
// and a one-way hash.
type TagOperation struct {
	// Tag is the DICOM tag coordinate, e.g. "(0010,0010)".
	Tag string `json:"tag"`

	// Action is what was done with the tag.
	Action TagAction `json:"action"`

	// OriginalValue is the tag value before anonymization. Never stored.
	OriginalValue string `json:"-"`

	// NewValue is the replacement value, if any. Never stored.
	NewValue string `json:"-"`
}

// ValidationOutcome is the redaction engine's own verdict on its output.
type ValidationOutcome struct {
	// Passed reports whether post-anonymization validation succeeded.
	Passed bool `json:"passed"`

	// PHIRemoved reports whether the validator confirmed all protected
	// health information was removed or pseudonymized.
	PHIRemoved bool `json:"phi_removed"`

	// Errors lists validation errors.
	Errors []string `json:"errors,omitempty"`

	// Warnings lists non-fatal validation findings.
	Warnings []string `json:"warnings,omitempty"`
}

// PolicyRef is a weak reference to the policy version that was applied.
// Records keep referring to it even after the policy is superseded or
// rolled back.
type PolicyRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// AnonymizationResult is the completed outcome of one anonymization
// operation, handed in by the caller. The audit subsystem only reads it.
type AnonymizationResult struct {
	// Policy identifies the policy version that was applied.
	Policy PolicyRef `json:"policy"`

	// Operations lists every tag-level action taken.
	Operations []TagOperation `json:"operations"`

	// Validation is the engine's post-anonymization verdict.
	Validation ValidationOutcome `json:"validation"`

	// OriginalTagCount is the number of tags in the source object.
	OriginalTagCount int `json:"original_tag_count"`

	// AnonymizedTagCount is the number of tags in the anonymized output.
	AnonymizedTagCount int `json:"anonymized_tag_count"`
}

// Context carries caller-supplied identity for a record. Identities are
// recorded as claimed, never authenticated here.
type Context struct {
	// Actor is the identity that performed the anonymization.
	Actor string `json:"actor"`

	// CorrelationID links the record to an external request or job.
	CorrelationID string `json:"correlation_id,omitempty"`

	// SourceSystem names the system the data came from.
	SourceSystem string `json:"source_system,omitempty"`
}

// Summary holds the aggregate counts computed from an anonymization
// result. Several of its fields feed the integrity hash.
type Summary struct {
	TagsProcessed     int `json:"tags_processed"`
	TagsRemoved       int `json:"tags_removed"`
	TagsPseudonymized int `json:"tags_pseudonymized"`
	TagsPreserved     int `json:"tags_preserved"`

	ValidationPassed bool `json:"validation_passed"`
	ErrorCount       int  `json:"error_count"`
	WarningCount     int  `json:"warning_count"`

	OriginalTagCount   int `json:"original_tag_count"`
	AnonymizedTagCount int `json:"anonymized_tag_count"`
}

// SanitizedOperation is the persisted form of a TagOperation. It carries
// only presence, length and a SHA-256 hash of the original value, never
// the value itself.
type SanitizedOperation struct {
	Tag    string    `json:"tag"`
	Action TagAction `json:"action"`

	// HadValue reports whether the original tag carried a value.
	HadValue bool `json:"had_value"`

	// ValueLength is the byte length of the original value.
	ValueLength int `json:"value_length"`

	// ValueHash is the hex-encoded SHA-256 of the original value, empty
	// when the tag had no value.
	ValueHash string `json:"value_hash,omitempty"`
}

// RiskLevel classifies the compliance risk of a record.
type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

// ComplianceAssessment is the HIPAA/GDPR verdict for one record.
// Non-compliance is data, not an error.
type ComplianceAssessment struct {
	// HIPAACompliant reports whether every known HIPAA identifier tag was
	// removed or pseudonymized.
	HIPAACompliant bool `json:"hipaa_compliant"`

	// GDPRCompliant reports whether the validator confirmed PHI removal.
	GDPRCompliant bool `json:"gdpr_compliant"`

	// RiskLevel is "high" when any HIPAA identifier was left unhandled.
	RiskLevel RiskLevel `json:"risk_level"`

	// UnhandledIdentifiers lists HIPAA identifier tags present in the
	// original but neither removed nor pseudonymized.
	UnhandledIdentifiers []string `json:"unhandled_identifiers,omitempty"`
}

// Record is an immutable snapshot of one anonymization operation.
type Record struct {
	// ID uniquely identifies the record (UUID v4).
	ID string `json:"id"`

	// Timestamp is when the record was created.
	Timestamp time.Time `json:"timestamp"`

	// Context is the caller-supplied identity information.
	Context Context `json:"context"`

	// Policy identifies the policy version that was applied.
	Policy PolicyRef `json:"policy"`

	// Summary holds the aggregate counts.
	Summary Summary `json:"summary"`

	// Operations are the sanitized tag-level actions. Empty when the
	// record was written with at-rest sealing enabled; see
	// SealedOperations.
	Operations []SanitizedOperation `json:"operations,omitempty"`

	// SealedOperations is the AES-GCM ciphertext of the sanitized
	// operations payload when at-rest sealing is enabled.
	SealedOperations []byte `json:"sealed_operations,omitempty"`

	// Validation is the engine's verdict, carried verbatim.
	Validation ValidationOutcome `json:"validation"`

	// Compliance is the HIPAA/GDPR assessment.
	Compliance ComplianceAssessment `json:"compliance"`

	// IntegrityHash is the tamper-detection digest over a fixed subset of
	// the record's fields. It must be recomputable from the record itself.
	IntegrityHash string `json:"integrity_hash"`
}

// UnlimitedLimit is the sentinel Limit value that disables the result
// cap. It exists for internal full-scan consumers (compliance reports,
// pre-delete archiving) that must see every matching record; interactive
// callers should page with Limit and Offset instead.
const UnlimitedLimit = -1

// Query defines filter parameters for retrieving audit records.
type Query struct {
	// Time range, inclusive on both ends.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Actor        string `json:"actor,omitempty"`
	SourceSystem string `json:"source_system,omitempty"`
	PolicyName   string `json:"policy_name,omitempty"`

	// Compliance filters
	HIPAACompliant   *bool `json:"hipaa_compliant,omitempty"`
	GDPRCompliant    *bool `json:"gdpr_compliant,omitempty"`
	ValidationPassed *bool `json:"validation_passed,omitempty"`

	// Pagination. A zero Limit gets the backend default; UnlimitedLimit
	// disables the cap.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for audit record backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an audit record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream returns a channel of records for memory-efficient
	// streaming over large result sets. Both channels are closed when the
	// query completes or errors; callers should drain both.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns the
	// number removed. Used for retention enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}

// Exporter writes audit records to an output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error

	// ExportStream consumes records from a channel, allowing large
	// result sets to be exported without buffering them in memory.
	ExportStream(ctx context.Context, recordsCh <-chan *Record, w io.Writer) error
}
