package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/crypto"
	"caduceus-hq/veil/pkg/telemetry/metrics"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording. When false, CreateRecord builds
	// and returns the record without persisting it.
	Enabled bool

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder converts completed anonymization operations into immutable,
// hashed, compliance-annotated audit records.
type Recorder struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
	metrics *metrics.AuditMetrics
	sealer  *crypto.Sealer
}

// NewRecorder creates a new audit recorder over the provided storage
// backend.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Recorder{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.recorder"),
	}
}

// SetMetrics attaches Prometheus instrumentation. Safe to skip in tests.
func (r *Recorder) SetMetrics(m *metrics.AuditMetrics) {
	r.metrics = m
}

// SetSealer enables at-rest sealing. When set, the sanitized operations
// payload is AES-GCM encrypted before the record touches storage; the
// summary counts, compliance assessment and integrity hash stay in the
// clear for querying and verification.
func (r *Recorder) SetSealer(s *crypto.Sealer) {
	r.sealer = s
}

// CreateRecord builds an audit record from an anonymization result and
// persists it. The result's raw tag values are reduced to presence,
// length and a SHA-256 hash before anything touches storage.
//
// Non-compliance is recorded as data, never an error. CreateRecord fails
// only on invalid input or a storage failure; a storage failure must not
// roll back the anonymization that produced the result, which has
// already happened.
func (r *Recorder) CreateRecord(ctx context.Context, result *audit.AnonymizationResult, auditCtx audit.Context) (*audit.Record, error) {
	if result == nil {
		return nil, audit.NewRecorderError("", fmt.Errorf("anonymization result is nil"))
	}
	if auditCtx.Actor == "" {
		return nil, audit.NewRecorderError("", fmt.Errorf("actor is required"))
	}

	summary := Summarize(result)

	record := &audit.Record{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		Context:    auditCtx,
		Policy:     result.Policy,
		Summary:    summary,
		Operations: SanitizeOperations(result.Operations),
		Validation: result.Validation,
		Compliance: AssessCompliance(result),
	}
	record.IntegrityHash = RecordIntegrityHash(record)

	if r.sealer != nil && len(record.Operations) > 0 {
		payload, err := json.Marshal(record.Operations)
		if err != nil {
			return nil, audit.NewRecorderError(record.ID, err)
		}
		sealed, err := r.sealer.Seal(payload)
		if err != nil {
			return nil, audit.NewRecorderError(record.ID, err)
		}
		record.SealedOperations = sealed
		record.Operations = nil
	}

	if !r.config.Enabled {
		return record, nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(writeCtx, record); err != nil {
		if r.metrics != nil {
			r.metrics.RecordStorageFailure()
		}
		r.logger.Error("Failed to store audit record",
			"record_id", record.ID,
			"policy", record.Policy.Name,
			"error", err,
		)
		return nil, audit.NewRecorderError(record.ID, err)
	}

	if r.metrics != nil {
		r.metrics.RecordRecordCreated(record.Compliance.HIPAACompliant, record.Compliance.GDPRCompliant)
	}

	r.logger.Info("Audit record created",
		"record_id", record.ID,
		"policy", record.Policy.Name,
		"policy_version", record.Policy.Version,
		"actor", auditCtx.Actor,
		"hipaa_compliant", record.Compliance.HIPAACompliant,
		"gdpr_compliant", record.Compliance.GDPRCompliant,
	)

	return record, nil
}

// VerifyIntegrity recomputes the integrity hash from the original result
// and compares it against the stored record. A false return signals
// tampering or corruption; it is reported as data, never an error.
func (r *Recorder) VerifyIntegrity(record *audit.Record, result *audit.AnonymizationResult) bool {
	if record == nil || result == nil {
		return false
	}

	expected := ComputeIntegrityHash(
		result.Policy,
		len(result.Operations),
		result.Validation.Passed,
		result.OriginalTagCount,
		result.AnonymizedTagCount,
	)

	ok := record.IntegrityHash == expected
	if r.metrics != nil {
		outcome := "pass"
		if !ok {
			outcome = "fail"
		}
		r.metrics.RecordVerification(outcome)
	}
	if !ok {
		r.logger.Warn("Audit record failed integrity verification",
			"record_id", record.ID,
			"policy", record.Policy.Name,
		)
	}
	return ok
}

// VerifyRecord checks a stored record against itself: the integrity hash
// must be recomputable from the record's own summary fields. Used when
// the original anonymization result is no longer available.
func (r *Recorder) VerifyRecord(record *audit.Record) bool {
	if record == nil {
		return false
	}

	ok := record.IntegrityHash == RecordIntegrityHash(record)
	if r.metrics != nil {
		outcome := "pass"
		if !ok {
			outcome = "fail"
		}
		r.metrics.RecordVerification(outcome)
	}
	return ok
}

// UnsealOperations decrypts the sealed operations payload of a record
// written with at-rest sealing enabled. Requires a sealer with the same
// key the record was written under.
func (r *Recorder) UnsealOperations(record *audit.Record) ([]audit.SanitizedOperation, error) {
	if record == nil {
		return nil, audit.NewRecorderError("", fmt.Errorf("record is nil"))
	}
	if len(record.SealedOperations) == 0 {
		return record.Operations, nil
	}
	if r.sealer == nil {
		return nil, audit.NewRecorderError(record.ID, fmt.Errorf("record is sealed and no key is configured"))
	}

	payload, err := r.sealer.Open(record.SealedOperations)
	if err != nil {
		return nil, audit.NewRecorderError(record.ID, err)
	}

	var operations []audit.SanitizedOperation
	if err := json.Unmarshal(payload, &operations); err != nil {
		return nil, audit.NewRecorderError(record.ID, err)
	}
	return operations, nil
}
