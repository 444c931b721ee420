package metrics

import (
	"caduceus-hq/veil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks metrics related to audit recording.
//
// Metrics:
//   - veil_audit_records_total: Audit records created by compliance outcome
//   - veil_audit_storage_failures_total: Failed audit storage writes
//   - veil_audit_verifications_total: Integrity verifications by result
//   - veil_audit_pruned_records_total: Records removed by retention pruning
type AuditMetrics struct {
	recordsTotal       *prometheus.CounterVec
	storageFailures    prometheus.Counter
	verificationsTotal *prometheus.CounterVec
	prunedTotal        prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics with the provided
// registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_records_total",
				Help:      "Total number of audit records created",
			},
			[]string{"hipaa_compliant", "gdpr_compliant"},
		),

		storageFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_storage_failures_total",
				Help:      "Total number of failed audit storage writes",
			},
		),

		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_verifications_total",
				Help:      "Total number of audit integrity verifications",
			},
			[]string{"result"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_records_total",
				Help:      "Total number of audit records removed by retention pruning",
			},
		),
	}

	registry.MustRegister(
		am.recordsTotal,
		am.storageFailures,
		am.verificationsTotal,
		am.prunedTotal,
	)

	return am
}

// RecordRecordCreated records the creation of an audit record.
func (am *AuditMetrics) RecordRecordCreated(hipaaCompliant, gdprCompliant bool) {
	am.recordsTotal.WithLabelValues(boolLabel(hipaaCompliant), boolLabel(gdprCompliant)).Inc()
}

// RecordStorageFailure records a failed audit storage write.
func (am *AuditMetrics) RecordStorageFailure() {
	am.storageFailures.Inc()
}

// RecordVerification records an integrity verification.
//
// Parameters:
//   - result: Verification result ("valid", "tampered")
func (am *AuditMetrics) RecordVerification(result string) {
	am.verificationsTotal.WithLabelValues(result).Inc()
}

// RecordPruned records the number of records removed by a pruning run.
func (am *AuditMetrics) RecordPruned(n int64) {
	am.prunedTotal.Add(float64(n))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
