package metrics

import (
	"caduceus-hq/veil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks metrics related to policy governance.
//
// Metrics:
//   - veil_policy_transitions_total: State transitions by from/to status
//   - veil_policy_approvals_total: Approval decisions by workflow and outcome
//   - veil_policy_emergency_activations_total: Emergency bypass activations
//   - veil_policy_rollbacks_total: Policy rollbacks
//   - veil_policy_active: Number of currently active policies
type PolicyMetrics struct {
	transitionsTotal *prometheus.CounterVec
	approvalsTotal   *prometheus.CounterVec
	emergencyTotal   prometheus.Counter
	rollbacksTotal   prometheus.Counter
	activePolicies   prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the provided
// registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_transitions_total",
				Help:      "Total number of policy state transitions",
			},
			[]string{"from", "to"},
		),

		approvalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_approvals_total",
				Help:      "Total number of approval decisions",
			},
			[]string{"workflow", "outcome"},
		),

		emergencyTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_emergency_activations_total",
				Help:      "Total number of emergency policy activations",
			},
		),

		rollbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_rollbacks_total",
				Help:      "Total number of policy rollbacks",
			},
		),

		activePolicies: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_active",
				Help:      "Number of currently active policies",
			},
		),
	}

	registry.MustRegister(
		pm.transitionsTotal,
		pm.approvalsTotal,
		pm.emergencyTotal,
		pm.rollbacksTotal,
		pm.activePolicies,
	)

	return pm
}

// RecordTransition records a policy state transition.
func (pm *PolicyMetrics) RecordTransition(from, to string) {
	pm.transitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordApproval records an approval decision.
//
// Parameters:
//   - workflow: Workflow kind ("single", "dual", "committee")
//   - outcome: Decision outcome ("approve", "reject", "duplicate")
func (pm *PolicyMetrics) RecordApproval(workflow, outcome string) {
	pm.approvalsTotal.WithLabelValues(workflow, outcome).Inc()
}

// RecordEmergencyActivation records an emergency bypass activation.
func (pm *PolicyMetrics) RecordEmergencyActivation() {
	pm.emergencyTotal.Inc()
}

// RecordRollback records a policy rollback.
func (pm *PolicyMetrics) RecordRollback() {
	pm.rollbacksTotal.Inc()
}

// SetActivePolicies updates the active-policy gauge.
func (pm *PolicyMetrics) SetActivePolicies(n int) {
	pm.activePolicies.Set(float64(n))
}
