package metrics

import (
	"testing"

	"caduceus-hq/veil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()

	cfg := &config.MetricsConfig{
		Enabled:   true,
		Namespace: "veil",
	}
	return NewCollector(cfg, prometheus.NewRegistry())
}

func TestPolicyMetrics_Transitions(t *testing.T) {
	c := newTestCollector(t)

	c.Policy().RecordTransition("draft", "pending_approval")
	c.Policy().RecordTransition("draft", "pending_approval")
	c.Policy().RecordTransition("pending_approval", "approved")

	got := testutil.ToFloat64(c.Policy().transitionsTotal.WithLabelValues("draft", "pending_approval"))
	if got != 2 {
		t.Errorf("transitions draft->pending_approval = %v, want 2", got)
	}
}

func TestPolicyMetrics_Approvals(t *testing.T) {
	c := newTestCollector(t)

	c.Policy().RecordApproval("dual", "approve")
	c.Policy().RecordApproval("dual", "reject")

	if got := testutil.ToFloat64(c.Policy().approvalsTotal.WithLabelValues("dual", "approve")); got != 1 {
		t.Errorf("approvals dual/approve = %v, want 1", got)
	}
}

func TestPolicyMetrics_ActiveGauge(t *testing.T) {
	c := newTestCollector(t)

	c.Policy().SetActivePolicies(3)

	if got := testutil.ToFloat64(c.Policy().activePolicies); got != 3 {
		t.Errorf("active policies gauge = %v, want 3", got)
	}
}

func TestAuditMetrics_Records(t *testing.T) {
	c := newTestCollector(t)

	c.Audit().RecordRecordCreated(true, false)
	c.Audit().RecordRecordCreated(true, false)
	c.Audit().RecordVerification("tampered")
	c.Audit().RecordPruned(5)

	if got := testutil.ToFloat64(c.Audit().recordsTotal.WithLabelValues("true", "false")); got != 2 {
		t.Errorf("records true/false = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Audit().verificationsTotal.WithLabelValues("tampered")); got != 1 {
		t.Errorf("verifications tampered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Audit().prunedTotal); got != 5 {
		t.Errorf("pruned total = %v, want 5", got)
	}
}
