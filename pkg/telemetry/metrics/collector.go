package metrics

import (
	"caduceus-hq/veil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Veil.
// It manages metric registration and provides access to the policy and
// audit metric subsystems.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	policyMetrics *PolicyMetrics
	auditMetrics  *AuditMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "veil"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.policyMetrics = NewPolicyMetrics(cfg, registry)
	c.auditMetrics = NewAuditMetrics(cfg, registry)

	return c
}

// Policy returns the policy metrics subsystem.
func (c *Collector) Policy() *PolicyMetrics {
	return c.policyMetrics
}

// Audit returns the audit metrics subsystem.
func (c *Collector) Audit() *AuditMetrics {
	return c.auditMetrics
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
