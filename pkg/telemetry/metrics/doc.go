// Package metrics provides Prometheus metrics collection for Veil.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring policy
// governance and audit recording: state transitions, approval outcomes,
// emergency activations, rollbacks, audit record creation, and integrity
// verification results.
//
// # Metrics Categories
//
//   - Policy Metrics: state transitions, approvals, rollbacks, active count
//   - Audit Metrics: records created, storage failures, integrity checks,
//     pruned records
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(cfg, nil)
//
//	// Record policy metrics
//	collector.Policy().RecordTransition("draft", "pending_approval")
//	collector.Policy().RecordApproval("dual", "approve")
//
//	// Record audit metrics
//	collector.Audit().RecordRecordCreated(true, false)
//	collector.Audit().RecordVerification("valid")
//
// # Prometheus Endpoint
//
// All metrics are exposed via Collector.Handler in the standard Prometheus
// exposition format, typically mounted at /metrics on a dedicated listener.
package metrics
