// Veil is a governance service for medical imaging anonymization policies.
//
// It manages versioned anonymization policies through an approval
// workflow and records a tamper-evident audit trail for every
// anonymization operation:
//   - Versioned policies with quorum-based approval workflows
//   - Emergency activation with mandatory post-hoc review
//   - Rollback with full version lineage
//   - PHI-free audit records with integrity hashing
//   - HIPAA/GDPR compliance assessment and reporting
//
// Usage:
//
//	# Start the service with default configuration
//	veil run
//
//	# Start with custom configuration file
//	veil run --config /path/to/config.yaml
//
//	# Show version information
//	veil version
//
//	# Inspect policies
//	veil policy list
//
//	# Generate a compliance report
//	veil audit report --time-range "2026-08-01T00:00:00Z/2026-09-01T00:00:00Z"
package main

func main() {
	Execute()
}
