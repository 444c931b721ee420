// Package policy defines the data model for versioned anonymization
// policies and their approval lifecycle.
//
// A Policy classifies DICOM-style tags into three disjoint sets: remove,
// pseudonymize, and preserve. Policies are immutable after creation except
// for status and approval bookkeeping; every content change produces a new
// policy document with a new ID and an incremented version, and the prior
// version is marked superseded.
//
// # State Machine
//
// Policies move through a fixed set of states:
//
//	draft → pending_approval → {approved | rejected}
//	approved → superseded                (on update)
//	approved | emergency_approved → rolled_back
//
// Emergency activation does not transition through pending_approval; it
// creates a single-actor approval directly and flags the policy for
// mandatory post-hoc review. The rejected, superseded, and rolled_back
// states are terminal.
//
// # Storage
//
// The Store interface abstracts durable persistence for policy and
// approval-request documents. Implementations live in the storage
// subpackage (in-memory for tests, SQLite for deployments).
package policy
