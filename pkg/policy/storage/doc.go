// Package storage provides persistence backends for policy and
// approval-request documents.
//
// Two backends implement the policy.Store interface:
//   - MemoryStore: in-memory maps, intended for tests
//   - SQLiteStore: embedded SQLite database for single-instance deployments
//
// Both store complete documents as JSON alongside a few indexed columns,
// so the schema stays stable as bookkeeping fields evolve.
package storage
