// Package storage provides audit record persistence backends.
//
// Two implementations ship: MemoryStorage for tests and opt-out
// deployments, and SQLiteStorage for durable single-node storage with
// WAL mode and indexed timestamp/compliance queries. Both satisfy
// audit.Storage and are safe for concurrent use.
package storage
