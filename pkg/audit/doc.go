// Package audit provides tamper-evident audit records for anonymization
// operations. Every completed anonymization is reduced to an immutable,
// hashed, compliance-annotated record that an auditor can later verify
// independently of the storage layer.
//
// # Architecture
//
// The audit system consists of four layers:
//
//  1. Audit Recorder - Converts anonymization results into sanitized records
//  2. Storage Backend - Persists records (in-memory, SQLite)
//  3. Query Engine - Retrieves and filters records
//  4. Retention - Prunes and archives aged records on a schedule
//
// # Audit Records
//
// Each record captures:
//   - Caller context (actor, correlation id, source system)
//   - The policy (name, version) that was applied
//   - Summary counts (tags processed/removed/pseudonymized/preserved)
//   - Sanitized operations: presence, value length and SHA-256 hash only
//   - Validation results carried verbatim from the redaction engine
//   - HIPAA/GDPR compliance assessment with risk level
//   - An integrity hash over a fixed field subset
//
// Records never contain raw protected health information. The original tag
// values exist only in the in-memory AnonymizationResult handed to the
// recorder; what is persisted retains a one-way hash and the value length.
//
// # Integrity Verification
//
// The integrity hash is computed over the policy name and version, the
// operation count, the validation verdict and the original and anonymized
// tag counts. VerifyIntegrity recomputes it from a record's own fields; a
// mismatch signals tampering or corruption and is reported as data, never
// repaired.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path: "data/audit.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil)
//
//	record, err := rec.CreateRecord(ctx, result, audit.Context{
//	    Actor:        "dr.adams",
//	    SourceSystem: "pacs-01",
//	})
//
// # Querying and Reporting
//
//	records, err := store.Query(ctx, &audit.Query{
//	    StartTime:  &start,
//	    EndTime:    &end,
//	    PolicyName: "ChestCT",
//	})
//
//	report, err := rec.GenerateComplianceReport(ctx, start, end)
//
// # Retention
//
// Records can be pruned by age or count, optionally archived to JSON
// before deletion:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 365,
//	    PruneSchedule: "0 3 * * *",
//	})
//	pruner.Start(ctx)
//	defer pruner.Stop()
//
// # Thread Safety
//
// Storage implementations are safe for concurrent use. The recorder is
// stateless apart from its storage handle and can be shared freely.
package audit
