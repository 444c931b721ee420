package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
-- Audit records table
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,

    -- Context
    actor TEXT NOT NULL,
    correlation_id TEXT,
    source_system TEXT,

    -- Policy reference (weak; survives policy supersede/rollback)
    policy_name TEXT NOT NULL,
    policy_version TEXT NOT NULL,

    -- Summary counts
    tags_processed INTEGER NOT NULL,
    tags_removed INTEGER NOT NULL,
    tags_pseudonymized INTEGER NOT NULL,
    tags_preserved INTEGER NOT NULL,
    validation_passed BOOLEAN NOT NULL,
    error_count INTEGER NOT NULL,
    warning_count INTEGER NOT NULL,
    original_tag_count INTEGER NOT NULL,
    anonymized_tag_count INTEGER NOT NULL,

    -- Sanitized operations and validation detail (JSON). When at-rest
    -- sealing is enabled, operations is empty and sealed_operations
    -- holds the ciphertext.
    operations TEXT,
    sealed_operations BLOB,
    validation TEXT,

    -- Compliance assessment
    hipaa_compliant BOOLEAN NOT NULL,
    gdpr_compliant BOOLEAN NOT NULL,
    risk_level TEXT NOT NULL,
    unhandled_identifiers TEXT,

    -- Tamper detection
    integrity_hash TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_records(actor);
CREATE INDEX IF NOT EXISTS idx_audit_policy_name ON audit_records(policy_name);
CREATE INDEX IF NOT EXISTS idx_audit_hipaa ON audit_records(hipaa_compliant);
CREATE INDEX IF NOT EXISTS idx_audit_gdpr ON audit_records(gdpr_compliant);
CREATE INDEX IF NOT EXISTS idx_audit_validation ON audit_records(validation_passed);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
