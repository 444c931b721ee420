package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"caduceus-hq/veil/pkg/policy"
)

// SQLiteConfig contains configuration for the SQLite policy store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/policies.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements policy.Store using an embedded SQLite database.
// Documents are stored as JSON with indexed id, name, and status columns.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

const policySchema = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    version TEXT NOT NULL,
    status TEXT NOT NULL,
    document TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS approval_requests (
    id TEXT PRIMARY KEY,
    policy_id TEXT NOT NULL,
    document TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_name ON policies(name);
CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);
CREATE INDEX IF NOT EXISTS idx_requests_policy_id ON approval_requests(policy_id);
`

// NewSQLiteStore creates a new SQLite-backed policy store.
// It initializes the schema and enables WAL mode.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, policy.NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(policySchema); err != nil {
		db.Close()
		return nil, policy.NewStorageError("sqlite", "create_schema", err)
	}

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "policy.storage.sqlite"),
	}

	s.logger.Info("SQLite policy store initialized", "path", config.Path)

	return s, nil
}

// PutPolicy durably stores a policy document, replacing any existing
// document with the same ID.
func (s *SQLiteStore) PutPolicy(ctx context.Context, p *policy.Policy) error {
	document, err := json.Marshal(p)
	if err != nil {
		return policy.NewStorageError("sqlite", "marshal_policy", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (id, name, version, status, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			document = excluded.document,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Version, string(p.Status), string(document), time.Now().Unix())

	if err != nil {
		return policy.NewStorageError("sqlite", "put_policy", err)
	}
	return nil
}

// GetPolicy retrieves a policy document by ID.
func (s *SQLiteStore) GetPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM policies WHERE id = ?", id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, &policy.NotFoundError{Kind: "policy", ID: id}
	}
	if err != nil {
		return nil, policy.NewStorageError("sqlite", "get_policy", err)
	}

	var p policy.Policy
	if err := json.Unmarshal([]byte(document), &p); err != nil {
		return nil, policy.NewStorageError("sqlite", "unmarshal_policy", err)
	}
	return &p, nil
}

// ListPolicies returns all stored policy documents.
func (s *SQLiteStore) ListPolicies(ctx context.Context) ([]*policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document FROM policies")
	if err != nil {
		return nil, policy.NewStorageError("sqlite", "list_policies", err)
	}
	defer rows.Close()

	policies := []*policy.Policy{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, policy.NewStorageError("sqlite", "scan_policy", err)
		}
		var p policy.Policy
		if err := json.Unmarshal([]byte(document), &p); err != nil {
			return nil, policy.NewStorageError("sqlite", "unmarshal_policy", err)
		}
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, policy.NewStorageError("sqlite", "list_policies", err)
	}

	return policies, nil
}

// PutRequest durably stores an approval-request document.
func (s *SQLiteStore) PutRequest(ctx context.Context, r *policy.ApprovalRequest) error {
	document, err := json.Marshal(r)
	if err != nil {
		return policy.NewStorageError("sqlite", "marshal_request", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approval_requests (id, policy_id, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, r.ID, r.PolicyID, string(document), time.Now().Unix())

	if err != nil {
		return policy.NewStorageError("sqlite", "put_request", err)
	}
	return nil
}

// GetRequest retrieves an approval-request document by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*policy.ApprovalRequest, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM approval_requests WHERE id = ?", id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, &policy.NotFoundError{Kind: "approval request", ID: id}
	}
	if err != nil {
		return nil, policy.NewStorageError("sqlite", "get_request", err)
	}

	var r policy.ApprovalRequest
	if err := json.Unmarshal([]byte(document), &r); err != nil {
		return nil, policy.NewStorageError("sqlite", "unmarshal_request", err)
	}
	return &r, nil
}

// DeleteRequest removes a closed approval request.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM approval_requests WHERE id = ?", id)
	if err != nil {
		return policy.NewStorageError("sqlite", "delete_request", err)
	}
	return nil
}

// ListRequests returns all pending approval-request documents.
func (s *SQLiteStore) ListRequests(ctx context.Context) ([]*policy.ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document FROM approval_requests")
	if err != nil {
		return nil, policy.NewStorageError("sqlite", "list_requests", err)
	}
	defer rows.Close()

	requests := []*policy.ApprovalRequest{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, policy.NewStorageError("sqlite", "scan_request", err)
		}
		var r policy.ApprovalRequest
		if err := json.Unmarshal([]byte(document), &r); err != nil {
			return nil, policy.NewStorageError("sqlite", "unmarshal_request", err)
		}
		requests = append(requests, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, policy.NewStorageError("sqlite", "list_requests", err)
	}

	return requests, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return policy.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite policy store closed")
	return nil
}
