package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/query"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the audit Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend. It initializes
// the schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists an audit record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	var operations []byte
	if len(record.Operations) > 0 {
		operations, _ = json.Marshal(record.Operations)
	}
	validation, _ := json.Marshal(record.Validation)
	unhandled, _ := json.Marshal(record.Compliance.UnhandledIdentifiers)

	sqlQuery := `
		INSERT INTO audit_records (
			id, timestamp,
			actor, correlation_id, source_system,
			policy_name, policy_version,
			tags_processed, tags_removed, tags_pseudonymized, tags_preserved,
			validation_passed, error_count, warning_count,
			original_tag_count, anonymized_tag_count,
			operations, sealed_operations, validation,
			hipaa_compliant, gdpr_compliant, risk_level, unhandled_identifiers,
			integrity_hash
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	_, err := s.db.ExecContext(ctx, sqlQuery,
		record.ID, record.Timestamp,
		record.Context.Actor, record.Context.CorrelationID, record.Context.SourceSystem,
		record.Policy.Name, record.Policy.Version,
		record.Summary.TagsProcessed, record.Summary.TagsRemoved, record.Summary.TagsPseudonymized, record.Summary.TagsPreserved,
		record.Summary.ValidationPassed, record.Summary.ErrorCount, record.Summary.WarningCount,
		record.Summary.OriginalTagCount, record.Summary.AnonymizedTagCount,
		string(operations), record.SealedOperations, string(validation),
		record.Compliance.HIPAACompliant, record.Compliance.GDPRCompliant, string(record.Compliance.RiskLevel), string(unhandled),
		record.IntegrityHash,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves audit records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	query.ApplyDefaults(q)

	sqlQuery, args := s.buildSelect(q)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := s.scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream returns a channel of records for streaming consumption.
// Both channels are closed when the query completes or errors.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	if err := query.Validate(q); err != nil {
		return nil, nil, err
	}
	query.ApplyDefaults(q)

	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect(q)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := s.scanRow(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "SELECT COUNT(*) FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes records matching the query filters and returns the
// number removed.
func (s *SQLiteStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "DELETE FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildSelect builds the full SELECT statement with sorting and pagination.
func (s *SQLiteStorage) buildSelect(q *audit.Query) (string, []interface{}) {
	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "SELECT * FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortBy := "timestamp"
	if q.SortBy != "" {
		sortBy = q.SortBy
	}
	sortOrder := "DESC"
	if q.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	if q.Limit == audit.UnlimitedLimit {
		// SQLite only accepts OFFSET after a LIMIT clause; -1 means no cap.
		if q.Offset > 0 {
			sqlQuery += fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset)
		}
		return sqlQuery, args
	}

	limit := query.DefaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without "WHERE") and the query arguments.
func (s *SQLiteStorage) buildWhereClause(q *audit.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if q.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *q.StartTime)
	}
	if q.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *q.EndTime)
	}

	if q.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, q.Actor)
	}
	if q.SourceSystem != "" {
		conditions = append(conditions, "source_system = ?")
		args = append(args, q.SourceSystem)
	}
	if q.PolicyName != "" {
		conditions = append(conditions, "policy_name = ?")
		args = append(args, q.PolicyName)
	}

	if q.HIPAACompliant != nil {
		conditions = append(conditions, "hipaa_compliant = ?")
		args = append(args, *q.HIPAACompliant)
	}
	if q.GDPRCompliant != nil {
		conditions = append(conditions, "gdpr_compliant = ?")
		args = append(args, *q.GDPRCompliant)
	}
	if q.ValidationPassed != nil {
		conditions = append(conditions, "validation_passed = ?")
		args = append(args, *q.ValidationPassed)
	}

	whereClause := ""
	for i, condition := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += condition
	}

	return whereClause, args
}

// scanRow scans a database row into an audit Record.
func (s *SQLiteStorage) scanRow(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var correlationID, sourceSystem sql.NullString
	var operations, validation, unhandled sql.NullString
	var riskLevel string
	var sealedOperations []byte

	err := rows.Scan(
		&record.ID, &record.Timestamp,
		&record.Context.Actor, &correlationID, &sourceSystem,
		&record.Policy.Name, &record.Policy.Version,
		&record.Summary.TagsProcessed, &record.Summary.TagsRemoved, &record.Summary.TagsPseudonymized, &record.Summary.TagsPreserved,
		&record.Summary.ValidationPassed, &record.Summary.ErrorCount, &record.Summary.WarningCount,
		&record.Summary.OriginalTagCount, &record.Summary.AnonymizedTagCount,
		&operations, &sealedOperations, &validation,
		&record.Compliance.HIPAACompliant, &record.Compliance.GDPRCompliant, &riskLevel, &unhandled,
		&record.IntegrityHash,
	)
	if err != nil {
		return nil, err
	}

	if correlationID.Valid {
		record.Context.CorrelationID = correlationID.String
	}
	if sourceSystem.Valid {
		record.Context.SourceSystem = sourceSystem.String
	}
	record.Compliance.RiskLevel = audit.RiskLevel(riskLevel)
	record.SealedOperations = sealedOperations

	if operations.Valid && operations.String != "" {
		json.Unmarshal([]byte(operations.String), &record.Operations)
	}
	if validation.Valid && validation.String != "" {
		json.Unmarshal([]byte(validation.String), &record.Validation)
	}
	if unhandled.Valid && unhandled.String != "" {
		json.Unmarshal([]byte(unhandled.String), &record.Compliance.UnhandledIdentifiers)
	}

	return &record, nil
}
