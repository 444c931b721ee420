package storage

import (
	"context"
	"sort"
	"sync"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/query"
)

// MemoryStorage implements the audit Storage interface with an in-memory
// map. Intended for tests and for deployments that explicitly opt out of
// durable audit storage.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*audit.Record
	failErr error
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists an audit record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return audit.NewStorageError("memory", "store", err)
	}

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query retrieves audit records matching the query filters, sorted by
// timestamp descending unless the query says otherwise. Invalid queries
// are rejected with the same validator the SQLite backend uses.
func (s *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	query.ApplyDefaults(q)

	s.mu.RLock()

	var results []*audit.Record
	for _, record := range s.records {
		if matchesQuery(record, q) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	sortRecords(results, q)

	if q.Offset >= len(results) {
		return []*audit.Record{}, nil
	}
	results = results[q.Offset:]
	if q.Limit != audit.UnlimitedLimit && q.Limit < len(results) {
		results = results[:q.Limit]
	}

	return results, nil
}

// QueryStream returns a channel of records for streaming consumption.
// Both channels are closed when the query completes or errors.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		results, err := s.Query(ctx, q)
		if err != nil {
			errCh <- err
			return
		}

		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, q) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return 0, audit.NewStorageError("memory", "delete", err)
	}

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, q) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// FailNextWrite arms a one-shot failure for the next mutating call.
// Test hook.
func (s *MemoryStorage) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// takeFailure consumes an armed failure. Caller holds the lock.
func (s *MemoryStorage) takeFailure() error {
	err := s.failErr
	s.failErr = nil
	return err
}

// GetByID retrieves a single record by ID. Test hook.
func (s *MemoryStorage) GetByID(id string) *audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	recordCopy := *record
	return &recordCopy
}

// Size returns the number of stored records. Test hook.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *audit.Record, q *audit.Query) bool {
	if q.StartTime != nil && record.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.Timestamp.After(*q.EndTime) {
		return false
	}

	if q.Actor != "" && record.Context.Actor != q.Actor {
		return false
	}
	if q.SourceSystem != "" && record.Context.SourceSystem != q.SourceSystem {
		return false
	}
	if q.PolicyName != "" && record.Policy.Name != q.PolicyName {
		return false
	}

	if q.HIPAACompliant != nil && record.Compliance.HIPAACompliant != *q.HIPAACompliant {
		return false
	}
	if q.GDPRCompliant != nil && record.Compliance.GDPRCompliant != *q.GDPRCompliant {
		return false
	}
	if q.ValidationPassed != nil && record.Summary.ValidationPassed != *q.ValidationPassed {
		return false
	}

	return true
}

// sortRecords orders results per the query, defaulting to timestamp
// descending.
func sortRecords(records []*audit.Record, q *audit.Query) {
	ascending := q.SortOrder == "asc"

	less := func(a, b *audit.Record) bool {
		switch q.SortBy {
		case "policy_name":
			if a.Policy.Name != b.Policy.Name {
				return a.Policy.Name < b.Policy.Name
			}
		case "actor":
			if a.Context.Actor != b.Context.Actor {
				return a.Context.Actor < b.Context.Actor
			}
		}
		return a.Timestamp.Before(b.Timestamp)
	}

	sort.Slice(records, func(i, j int) bool {
		if ascending {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}
