package storage

import (
	"context"
	"sync"

	"caduceus-hq/veil/pkg/policy"
)

// MemoryStore implements policy.Store using in-memory maps.
// This implementation is intended for testing only.
type MemoryStore struct {
	policies map[string]*policy.Policy
	requests map[string]*policy.ApprovalRequest
	mu       sync.RWMutex

	// failNext forces the next write to fail (for testing rollback paths).
	failNext error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*policy.Policy),
		requests: make(map[string]*policy.ApprovalRequest),
	}
}

// PutPolicy stores a copy of the policy document.
func (s *MemoryStore) PutPolicy(ctx context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return policy.NewStorageError("memory", "put_policy", err)
	}

	s.policies[p.ID] = p.Clone()
	return nil
}

// GetPolicy retrieves a policy document by ID.
func (s *MemoryStore) GetPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: id}
	}
	return p.Clone(), nil
}

// ListPolicies returns copies of all stored policy documents.
func (s *MemoryStore) ListPolicies(ctx context.Context) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]*policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		policies = append(policies, p.Clone())
	}
	return policies, nil
}

// PutRequest stores a copy of the approval-request document.
func (s *MemoryStore) PutRequest(ctx context.Context, r *policy.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return policy.NewStorageError("memory", "put_request", err)
	}

	s.requests[r.ID] = r.Clone()
	return nil
}

// GetRequest retrieves an approval-request document by ID.
func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*policy.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, &policy.NotFoundError{Kind: "approval request", ID: id}
	}
	return r.Clone(), nil
}

// DeleteRequest removes an approval request.
func (s *MemoryStore) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.requests, id)
	return nil
}

// ListRequests returns copies of all pending approval requests.
func (s *MemoryStore) ListRequests(ctx context.Context) ([]*policy.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]*policy.ApprovalRequest, 0, len(s.requests))
	for _, r := range s.requests {
		requests = append(requests, r.Clone())
	}
	return requests, nil
}

// Close releases store resources.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies = make(map[string]*policy.Policy)
	s.requests = make(map[string]*policy.ApprovalRequest)
	return nil
}

// FailNextWrite makes the next write operation return the given error.
// For testing storage failure handling.
func (s *MemoryStore) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext = err
}

// takeFailure must be called with the write lock held.
func (s *MemoryStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Size returns the number of stored policies (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.policies)
}
