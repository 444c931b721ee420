package manager

import (
	"sort"
	"sync"

	"caduceus-hq/veil/pkg/policy"
)

// Registry is a thread-safe in-memory view of policies and open approval
// requests. All reads return copies so callers can never mutate registry
// state. The Manager commits to the registry only after the durable store
// write has succeeded.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*policy.Policy
	requests map[string]*policy.ApprovalRequest

	// latest maps policy name to the ID of its highest version.
	latest map[string]string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]*policy.Policy),
		requests: make(map[string]*policy.ApprovalRequest),
		latest:   make(map[string]string),
	}
}

// Put stores a copy of the policy, replacing any existing entry with the
// same ID, and refreshes the name index.
func (r *Registry) Put(p *policy.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies[p.ID] = p.Clone()
	r.reindex(p.Name)
}

// Get retrieves a policy by ID.
func (r *Registry) Get(id string) (*policy.Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Latest retrieves the highest version of a policy by name, regardless of
// status.
func (r *Registry) Latest(name string) (*policy.Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.latest[name]
	if !ok {
		return nil, false
	}
	return r.policies[id].Clone(), true
}

// All returns copies of all policies sorted by name, then version.
func (r *Registry) All() []*policy.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policies := make([]*policy.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		policies = append(policies, p.Clone())
	}
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Name != policies[j].Name {
			return policies[i].Name < policies[j].Name
		}
		return policy.CompareVersions(policies[i].Version, policies[j].Version) < 0
	})
	return policies
}

// Active returns copies of all policies in an active status.
func (r *Registry) Active() []*policy.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*policy.Policy, 0)
	for _, p := range r.policies {
		if p.Status.Active() {
			active = append(active, p.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Name != active[j].Name {
			return active[i].Name < active[j].Name
		}
		return policy.CompareVersions(active[i].Version, active[j].Version) < 0
	})
	return active
}

// Count returns the number of policies in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.policies)
}

// PutRequest stores a copy of an approval request.
func (r *Registry) PutRequest(req *policy.ApprovalRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[req.ID] = req.Clone()
}

// GetRequest retrieves an approval request by ID.
func (r *Registry) GetRequest(id string) (*policy.ApprovalRequest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

// RequestForPolicy retrieves the open approval request for a policy, if any.
func (r *Registry) RequestForPolicy(policyID string) (*policy.ApprovalRequest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests {
		if req.PolicyID == policyID {
			return req.Clone(), true
		}
	}
	return nil, false
}

// DeleteRequest removes an approval request.
func (r *Registry) DeleteRequest(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.requests, id)
}

// Requests returns copies of all open approval requests.
func (r *Registry) Requests() []*policy.ApprovalRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requests := make([]*policy.ApprovalRequest, 0, len(r.requests))
	for _, req := range r.requests {
		requests = append(requests, req.Clone())
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests
}

// Replace atomically replaces the entire registry contents. Used when
// warming from the durable store.
func (r *Registry) Replace(policies []*policy.Policy, requests []*policy.ApprovalRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies = make(map[string]*policy.Policy, len(policies))
	r.requests = make(map[string]*policy.ApprovalRequest, len(requests))
	r.latest = make(map[string]string)

	names := make(map[string]struct{})
	for _, p := range policies {
		r.policies[p.ID] = p.Clone()
		names[p.Name] = struct{}{}
	}
	for _, req := range requests {
		r.requests[req.ID] = req.Clone()
	}
	for name := range names {
		r.reindex(name)
	}
}

// reindex recomputes the latest-version index for a name.
// Must be called with the write lock held.
func (r *Registry) reindex(name string) {
	var bestID string
	var bestVersion string
	for id, p := range r.policies {
		if p.Name != name {
			continue
		}
		if bestID == "" || policy.CompareVersions(p.Version, bestVersion) > 0 {
			bestID = id
			bestVersion = p.Version
		}
	}
	if bestID == "" {
		delete(r.latest, name)
		return
	}
	r.latest[name] = bestID
}
