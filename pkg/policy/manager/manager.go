package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"caduceus-hq/veil/pkg/config"
	"caduceus-hq/veil/pkg/policy"
	"caduceus-hq/veil/pkg/telemetry/metrics"
)

// PolicyInput describes a new policy to create.
type PolicyInput struct {
	// Name identifies the policy family. Required.
	Name string

	// Description is free-text documentation for reviewers.
	Description string

	// Version is the initial version. Defaults to "1.0".
	Version string

	// Tags is the anonymization tag configuration.
	Tags policy.TagConfig

	// Compliance carries reviewer-set compliance flags.
	Compliance policy.ComplianceFlags
}

// PolicyUpdate describes changes for a new policy version. Nil fields are
// carried forward from the current version.
type PolicyUpdate struct {
	Description *string
	Tags        *policy.TagConfig
	Compliance  *policy.ComplianceFlags
}

// ApprovalResult reports the outcome of recording a single approval.
type ApprovalResult struct {
	// QuorumReached is true when this approval completed the workflow
	// and the policy became active.
	QuorumReached bool

	// Approvals is the number of approvals recorded so far.
	Approvals int

	// Required is the workflow quorum.
	Required int

	// Policy is the approved policy when QuorumReached is true.
	Policy *policy.Policy
}

// Manager coordinates the policy lifecycle. All state transitions are
// serialized through a single mutex and written to the durable store
// before the in-memory registry is updated.
type Manager struct {
	config   *config.PolicyConfig
	store    policy.Store
	registry *Registry
	workflow policy.Workflow
	logger   *slog.Logger
	metrics  *metrics.PolicyMetrics

	mu sync.Mutex
}

// NewManager creates a new policy manager.
func NewManager(cfg *config.PolicyConfig, store policy.Store, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	workflow := policy.Workflow(cfg.ApprovalWorkflow)
	if !workflow.Valid() {
		return nil, fmt.Errorf("unknown approval workflow %q", cfg.ApprovalWorkflow)
	}

	return &Manager{
		config:   cfg,
		store:    store,
		registry: NewRegistry(),
		workflow: workflow,
		logger:   logger.With("component", "policy.manager"),
	}, nil
}

// SetMetrics attaches a metrics subsystem. Safe to leave unset; all
// recording is skipped when nil.
func (m *Manager) SetMetrics(pm *metrics.PolicyMetrics) {
	m.metrics = pm
}

// Load warms the in-memory registry from the durable store. It should be
// called once at startup before the manager serves requests.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	startTime := time.Now()

	policies, err := m.store.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	requests, err := m.store.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to load approval requests: %w", err)
	}

	m.registry.Replace(policies, requests)
	m.updateActiveGauge()

	m.logger.Info("Policies loaded",
		"policies", len(policies),
		"open_requests", len(requests),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return nil
}

// CreatePolicy validates and creates a new draft policy. When approval is
// required by configuration, the draft is submitted immediately and the
// returned policy is in pending_approval. If that submission fails, the
// already-persisted draft is returned alongside the error so the caller
// can retry the submission.
func (m *Manager) CreatePolicy(ctx context.Context, input PolicyInput, actor string) (*policy.Policy, error) {
	if input.Name == "" {
		return nil, &policy.ValidationError{Message: "policy name cannot be empty"}
	}
	if actor == "" {
		return nil, &policy.ValidationError{PolicyName: input.Name, Message: "actor cannot be empty"}
	}
	if result := policy.ValidateTagConfig(input.Tags); !result.OK {
		return nil, policy.NewTagValidationError(input.Name, result)
	}

	version := input.Version
	if version == "" {
		version = "1.0"
	}

	now := time.Now().UTC()
	p := &policy.Policy{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Version:     version,
		Description: input.Description,
		Tags:        input.Tags.Clone(),
		Status:      policy.StatusDraft,
		Approval: policy.ApprovalInfo{
			Required: m.config.RequireApproval,
			Workflow: m.workflow,
		},
		Compliance: input.Compliance,
		CreatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.PutPolicy(ctx, p); err != nil {
		return nil, err
	}
	m.registry.Put(p)
	m.recordTransition("", policy.StatusDraft)

	m.logger.Info("Policy created",
		"policy", p.Name,
		"version", p.Version,
		"id", p.ID,
		"created_by", actor,
	)

	if m.config.RequireApproval {
		if _, err := m.submitLocked(ctx, p, actor); err != nil {
			// The draft is already stored and registered.
			return p.Clone(), err
		}
	}

	return p.Clone(), nil
}

// UpdatePolicy creates a new version of an existing policy. The current
// version is marked superseded and linked to its successor. When approval
// is required, the new version is submitted immediately; if that
// submission fails, the persisted draft is returned alongside the error.
func (m *Manager) UpdatePolicy(ctx context.Context, id string, changes PolicyUpdate, actor string) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.registry.Get(id)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: id}
	}
	if current.Status.Terminal() {
		return nil, &policy.InvalidStateError{
			PolicyID:  id,
			Status:    current.Status,
			Operation: "update",
		}
	}

	next := current.Clone()
	if changes.Description != nil {
		next.Description = *changes.Description
	}
	if changes.Tags != nil {
		next.Tags = changes.Tags.Clone()
	}
	if changes.Compliance != nil {
		next.Compliance = *changes.Compliance
	}
	if result := policy.ValidateTagConfig(next.Tags); !result.OK {
		return nil, policy.NewTagValidationError(next.Name, result)
	}

	now := time.Now().UTC()
	next.ID = uuid.NewString()
	next.Version = policy.BumpMinor(current.Version)
	next.Status = policy.StatusDraft
	next.Approval = policy.ApprovalInfo{
		Required: m.config.RequireApproval,
		Workflow: m.workflow,
	}
	next.PreviousVersion = current.ID
	next.SupersededBy = ""
	next.RollbackFrom = ""
	next.RollbackTo = ""
	next.CreatedBy = actor
	next.CreatedAt = now
	next.UpdatedAt = now

	prior := current.Clone()
	prior.Status = policy.StatusSuperseded
	prior.SupersededBy = next.ID
	prior.UpdatedAt = now

	if err := m.store.PutPolicy(ctx, next); err != nil {
		return nil, err
	}
	if err := m.store.PutPolicy(ctx, prior); err != nil {
		return nil, err
	}
	m.registry.Put(next)
	m.registry.Put(prior)
	m.recordTransition(current.Status, policy.StatusSuperseded)
	m.recordTransition("", policy.StatusDraft)
	m.updateActiveGauge()

	// An open request for the superseded version is moot.
	if req, ok := m.registry.RequestForPolicy(prior.ID); ok {
		if err := m.store.DeleteRequest(ctx, req.ID); err == nil {
			m.registry.DeleteRequest(req.ID)
		}
	}

	m.logger.Info("Policy updated",
		"policy", next.Name,
		"version", next.Version,
		"previous_version", current.Version,
		"updated_by", actor,
	)

	if m.config.RequireApproval {
		if _, err := m.submitLocked(ctx, next, actor); err != nil {
			// The new draft is already stored and registered.
			return next.Clone(), err
		}
	}

	return next.Clone(), nil
}

// SubmitForApproval moves a draft policy into the approval workflow and
// opens an approval request for it.
func (m *Manager) SubmitForApproval(ctx context.Context, policyID, actor string) (*policy.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.registry.Get(policyID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: policyID}
	}
	return m.submitLocked(ctx, p, actor)
}

// submitLocked opens an approval request for a draft policy.
// Must be called with m.mu held. Mutates p to pending_approval.
func (m *Manager) submitLocked(ctx context.Context, p *policy.Policy, actor string) (*policy.ApprovalRequest, error) {
	if p.Status != policy.StatusDraft {
		return nil, &policy.InvalidStateError{
			PolicyID:  p.ID,
			Status:    p.Status,
			Operation: "submit_for_approval",
		}
	}

	req := &policy.ApprovalRequest{
		ID:          uuid.NewString(),
		PolicyID:    p.ID,
		Workflow:    m.workflow,
		RequestedBy: actor,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.store.PutRequest(ctx, req); err != nil {
		return nil, err
	}

	pending := p.Clone()
	pending.Status = policy.StatusPendingApproval
	pending.UpdatedAt = time.Now().UTC()

	if err := m.store.PutPolicy(ctx, pending); err != nil {
		// Best effort: do not leave a dangling request behind.
		_ = m.store.DeleteRequest(ctx, req.ID)
		return nil, err
	}

	m.registry.PutRequest(req)
	m.registry.Put(pending)
	*p = *pending
	m.recordTransition(policy.StatusDraft, policy.StatusPendingApproval)

	m.logger.Info("Policy submitted for approval",
		"policy", p.Name,
		"version", p.Version,
		"workflow", string(m.workflow),
		"required_approvals", m.workflow.RequiredApprovals(),
		"requested_by", actor,
	)

	return req, nil
}

// Approve records one approval on an open request. Each approver identity
// may approve at most once. When the workflow quorum is reached the policy
// becomes approved and the request is closed.
func (m *Manager) Approve(ctx context.Context, requestID, approver, comment string) (*ApprovalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.registry.GetRequest(requestID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "approval request", ID: requestID}
	}
	if req.HasApprover(approver) {
		m.recordApproval("duplicate")
		return nil, &policy.DuplicateApprovalError{RequestID: requestID, Approver: approver}
	}

	p, ok := m.registry.Get(req.PolicyID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: req.PolicyID}
	}
	if p.Status != policy.StatusPendingApproval {
		return nil, &policy.InvalidStateError{
			PolicyID:  p.ID,
			Status:    p.Status,
			Operation: "approve",
		}
	}

	now := time.Now().UTC()
	req.Approvals = append(req.Approvals, policy.Approval{
		Approver:   approver,
		Comment:    comment,
		ApprovedAt: now,
	})

	required := req.Workflow.RequiredApprovals()

	if len(req.Approvals) < required {
		if err := m.store.PutRequest(ctx, req); err != nil {
			return nil, err
		}
		m.registry.PutRequest(req)
		m.recordApproval("approve")

		m.logger.Info("Approval recorded",
			"policy", p.Name,
			"version", p.Version,
			"approver", approver,
			"approvals", len(req.Approvals),
			"required", required,
		)

		return &ApprovalResult{
			Approvals: len(req.Approvals),
			Required:  required,
		}, nil
	}

	// Quorum reached: activate the policy and close the request.
	approved := p.Clone()
	approved.Status = policy.StatusApproved
	approved.Approval.Approved = true
	approved.Approval.Approvals = append([]policy.Approval(nil), req.Approvals...)
	approved.UpdatedAt = now

	if err := m.store.PutPolicy(ctx, approved); err != nil {
		return nil, err
	}
	if err := m.store.DeleteRequest(ctx, req.ID); err != nil {
		m.logger.Warn("Failed to delete closed approval request",
			"request_id", req.ID,
			"error", err,
		)
	}

	m.registry.Put(approved)
	m.registry.DeleteRequest(req.ID)
	m.recordApproval("approve")
	m.recordTransition(policy.StatusPendingApproval, policy.StatusApproved)
	m.updateActiveGauge()

	m.logger.Info("Policy approved",
		"policy", approved.Name,
		"version", approved.Version,
		"approver", approver,
		"approvals", len(req.Approvals),
	)

	return &ApprovalResult{
		QuorumReached: true,
		Approvals:     len(req.Approvals),
		Required:      required,
		Policy:        approved.Clone(),
	}, nil
}

// Reject records a rejection on an open request. A single rejection closes
// the request and moves the policy to rejected regardless of approvals
// already collected.
func (m *Manager) Reject(ctx context.Context, requestID, approver, reason string) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.registry.GetRequest(requestID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "approval request", ID: requestID}
	}

	p, ok := m.registry.Get(req.PolicyID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: req.PolicyID}
	}
	if p.Status != policy.StatusPendingApproval {
		return nil, &policy.InvalidStateError{
			PolicyID:  p.ID,
			Status:    p.Status,
			Operation: "reject",
		}
	}

	now := time.Now().UTC()
	req.Rejections = append(req.Rejections, policy.Rejection{
		Approver:   approver,
		Reason:     reason,
		RejectedAt: now,
	})

	rejected := p.Clone()
	rejected.Status = policy.StatusRejected
	rejected.UpdatedAt = now

	if err := m.store.PutPolicy(ctx, rejected); err != nil {
		return nil, err
	}
	if err := m.store.DeleteRequest(ctx, req.ID); err != nil {
		m.logger.Warn("Failed to delete closed approval request",
			"request_id", req.ID,
			"error", err,
		)
	}

	m.registry.Put(rejected)
	m.registry.DeleteRequest(req.ID)
	m.recordApproval("reject")
	m.recordTransition(policy.StatusPendingApproval, policy.StatusRejected)

	m.logger.Info("Policy rejected",
		"policy", rejected.Name,
		"version", rejected.Version,
		"rejected_by", approver,
	)

	return rejected.Clone(), nil
}

// EmergencyActivate activates a policy without quorum. It is only
// permitted when the emergency bypass is enabled in configuration, requires
// a justification, and flags the policy for mandatory post-hoc review.
func (m *Manager) EmergencyActivate(ctx context.Context, policyID, actor, justification string) (*policy.Policy, error) {
	if !m.config.EmergencyBypass {
		return nil, policy.ErrEmergencyBypassDisabled
	}
	if justification == "" {
		return nil, &policy.ValidationError{Message: "emergency activation requires a justification"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.registry.Get(policyID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: policyID}
	}
	if p.Status != policy.StatusDraft && p.Status != policy.StatusPendingApproval {
		return nil, &policy.InvalidStateError{
			PolicyID:  policyID,
			Status:    p.Status,
			Operation: "emergency_activate",
		}
	}

	now := time.Now().UTC()
	activated := p.Clone()
	activated.Status = policy.StatusEmergencyApproved
	activated.Approval.Approved = true
	activated.Approval.Approvals = []policy.Approval{{
		Approver:   actor,
		Comment:    "emergency activation",
		ApprovedAt: now,
	}}
	activated.Approval.EmergencyJustification = justification
	activated.Approval.RequiresPostApproval = true
	activated.UpdatedAt = now

	if err := m.store.PutPolicy(ctx, activated); err != nil {
		return nil, err
	}

	// Close any open request for this policy.
	if req, ok := m.registry.RequestForPolicy(policyID); ok {
		if err := m.store.DeleteRequest(ctx, req.ID); err == nil {
			m.registry.DeleteRequest(req.ID)
		}
	}

	m.registry.Put(activated)
	m.recordTransition(p.Status, policy.StatusEmergencyApproved)
	if m.metrics != nil {
		m.metrics.RecordEmergencyActivation()
	}
	m.updateActiveGauge()

	m.logger.Warn("Policy emergency-activated",
		"policy", activated.Name,
		"version", activated.Version,
		"activated_by", actor,
		"requires_post_approval", true,
	)

	return activated.Clone(), nil
}

// Rollback deactivates an active policy and restores its predecessor's
// content as a new approved version. The restored version carries lineage
// links in both directions.
func (m *Manager) Rollback(ctx context.Context, policyID, actor, reason string) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.registry.Get(policyID)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: policyID}
	}
	if !p.Status.Active() {
		return nil, &policy.InvalidStateError{
			PolicyID:  policyID,
			Status:    p.Status,
			Operation: "rollback",
		}
	}
	if p.PreviousVersion == "" {
		return nil, &policy.NoPreviousVersionError{PolicyID: policyID}
	}

	prev, ok := m.registry.Get(p.PreviousVersion)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: p.PreviousVersion}
	}

	now := time.Now().UTC()
	restored := prev.Clone()
	restored.ID = uuid.NewString()
	restored.Version = policy.BumpMinor(p.Version)
	restored.Status = policy.StatusApproved
	restored.Approval = policy.ApprovalInfo{
		Required: p.Approval.Required,
		Workflow: m.workflow,
		Approved: true,
		Approvals: []policy.Approval{{
			Approver:   actor,
			Comment:    "rollback: " + reason,
			ApprovedAt: now,
		}},
	}
	restored.PreviousVersion = p.ID
	restored.SupersededBy = ""
	restored.RollbackFrom = p.ID
	restored.RollbackTo = ""
	restored.CreatedBy = actor
	restored.CreatedAt = now
	restored.UpdatedAt = now

	rolledBack := p.Clone()
	rolledBack.Status = policy.StatusRolledBack
	rolledBack.RollbackTo = restored.ID
	rolledBack.UpdatedAt = now

	if err := m.store.PutPolicy(ctx, restored); err != nil {
		return nil, err
	}
	if err := m.store.PutPolicy(ctx, rolledBack); err != nil {
		return nil, err
	}

	m.registry.Put(restored)
	m.registry.Put(rolledBack)
	m.recordTransition(p.Status, policy.StatusRolledBack)
	m.recordTransition("", policy.StatusApproved)
	if m.metrics != nil {
		m.metrics.RecordRollback()
	}
	m.updateActiveGauge()

	m.logger.Info("Policy rolled back",
		"policy", p.Name,
		"from_version", p.Version,
		"restored_version", restored.Version,
		"rolled_back_by", actor,
	)

	return restored.Clone(), nil
}

// PolicyByID retrieves a policy by ID.
func (m *Manager) PolicyByID(id string) (*policy.Policy, error) {
	p, ok := m.registry.Get(id)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: id}
	}
	return p, nil
}

// PolicyByName retrieves the highest version of a policy by name,
// regardless of status. Version order is numeric per dotted segment.
func (m *Manager) PolicyByName(name string) (*policy.Policy, error) {
	p, ok := m.registry.Latest(name)
	if !ok {
		return nil, &policy.NotFoundError{Kind: "policy", ID: name}
	}
	return p, nil
}

// ActivePolicies returns all policies currently in an active status.
func (m *Manager) ActivePolicies() []*policy.Policy {
	return m.registry.Active()
}

// AllPolicies returns all policies regardless of status.
func (m *Manager) AllPolicies() []*policy.Policy {
	return m.registry.All()
}

// PendingRequests returns all open approval requests.
func (m *Manager) PendingRequests() []*policy.ApprovalRequest {
	return m.registry.Requests()
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) recordTransition(from, to policy.Status) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordTransition(string(from), string(to))
}

func (m *Manager) recordApproval(outcome string) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordApproval(string(m.workflow), outcome)
}

func (m *Manager) updateActiveGauge() {
	if m.metrics == nil {
		return
	}
	m.metrics.SetActivePolicies(len(m.registry.Active()))
}
