package policy

import (
	"context"
	"time"
)

// Status represents the lifecycle state of a policy version.
type Status string

const (
	// StatusDraft is the initial state of every new policy version.
	StatusDraft Status = "draft"

	// StatusPendingApproval means the policy has been submitted and is
	// waiting for its approval quorum.
	StatusPendingApproval Status = "pending_approval"

	// StatusApproved means the approval quorum was reached. Approved
	// policies are enforceable.
	StatusApproved Status = "approved"

	// StatusRejected means an approver rejected the policy. Terminal.
	StatusRejected Status = "rejected"

	// StatusEmergencyApproved means the policy was activated through the
	// emergency bypass and requires post-hoc review. Enforceable.
	StatusEmergencyApproved Status = "emergency_approved"

	// StatusSuperseded means a newer version of the same policy name
	// replaced this one. Terminal.
	StatusSuperseded Status = "superseded"

	// StatusRolledBack means this version was reverted in favor of a
	// clone of its predecessor. Terminal.
	StatusRolledBack Status = "rolled_back"
)

// Active reports whether a policy in this status is currently enforceable.
func (s Status) Active() bool {
	return s == StatusApproved || s == StatusEmergencyApproved
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusSuperseded || s == StatusRolledBack
}

// Workflow identifies the approval workflow kind for a policy.
type Workflow string

const (
	// WorkflowSingle requires one approval.
	WorkflowSingle Workflow = "single"

	// WorkflowDual requires two distinct approvers.
	WorkflowDual Workflow = "dual"

	// WorkflowCommittee requires three distinct approvers.
	WorkflowCommittee Workflow = "committee"
)

// RequiredApprovals returns the distinct-approver quorum for the workflow.
// Unknown workflows default to the dual quorum; configuration validation
// rejects unknown kinds before a manager is constructed.
func (w Workflow) RequiredApprovals() int {
	switch w {
	case WorkflowSingle:
		return 1
	case WorkflowDual:
		return 2
	case WorkflowCommittee:
		return 3
	default:
		return 2
	}
}

// Valid reports whether the workflow kind is recognized.
func (w Workflow) Valid() bool {
	switch w {
	case WorkflowSingle, WorkflowDual, WorkflowCommittee:
		return true
	}
	return false
}

// TagConfig classifies tags into the three anonymization actions.
// The sets must be pairwise disjoint; ValidateTagConfig enforces both
// the tag format and the disjointness rules.
type TagConfig struct {
	// Remove lists tags whose values are deleted entirely.
	Remove []string `json:"remove" yaml:"remove"`

	// Pseudonymize lists tags whose values are replaced with stable
	// pseudonyms.
	Pseudonymize []string `json:"pseudonymize" yaml:"pseudonymize"`

	// Preserve lists tags whose values pass through unchanged.
	Preserve []string `json:"preserve" yaml:"preserve"`
}

// Clone returns a deep copy of the tag configuration.
func (t TagConfig) Clone() TagConfig {
	return TagConfig{
		Remove:       append([]string(nil), t.Remove...),
		Pseudonymize: append([]string(nil), t.Pseudonymize...),
		Preserve:     append([]string(nil), t.Preserve...),
	}
}

// Approval records one approver's vote on a policy version.
type Approval struct {
	// Approver is the identity string supplied by the caller. The core
	// records who claims to have acted; it never authenticates.
	Approver string `json:"approver"`

	// Comment is the approver's free-text comment, if any.
	Comment string `json:"comment,omitempty"`

	// ApprovedAt is when the approval was recorded.
	ApprovedAt time.Time `json:"approved_at"`
}

// Rejection records an approver's rejection of a policy version.
type Rejection struct {
	Approver   string    `json:"approver"`
	Reason     string    `json:"reason,omitempty"`
	RejectedAt time.Time `json:"rejected_at"`
}

// ApprovalInfo carries the approval bookkeeping for one policy version.
type ApprovalInfo struct {
	// Required indicates whether this policy must pass an approval
	// workflow before it becomes enforceable.
	Required bool `json:"required"`

	// Workflow is the approval workflow kind.
	Workflow Workflow `json:"workflow"`

	// Approved is set once the quorum is reached or the emergency
	// bypass is applied.
	Approved bool `json:"approved"`

	// Approvals is the frozen approval history.
	Approvals []Approval `json:"approvals,omitempty"`

	// EmergencyJustification is the verbatim justification supplied for
	// an emergency activation.
	EmergencyJustification string `json:"emergency_justification,omitempty"`

	// RequiresPostApproval flags emergency-activated policies for
	// mandatory later review.
	RequiresPostApproval bool `json:"requires_post_approval,omitempty"`
}

// ComplianceFlags carries compliance review bookkeeping for a policy.
type ComplianceFlags struct {
	HIPAAReviewed bool `json:"hipaa_reviewed"`
	GDPRReviewed  bool `json:"gdpr_reviewed"`
}

// Policy is one immutable version of a named anonymization ruleset.
//
// Exactly one latest version per Name is addressable by name; older
// versions remain retrievable by ID only. Content fields are fixed at
// creation; only Status and Approval bookkeeping change afterwards.
type Policy struct {
	// ID uniquely identifies this policy version (UUID v4).
	ID string `json:"id"`

	// Name is the logical policy family (e.g. "ChestCT").
	Name string `json:"name"`

	// Version is the dotted major.minor version, monotonically
	// increasing within a name. Comparison is numeric per segment.
	Version string `json:"version"`

	// Description is an optional human-readable summary.
	Description string `json:"description,omitempty"`

	// Tags is the anonymization tag classification.
	Tags TagConfig `json:"tags"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Approval is the approval bookkeeping for this version.
	Approval ApprovalInfo `json:"approval"`

	// Compliance carries compliance review flags.
	Compliance ComplianceFlags `json:"compliance"`

	// Lineage back-references. All are policy IDs.
	PreviousVersion string `json:"previous_version,omitempty"`
	SupersededBy    string `json:"superseded_by,omitempty"`
	RollbackFrom    string `json:"rollback_from,omitempty"`
	RollbackTo      string `json:"rollback_to,omitempty"`

	// CreatedBy is the actor identity that created this version.
	CreatedBy string `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Tags = p.Tags.Clone()
	clone.Approval.Approvals = append([]Approval(nil), p.Approval.Approvals...)
	return &clone
}

// ApprovalRequest is the ephemeral workitem linking one policy version to
// a quorum of approvals or a rejection. It is removed from the pending set
// the moment the quorum is reached or a rejection is recorded.
type ApprovalRequest struct {
	// ID uniquely identifies the request (UUID v4).
	ID string `json:"id"`

	// PolicyID is the policy version under review.
	PolicyID string `json:"policy_id"`

	// Workflow determines the distinct-approver quorum.
	Workflow Workflow `json:"workflow"`

	// Approvals recorded so far. The same approver identity may appear
	// at most once.
	Approvals []Approval `json:"approvals,omitempty"`

	// Rejections recorded. A single rejection closes the request.
	Rejections []Rejection `json:"rejections,omitempty"`

	// RequestedBy is the actor that submitted the policy.
	RequestedBy string `json:"requested_by"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the approval request.
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Approvals = append([]Approval(nil), r.Approvals...)
	clone.Rejections = append([]Rejection(nil), r.Rejections...)
	return &clone
}

// HasApprover reports whether the given approver identity already
// approved this request.
func (r *ApprovalRequest) HasApprover(approver string) bool {
	for _, a := range r.Approvals {
		if a.Approver == approver {
			return true
		}
	}
	return false
}

// Store defines the persistence contract consumed by the policy manager.
// Implementations must be safe for concurrent use. The manager treats the
// store as an opaque document store; it never relies on backend-specific
// behavior beyond these operations.
type Store interface {
	// PutPolicy durably stores a policy document, replacing any existing
	// document with the same ID.
	PutPolicy(ctx context.Context, p *Policy) error

	// GetPolicy retrieves a policy document by ID.
	// Returns a *NotFoundError if the ID is unknown.
	GetPolicy(ctx context.Context, id string) (*Policy, error)

	// ListPolicies returns all stored policy documents.
	ListPolicies(ctx context.Context) ([]*Policy, error)

	// PutRequest durably stores an approval-request document.
	PutRequest(ctx context.Context, r *ApprovalRequest) error

	// GetRequest retrieves an approval-request document by ID.
	// Returns a *NotFoundError if the ID is unknown.
	GetRequest(ctx context.Context, id string) (*ApprovalRequest, error)

	// DeleteRequest removes a closed approval request from the pending set.
	DeleteRequest(ctx context.Context, id string) error

	// ListRequests returns all pending approval-request documents.
	ListRequests(ctx context.Context) ([]*ApprovalRequest, error)

	// Close releases resources held by the store.
	Close() error
}
