package manager

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"caduceus-hq/veil/pkg/config"
	"caduceus-hq/veil/pkg/policy"
	"caduceus-hq/veil/pkg/policy/storage"
)

func testConfig() *config.PolicyConfig {
	return &config.PolicyConfig{
		RequireApproval:  true,
		ApprovalWorkflow: "dual",
	}
}

func newTestManager(t *testing.T, cfg *config.PolicyConfig) (*Manager, *storage.MemoryStore) {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}
	store := storage.NewMemoryStore()
	mgr, err := NewManager(cfg, store, slog.Default())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr, store
}

func chestCTInput() PolicyInput {
	return PolicyInput{
		Name:        "ChestCT",
		Description: "Chest CT anonymization",
		Tags: policy.TagConfig{
			Remove:       []string{"(0010,0010)", "(0010,0030)"},
			Pseudonymize: []string{"(0010,0020)"},
			Preserve:     []string{"(0008,0060)"},
		},
	}
}

// pendingRequestFor finds the open request for a policy.
func pendingRequestFor(t *testing.T, mgr *Manager, policyID string) *policy.ApprovalRequest {
	t.Helper()

	for _, req := range mgr.PendingRequests() {
		if req.PolicyID == policyID {
			return req
		}
	}
	t.Fatalf("no pending request for policy %q", policyID)
	return nil
}

// createApproved creates a policy and walks it through the dual workflow.
func createApproved(t *testing.T, mgr *Manager, input PolicyInput) *policy.Policy {
	t.Helper()
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, input, "dr.adams")
	if err != nil {
		t.Fatalf("CreatePolicy() error = %v", err)
	}
	req := pendingRequestFor(t, mgr, p.ID)

	if _, err := mgr.Approve(ctx, req.ID, "dr.baker", "lgtm"); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}
	result, err := mgr.Approve(ctx, req.ID, "dr.chen", "lgtm")
	if err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}
	if !result.QuorumReached {
		t.Fatal("second approval did not reach quorum")
	}
	return result.Policy
}

func TestNewManager_UnknownWorkflow(t *testing.T) {
	_, err := NewManager(&config.PolicyConfig{ApprovalWorkflow: "triple"}, storage.NewMemoryStore(), nil)
	if err == nil {
		t.Error("NewManager() error = nil, want error for unknown workflow")
	}
}

func TestCreatePolicy_DraftWithoutApproval(t *testing.T) {
	mgr, _ := newTestManager(t, &config.PolicyConfig{
		RequireApproval:  false,
		ApprovalWorkflow: "dual",
	})

	p, err := mgr.CreatePolicy(context.Background(), chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatalf("CreatePolicy() error = %v", err)
	}

	if p.Status != policy.StatusDraft {
		t.Errorf("Status = %q, want %q", p.Status, policy.StatusDraft)
	}
	if p.Version != "1.0" {
		t.Errorf("Version = %q, want %q", p.Version, "1.0")
	}
	if p.Approval.Required {
		t.Error("Approval.Required = true, want false")
	}
	if len(mgr.PendingRequests()) != 0 {
		t.Errorf("pending requests = %d, want 0", len(mgr.PendingRequests()))
	}
}

func TestCreatePolicy_AutoSubmitsWhenRequired(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	p, err := mgr.CreatePolicy(context.Background(), chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatalf("CreatePolicy() error = %v", err)
	}

	if p.Status != policy.StatusPendingApproval {
		t.Errorf("Status = %q, want %q", p.Status, policy.StatusPendingApproval)
	}
	req := pendingRequestFor(t, mgr, p.ID)
	if req.Workflow != policy.WorkflowDual {
		t.Errorf("request workflow = %q, want %q", req.Workflow, policy.WorkflowDual)
	}
	if req.RequestedBy != "dr.adams" {
		t.Errorf("RequestedBy = %q, want %q", req.RequestedBy, "dr.adams")
	}
}

func TestCreatePolicy_InvalidTags(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	input := chestCTInput()
	input.Tags.Preserve = append(input.Tags.Preserve, "(0010,0010)") // also in remove

	_, err := mgr.CreatePolicy(context.Background(), input, "dr.adams")

	var verr *policy.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreatePolicy() error = %v, want *ValidationError", err)
	}
	if len(verr.Violations) != 1 {
		t.Errorf("violations = %d, want 1", len(verr.Violations))
	}
	if mgr.registry.Count() != 0 {
		t.Errorf("registry count = %d, want 0 after failed create", mgr.registry.Count())
	}
}

func TestCreatePolicy_EmptyName(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	if _, err := mgr.CreatePolicy(context.Background(), PolicyInput{}, "dr.adams"); err == nil {
		t.Error("CreatePolicy() error = nil, want error for empty name")
	}
}

func TestCreatePolicy_StorageFailureLeavesNoState(t *testing.T) {
	mgr, store := newTestManager(t, nil)

	store.FailNextWrite(errors.New("disk full"))

	_, err := mgr.CreatePolicy(context.Background(), chestCTInput(), "dr.adams")

	var serr *policy.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("CreatePolicy() error = %v, want *StorageError", err)
	}
	if mgr.registry.Count() != 0 {
		t.Errorf("registry count = %d, want 0 after storage failure", mgr.registry.Count())
	}
	if store.Size() != 0 {
		t.Errorf("store size = %d, want 0 after storage failure", store.Size())
	}
}

func TestApprove_DualWorkflowQuorum(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}
	req := pendingRequestFor(t, mgr, p.ID)

	// First approval: recorded but quorum not reached.
	result, err := mgr.Approve(ctx, req.ID, "dr.baker", "reviewed")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.QuorumReached {
		t.Error("QuorumReached = true after one of two approvals")
	}
	if result.Approvals != 1 || result.Required != 2 {
		t.Errorf("Approvals/Required = %d/%d, want 1/2", result.Approvals, result.Required)
	}

	got, err := mgr.PolicyByID(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != policy.StatusPendingApproval {
		t.Errorf("Status after one approval = %q, want %q", got.Status, policy.StatusPendingApproval)
	}

	// Second distinct approver completes the quorum.
	result, err = mgr.Approve(ctx, req.ID, "dr.chen", "agreed")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if !result.QuorumReached {
		t.Fatal("QuorumReached = false after two approvals")
	}
	if result.Policy.Status != policy.StatusApproved {
		t.Errorf("Status = %q, want %q", result.Policy.Status, policy.StatusApproved)
	}
	if !result.Policy.Approval.Approved {
		t.Error("Approval.Approved = false after quorum")
	}
	if len(result.Policy.Approval.Approvals) != 2 {
		t.Errorf("approval history = %d entries, want 2", len(result.Policy.Approval.Approvals))
	}
	if len(mgr.PendingRequests()) != 0 {
		t.Errorf("pending requests = %d, want 0 after quorum", len(mgr.PendingRequests()))
	}
	if len(mgr.ActivePolicies()) != 1 {
		t.Errorf("active policies = %d, want 1", len(mgr.ActivePolicies()))
	}
}

func TestApprove_DuplicateApproverRejected(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}
	req := pendingRequestFor(t, mgr, p.ID)

	if _, err := mgr.Approve(ctx, req.ID, "dr.baker", ""); err != nil {
		t.Fatal(err)
	}

	_, err = mgr.Approve(ctx, req.ID, "dr.baker", "again")

	var dup *policy.DuplicateApprovalError
	if !errors.As(err, &dup) {
		t.Fatalf("Approve() error = %v, want *DuplicateApprovalError", err)
	}
	if dup.Approver != "dr.baker" {
		t.Errorf("Approver = %q, want %q", dup.Approver, "dr.baker")
	}

	// The duplicate did not count toward the quorum.
	got := pendingRequestFor(t, mgr, p.ID)
	if len(got.Approvals) != 1 {
		t.Errorf("approvals = %d, want 1 after duplicate", len(got.Approvals))
	}
}

func TestApprove_WorkflowQuorums(t *testing.T) {
	tests := []struct {
		workflow  string
		approvers []string
	}{
		{"single", []string{"dr.baker"}},
		{"dual", []string{"dr.baker", "dr.chen"}},
		{"committee", []string{"dr.baker", "dr.chen", "dr.diaz"}},
	}

	for _, tt := range tests {
		t.Run(tt.workflow, func(t *testing.T) {
			mgr, _ := newTestManager(t, &config.PolicyConfig{
				RequireApproval:  true,
				ApprovalWorkflow: tt.workflow,
			})
			ctx := context.Background()

			p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
			if err != nil {
				t.Fatal(err)
			}
			req := pendingRequestFor(t, mgr, p.ID)

			for i, approver := range tt.approvers {
				result, err := mgr.Approve(ctx, req.ID, approver, "")
				if err != nil {
					t.Fatalf("Approve(%q) error = %v", approver, err)
				}
				wantQuorum := i == len(tt.approvers)-1
				if result.QuorumReached != wantQuorum {
					t.Errorf("approval %d: QuorumReached = %v, want %v", i+1, result.QuorumReached, wantQuorum)
				}
			}
		})
	}
}

func TestReject_ClosesRequestImmediately(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}
	req := pendingRequestFor(t, mgr, p.ID)

	// One prior approval does not protect the policy from rejection.
	if _, err := mgr.Approve(ctx, req.ID, "dr.baker", ""); err != nil {
		t.Fatal(err)
	}

	rejected, err := mgr.Reject(ctx, req.ID, "dr.chen", "tag set incomplete")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if rejected.Status != policy.StatusRejected {
		t.Errorf("Status = %q, want %q", rejected.Status, policy.StatusRejected)
	}
	if len(mgr.PendingRequests()) != 0 {
		t.Errorf("pending requests = %d, want 0", len(mgr.PendingRequests()))
	}

	// A rejected policy accepts no further approvals.
	var notFound *policy.NotFoundError
	if _, err := mgr.Approve(ctx, req.ID, "dr.diaz", ""); !errors.As(err, &notFound) {
		t.Errorf("Approve() after reject error = %v, want *NotFoundError", err)
	}
}

func TestUpdatePolicy_VersionsAndSupersedes(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	approved := createApproved(t, mgr, chestCTInput())

	newTags := policy.TagConfig{
		Remove:       []string{"(0010,0010)", "(0010,0030)", "(0008,0080)"},
		Pseudonymize: []string{"(0010,0020)"},
	}
	updated, err := mgr.UpdatePolicy(ctx, approved.ID, PolicyUpdate{Tags: &newTags}, "dr.adams")
	if err != nil {
		t.Fatalf("UpdatePolicy() error = %v", err)
	}

	if updated.Version != "1.1" {
		t.Errorf("Version = %q, want %q", updated.Version, "1.1")
	}
	if updated.ID == approved.ID {
		t.Error("updated policy reuses the prior ID")
	}
	if updated.Status != policy.StatusPendingApproval {
		t.Errorf("Status = %q, want %q (resubmitted)", updated.Status, policy.StatusPendingApproval)
	}
	if updated.PreviousVersion != approved.ID {
		t.Errorf("PreviousVersion = %q, want %q", updated.PreviousVersion, approved.ID)
	}
	if len(updated.Tags.Remove) != 3 {
		t.Errorf("updated Remove tags = %d, want 3", len(updated.Tags.Remove))
	}

	prior, err := mgr.PolicyByID(approved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if prior.Status != policy.StatusSuperseded {
		t.Errorf("prior Status = %q, want %q", prior.Status, policy.StatusSuperseded)
	}
	if prior.SupersededBy != updated.ID {
		t.Errorf("prior SupersededBy = %q, want %q", prior.SupersededBy, updated.ID)
	}

	// Name resolution now yields the new version.
	latest, err := mgr.PolicyByName("ChestCT")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != updated.ID {
		t.Errorf("PolicyByName resolved %q, want the v1.1 policy", latest.Version)
	}
}

func TestUpdatePolicy_TerminalState(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}
	req := pendingRequestFor(t, mgr, p.ID)
	if _, err := mgr.Reject(ctx, req.ID, "dr.baker", "no"); err != nil {
		t.Fatal(err)
	}

	_, err = mgr.UpdatePolicy(ctx, p.ID, PolicyUpdate{}, "dr.adams")

	var stateErr *policy.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("UpdatePolicy() error = %v, want *InvalidStateError", err)
	}
}

func TestEmergencyActivate_DisabledByDefault(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}

	_, err = mgr.EmergencyActivate(ctx, p.ID, "dr.adams", "mass casualty event")
	if !errors.Is(err, policy.ErrEmergencyBypassDisabled) {
		t.Errorf("EmergencyActivate() error = %v, want ErrEmergencyBypassDisabled", err)
	}
}

func TestEmergencyActivate(t *testing.T) {
	mgr, _ := newTestManager(t, &config.PolicyConfig{
		RequireApproval:  true,
		ApprovalWorkflow: "dual",
		EmergencyBypass:  true,
	})
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}

	// Justification is mandatory.
	if _, err := mgr.EmergencyActivate(ctx, p.ID, "dr.adams", ""); err == nil {
		t.Error("EmergencyActivate() without justification error = nil, want error")
	}

	activated, err := mgr.EmergencyActivate(ctx, p.ID, "dr.adams", "mass casualty event")
	if err != nil {
		t.Fatalf("EmergencyActivate() error = %v", err)
	}

	if activated.Status != policy.StatusEmergencyApproved {
		t.Errorf("Status = %q, want %q", activated.Status, policy.StatusEmergencyApproved)
	}
	if !activated.Approval.RequiresPostApproval {
		t.Error("RequiresPostApproval = false, want true")
	}
	if activated.Approval.EmergencyJustification != "mass casualty event" {
		t.Errorf("EmergencyJustification = %q, want verbatim justification", activated.Approval.EmergencyJustification)
	}
	if len(activated.Approval.Approvals) != 1 {
		t.Errorf("approvals = %d, want 1 (the activating actor)", len(activated.Approval.Approvals))
	}
	if len(mgr.PendingRequests()) != 0 {
		t.Errorf("pending requests = %d, want 0 after emergency activation", len(mgr.PendingRequests()))
	}
	if len(mgr.ActivePolicies()) != 1 {
		t.Errorf("active policies = %d, want 1", len(mgr.ActivePolicies()))
	}
}

func TestEmergencyActivate_AlreadyActive(t *testing.T) {
	mgr, _ := newTestManager(t, &config.PolicyConfig{
		RequireApproval:  true,
		ApprovalWorkflow: "dual",
		EmergencyBypass:  true,
	})

	approved := createApproved(t, mgr, chestCTInput())

	_, err := mgr.EmergencyActivate(context.Background(), approved.ID, "dr.adams", "why not")

	var stateErr *policy.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("EmergencyActivate() error = %v, want *InvalidStateError", err)
	}
}

func TestRollback_NoPreviousVersion(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	approved := createApproved(t, mgr, chestCTInput())

	_, err := mgr.Rollback(context.Background(), approved.ID, "dr.adams", "mistake")

	var noPrev *policy.NoPreviousVersionError
	if !errors.As(err, &noPrev) {
		t.Fatalf("Rollback() error = %v, want *NoPreviousVersionError", err)
	}
}

func TestRollback_RestoresPredecessorContent(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	v1 := createApproved(t, mgr, chestCTInput())

	// Create and approve v1.1 with a different tag set.
	newTags := policy.TagConfig{Remove: []string{"(0010,0010)"}}
	v11, err := mgr.UpdatePolicy(ctx, v1.ID, PolicyUpdate{Tags: &newTags}, "dr.adams")
	if err != nil {
		t.Fatal(err)
	}
	req := pendingRequestFor(t, mgr, v11.ID)
	if _, err := mgr.Approve(ctx, req.ID, "dr.baker", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Approve(ctx, req.ID, "dr.chen", ""); err != nil {
		t.Fatal(err)
	}

	restored, err := mgr.Rollback(ctx, v11.ID, "dr.adams", "v1.1 strips too little")
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	// Restored version carries the predecessor's content under a new
	// version number, already approved.
	if restored.Version != "1.2" {
		t.Errorf("restored Version = %q, want %q", restored.Version, "1.2")
	}
	if restored.Status != policy.StatusApproved {
		t.Errorf("restored Status = %q, want %q", restored.Status, policy.StatusApproved)
	}
	if len(restored.Tags.Remove) != 2 || len(restored.Tags.Pseudonymize) != 1 {
		t.Errorf("restored tags = %+v, want v1.0 content", restored.Tags)
	}
	if restored.RollbackFrom != v11.ID {
		t.Errorf("RollbackFrom = %q, want %q", restored.RollbackFrom, v11.ID)
	}

	rolledBack, err := mgr.PolicyByID(v11.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rolledBack.Status != policy.StatusRolledBack {
		t.Errorf("rolled-back Status = %q, want %q", rolledBack.Status, policy.StatusRolledBack)
	}
	if rolledBack.RollbackTo != restored.ID {
		t.Errorf("RollbackTo = %q, want %q", rolledBack.RollbackTo, restored.ID)
	}

	// Exactly one active version remains.
	if len(mgr.ActivePolicies()) != 1 {
		t.Errorf("active policies = %d, want 1", len(mgr.ActivePolicies()))
	}
	latest, err := mgr.PolicyByName("ChestCT")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != restored.ID {
		t.Errorf("PolicyByName resolved %q, want the restored version", latest.Version)
	}
}

func TestRollback_InactivePolicy(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}

	_, err = mgr.Rollback(ctx, p.ID, "dr.adams", "not yet active")

	var stateErr *policy.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Rollback() error = %v, want *InvalidStateError", err)
	}
}

func TestLoad_WarmsFromStore(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first, err := NewManager(cfg, store, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	p, err := first.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err != nil {
		t.Fatal(err)
	}

	// A fresh manager over the same store sees the policy and the open
	// request after Load.
	second, err := NewManager(cfg, store, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, err := second.PolicyByID(p.ID)
	if err != nil {
		t.Fatalf("PolicyByID() after Load error = %v", err)
	}
	if got.Status != policy.StatusPendingApproval {
		t.Errorf("Status = %q, want %q", got.Status, policy.StatusPendingApproval)
	}
	if len(second.PendingRequests()) != 1 {
		t.Errorf("pending requests = %d, want 1", len(second.PendingRequests()))
	}
}

func TestPolicyByName_NumericVersionOrder(t *testing.T) {
	mgr, _ := newTestManager(t, &config.PolicyConfig{
		RequireApproval:  false,
		ApprovalWorkflow: "dual",
	})
	ctx := context.Background()

	for _, version := range []string{"1.9", "1.10", "1.2"} {
		input := chestCTInput()
		input.Version = version
		if _, err := mgr.CreatePolicy(ctx, input, "dr.adams"); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := mgr.PolicyByName("ChestCT")
	if err != nil {
		t.Fatal(err)
	}
	// 1.10 > 1.9 numerically, not lexically.
	if latest.Version != "1.10" {
		t.Errorf("PolicyByName version = %q, want %q", latest.Version, "1.10")
	}
}

// requestWriteFailStore fails the first PutRequest and delegates
// everything else to the embedded memory store.
type requestWriteFailStore struct {
	*storage.MemoryStore
	requestErr error
}

func (s *requestWriteFailStore) PutRequest(ctx context.Context, r *policy.ApprovalRequest) error {
	if s.requestErr != nil {
		err := s.requestErr
		s.requestErr = nil
		return policy.NewStorageError("memory", "put_request", err)
	}
	return s.MemoryStore.PutRequest(ctx, r)
}

func TestCreatePolicy_SubmitFailureReturnsDraft(t *testing.T) {
	store := &requestWriteFailStore{
		MemoryStore: storage.NewMemoryStore(),
		requestErr:  errors.New("disk full"),
	}
	mgr, err := NewManager(testConfig(), store, slog.Default())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx := context.Background()

	p, err := mgr.CreatePolicy(ctx, chestCTInput(), "dr.adams")
	if err == nil {
		t.Fatal("CreatePolicy() error = nil, want submission failure")
	}
	if p == nil {
		t.Fatal("CreatePolicy() policy = nil, want the persisted draft alongside the error")
	}
	if p.Status != policy.StatusDraft {
		t.Errorf("Status = %q, want %q", p.Status, policy.StatusDraft)
	}

	// The draft survived in the store and the registry, and can be
	// resubmitted once storage recovers.
	stored, err := store.GetPolicy(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if stored.Status != policy.StatusDraft {
		t.Errorf("stored status = %q, want %q", stored.Status, policy.StatusDraft)
	}

	if _, err := mgr.SubmitForApproval(ctx, p.ID, "dr.adams"); err != nil {
		t.Fatalf("SubmitForApproval() after recovery error = %v", err)
	}
	if len(mgr.PendingRequests()) != 1 {
		t.Errorf("pending requests = %d, want 1 after resubmission", len(mgr.PendingRequests()))
	}
}
