package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"caduceus-hq/veil/pkg/cli"
	"caduceus-hq/veil/pkg/config"
	"caduceus-hq/veil/pkg/policy"
	"caduceus-hq/veil/pkg/policy/manager"
)

var policyFlags struct {
	status        string
	format        string
	id            string
	file          string
	actor         string
	approver      string
	comment       string
	reason        string
	justification string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage anonymization policy lifecycle",
	Long: `Manage the anonymization policy lifecycle.

Policies are versioned and move through an approval workflow before they
become enforceable. The policy command operates directly on the
configured policy store.

Subcommands:
  list      - List policies
  show      - Show one policy in detail
  create    - Create a draft policy from a YAML definition
  approve   - Record an approval on a pending request
  reject    - Reject a pending request
  pending   - List open approval requests
  rollback  - Roll an active policy back to its previous version
  emergency - Emergency-activate a policy, bypassing the quorum
  validate  - Validate policy definition files

Examples:
  # List active policies
  veil policy list --status approved

  # Show the latest ChestCT policy
  veil policy show ChestCT

  # Approve a pending request
  veil policy approve --request 7f3a... --approver dr.baker`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies",
	Long: `List policies known to the configured store.

Examples:
  # All policies, every version
  veil policy list

  # Only active policies
  veil policy list --status approved

  # JSON output
  veil policy list --format json`,
	RunE: listPolicies,
}

var policyShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one policy in detail",
	Long: `Show one policy in detail, including approval history and lineage.

Looks up the latest version by name, or an exact version by --id.

Examples:
  # Latest version by name
  veil policy show ChestCT

  # Exact version by ID
  veil policy show --id 7f3a1c...`,
	RunE: showPolicy,
}

var policyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft policy from a YAML definition",
	Long: `Create a draft policy from a YAML definition file.

The definition uses the seed format:

  name: ChestCT
  description: Chest CT anonymization
  version: "1.0"
  tags:
    remove: ["(0010,0010)", "(0010,0030)"]
    pseudonymize: ["(0010,0020)"]
    preserve: ["(0008,0060)"]

When approval is required by configuration, the new policy is submitted
for approval immediately.

Examples:
  veil policy create --file chest-ct.yaml --actor dr.adams`,
	RunE: createPolicy,
}

var policyApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Record an approval on a pending request",
	RunE:  approvePolicy,
}

var policyRejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject a pending request",
	Long: `Reject a pending approval request.

A single rejection closes the request and marks the policy rejected.`,
	RunE: rejectPolicy,
}

var policyPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List open approval requests",
	RunE:  listPendingRequests,
}

var policyRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll an active policy back to its previous version",
	Long: `Roll an active policy back to its previous version.

The predecessor's content is restored as a new approved version with a
bumped version number; the rolled-back version is closed with lineage
links in both directions.

Examples:
  veil policy rollback --id 7f3a1c... --actor dr.adams --reason "over-redaction"`,
	RunE: rollbackPolicy,
}

var policyEmergencyCmd = &cobra.Command{
	Use:   "emergency",
	Short: "Emergency-activate a policy, bypassing the quorum",
	Long: `Emergency-activate a policy, bypassing the approval quorum.

Requires emergency bypass to be enabled in configuration and a
justification. The activated policy is flagged for mandatory post-hoc
review.

Examples:
  veil policy emergency --id 7f3a1c... --actor dr.adams \
      --justification "urgent trial export, IRB 2026-114"`,
	RunE: emergencyActivatePolicy,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate policy definition files",
	Long: `Validate policy definition YAML files without touching the store.

Checks tag format ((GGGG,EEEE) with hex digits) and that the remove,
pseudonymize and preserve sets are disjoint.

Examples:
  veil policy validate --file chest-ct.yaml`,
	RunE: validatePolicyFile,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(
		policyListCmd, policyShowCmd, policyCreateCmd,
		policyApproveCmd, policyRejectCmd, policyPendingCmd,
		policyRollbackCmd, policyEmergencyCmd, policyValidateCmd,
	)

	policyCmd.PersistentFlags().StringVar(&policyFlags.format, "format", "text", "output format: text, json")

	policyListCmd.Flags().StringVar(&policyFlags.status, "status", "", "filter by status (draft, pending_approval, approved, ...)")

	policyShowCmd.Flags().StringVar(&policyFlags.id, "id", "", "policy version ID")

	policyCreateCmd.Flags().StringVar(&policyFlags.file, "file", "", "policy definition YAML file")
	policyCreateCmd.Flags().StringVar(&policyFlags.actor, "actor", "", "acting identity")
	_ = policyCreateCmd.MarkFlagRequired("file")
	_ = policyCreateCmd.MarkFlagRequired("actor")

	policyApproveCmd.Flags().StringVar(&policyFlags.id, "request", "", "approval request ID")
	policyApproveCmd.Flags().StringVar(&policyFlags.approver, "approver", "", "approver identity")
	policyApproveCmd.Flags().StringVar(&policyFlags.comment, "comment", "", "optional comment")
	_ = policyApproveCmd.MarkFlagRequired("request")
	_ = policyApproveCmd.MarkFlagRequired("approver")

	policyRejectCmd.Flags().StringVar(&policyFlags.id, "request", "", "approval request ID")
	policyRejectCmd.Flags().StringVar(&policyFlags.approver, "approver", "", "approver identity")
	policyRejectCmd.Flags().StringVar(&policyFlags.reason, "reason", "", "rejection reason")
	_ = policyRejectCmd.MarkFlagRequired("request")
	_ = policyRejectCmd.MarkFlagRequired("approver")

	policyRollbackCmd.Flags().StringVar(&policyFlags.id, "id", "", "active policy version ID")
	policyRollbackCmd.Flags().StringVar(&policyFlags.actor, "actor", "", "acting identity")
	policyRollbackCmd.Flags().StringVar(&policyFlags.reason, "reason", "", "rollback reason")
	_ = policyRollbackCmd.MarkFlagRequired("id")
	_ = policyRollbackCmd.MarkFlagRequired("actor")

	policyEmergencyCmd.Flags().StringVar(&policyFlags.id, "id", "", "policy version ID")
	policyEmergencyCmd.Flags().StringVar(&policyFlags.actor, "actor", "", "acting identity")
	policyEmergencyCmd.Flags().StringVar(&policyFlags.justification, "justification", "", "mandatory justification")
	_ = policyEmergencyCmd.MarkFlagRequired("id")
	_ = policyEmergencyCmd.MarkFlagRequired("actor")
	_ = policyEmergencyCmd.MarkFlagRequired("justification")

	policyValidateCmd.Flags().StringVar(&policyFlags.file, "file", "", "policy definition YAML file")
	_ = policyValidateCmd.MarkFlagRequired("file")
}

// loadPolicyManager opens the configured store and warms a manager from it.
// The returned cleanup function closes the store.
func loadPolicyManager(ctx context.Context) (*manager.Manager, func(), error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	store, err := openPolicyStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	mgr, err := manager.NewManager(&cfg.Policy, store, nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := mgr.Load(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	return mgr, func() { store.Close() }, nil
}

func listPolicies(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	policies := mgr.AllPolicies()
	if policyFlags.status != "" {
		filtered := policies[:0]
		for _, p := range policies {
			if p.Status == policy.Status(policyFlags.status) {
				filtered = append(filtered, p)
			}
		}
		policies = filtered
	}

	if policyFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(policies)
	}

	if len(policies) == 0 {
		fmt.Println("No policies found.")
		return nil
	}

	fmt.Printf("%-24s %-8s %-18s %s\n", "NAME", "VERSION", "STATUS", "ID")
	for _, p := range policies {
		fmt.Printf("%-24s %-8s %-18s %s\n", p.Name, p.Version, p.Status, p.ID)
	}
	return nil
}

func showPolicy(cmd *cobra.Command, args []string) error {
	if policyFlags.id == "" && len(args) != 1 {
		return fmt.Errorf("provide a policy name or --id")
	}

	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var p *policy.Policy
	if policyFlags.id != "" {
		p, err = mgr.PolicyByID(policyFlags.id)
	} else {
		p, err = mgr.PolicyByName(args[0])
	}
	if err != nil {
		return err
	}

	if policyFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Printf("Policy: %s %s\n", p.Name, p.Version)
	fmt.Printf("  ID:          %s\n", p.ID)
	fmt.Printf("  Status:      %s\n", p.Status)
	if p.Description != "" {
		fmt.Printf("  Description: %s\n", p.Description)
	}
	fmt.Printf("  Created:     %s by %s\n", p.CreatedAt.Format(time.RFC3339), p.CreatedBy)
	fmt.Printf("  Tags:        remove=%d pseudonymize=%d preserve=%d\n",
		len(p.Tags.Remove), len(p.Tags.Pseudonymize), len(p.Tags.Preserve))

	if len(p.Approval.Approvals) > 0 {
		fmt.Println("  Approvals:")
		for _, a := range p.Approval.Approvals {
			fmt.Printf("    %s at %s\n", a.Approver, a.ApprovedAt.Format(time.RFC3339))
		}
	}
	if p.Approval.EmergencyJustification != "" {
		fmt.Printf("  Emergency justification: %s\n", p.Approval.EmergencyJustification)
	}
	if p.Approval.RequiresPostApproval {
		fmt.Println("  ⚠ Requires post-hoc approval review")
	}
	if p.PreviousVersion != "" {
		fmt.Printf("  Previous version: %s\n", p.PreviousVersion)
	}
	if p.SupersededBy != "" {
		fmt.Printf("  Superseded by:    %s\n", p.SupersededBy)
	}
	if p.RollbackFrom != "" {
		fmt.Printf("  Rolled back from: %s\n", p.RollbackFrom)
	}
	if p.RollbackTo != "" {
		fmt.Printf("  Rolled back to:   %s\n", p.RollbackTo)
	}
	return nil
}

func createPolicy(cmd *cobra.Command, args []string) error {
	def, err := readPolicyDefinition(policyFlags.file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := mgr.CreatePolicy(ctx, manager.PolicyInput{
		Name:        def.Name,
		Description: def.Description,
		Version:     def.Version,
		Tags:        def.Tags,
	}, policyFlags.actor)
	if err != nil {
		return cli.NewCommandError("policy create", err)
	}

	fmt.Printf("✓ Created policy %s %s (%s)\n", p.Name, p.Version, p.Status)
	fmt.Printf("  ID: %s\n", p.ID)
	return nil
}

func approvePolicy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := mgr.Approve(ctx, policyFlags.id, policyFlags.approver, policyFlags.comment)
	if err != nil {
		return cli.NewCommandError("policy approve", err)
	}

	if result.QuorumReached {
		fmt.Printf("✓ Quorum reached (%d/%d); policy %s %s is now active\n",
			result.Approvals, result.Required, result.Policy.Name, result.Policy.Version)
	} else {
		fmt.Printf("✓ Approval recorded (%d/%d)\n", result.Approvals, result.Required)
	}
	return nil
}

func rejectPolicy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := mgr.Reject(ctx, policyFlags.id, policyFlags.approver, policyFlags.reason)
	if err != nil {
		return cli.NewCommandError("policy reject", err)
	}

	fmt.Printf("✓ Rejected policy %s %s\n", p.Name, p.Version)
	return nil
}

func listPendingRequests(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	requests := mgr.PendingRequests()

	if policyFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(requests)
	}

	if len(requests) == 0 {
		fmt.Println("No pending approval requests.")
		return nil
	}

	for _, r := range requests {
		p, err := mgr.PolicyByID(r.PolicyID)
		label := r.PolicyID
		if err == nil {
			label = fmt.Sprintf("%s %s", p.Name, p.Version)
		}
		fmt.Printf("Request %s\n", r.ID)
		fmt.Printf("  Policy:    %s\n", label)
		fmt.Printf("  Workflow:  %s (%d/%d approvals)\n", r.Workflow, len(r.Approvals), r.Workflow.RequiredApprovals())
		fmt.Printf("  Requested: %s by %s\n", r.CreatedAt.Format(time.RFC3339), r.RequestedBy)
		fmt.Println()
	}
	return nil
}

func rollbackPolicy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := mgr.Rollback(ctx, policyFlags.id, policyFlags.actor, policyFlags.reason)
	if err != nil {
		return cli.NewCommandError("policy rollback", err)
	}

	fmt.Printf("✓ Rolled back to new version %s %s\n", p.Name, p.Version)
	fmt.Printf("  ID: %s\n", p.ID)
	return nil
}

func emergencyActivatePolicy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, cleanup, err := loadPolicyManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := mgr.EmergencyActivate(ctx, policyFlags.id, policyFlags.actor, policyFlags.justification)
	if err != nil {
		return cli.NewCommandError("policy emergency", err)
	}

	fmt.Printf("✓ Emergency-activated policy %s %s\n", p.Name, p.Version)
	fmt.Println("  ⚠ This activation requires post-hoc approval review")
	return nil
}

func validatePolicyFile(cmd *cobra.Command, args []string) error {
	def, err := readPolicyDefinition(policyFlags.file)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s: valid policy definition (%s)\n", policyFlags.file, def.Name)
	fmt.Printf("  remove=%d pseudonymize=%d preserve=%d\n",
		len(def.Tags.Remove), len(def.Tags.Pseudonymize), len(def.Tags.Preserve))
	return nil
}

// readPolicyDefinition parses and validates one seed-format YAML file.
func readPolicyDefinition(path string) (*manager.SeedDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	var def manager.SeedDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition file: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("definition has no name")
	}
	if result := policy.ValidateTagConfig(def.Tags); !result.OK {
		return nil, policy.NewTagValidationError(def.Name, result)
	}
	return &def, nil
}
