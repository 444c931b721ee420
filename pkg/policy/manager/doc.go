// Package manager implements the policy lifecycle: creation, versioned
// updates, approval workflows, emergency activation, and rollback.
//
// # Overview
//
// The Manager is the single entry point for all policy state changes. It
// keeps a thread-safe in-memory registry of policies and open approval
// requests, backed by a durable policy.Store. Every state change is written
// to the store before the in-memory registry is updated, so a persistence
// failure never leaves memory ahead of disk.
//
// # Lifecycle
//
// New policies start as drafts. When approval is required they are
// submitted to an approval workflow (single, dual, or committee) and only
// become active once the configured number of distinct approvers have
// signed off. A single rejection closes the request. Updating a policy
// creates a new version and marks the prior one superseded; rolling back
// an active policy restores its predecessor's content under a new version.
//
// # Seed Policies
//
// Bootstrap policy definitions can be loaded from a directory of YAML
// files via SeedLoader, with optional hot-reload through FileWatcher.
//
// # Usage
//
//	mgr, err := manager.NewManager(&cfg.Policy, store, logger)
//	if err != nil { ... }
//	if err := mgr.Load(ctx); err != nil { ... }
//
//	p, err := mgr.CreatePolicy(ctx, manager.PolicyInput{
//	    Name: "ChestCT",
//	    Tags: policy.TagConfig{Remove: []string{"(0010,0010)"}},
//	}, "dr.adams")
package manager
