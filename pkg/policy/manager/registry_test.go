package manager

import (
	"testing"
	"time"

	"caduceus-hq/veil/pkg/policy"
)

func registryPolicy(id, name, version string, status policy.Status) *policy.Policy {
	return &policy.Policy{
		ID:      id,
		Name:    name,
		Version: version,
		Status:  status,
	}
}

func TestRegistry_PutClonesInput(t *testing.T) {
	reg := NewRegistry()

	p := registryPolicy("p1", "ChestCT", "1.0", policy.StatusDraft)
	reg.Put(p)

	// Mutating the original after Put must not leak into the registry.
	p.Status = policy.StatusApproved

	got, ok := reg.Get("p1")
	if !ok {
		t.Fatal("Get(p1) not found")
	}
	if got.Status != policy.StatusDraft {
		t.Errorf("Status = %q, want %q (caller mutation leaked)", got.Status, policy.StatusDraft)
	}

	// The read is a clone too.
	got.Name = "mutated"
	again, _ := reg.Get("p1")
	if again.Name != "ChestCT" {
		t.Errorf("Name = %q, want %q (reader mutation leaked)", again.Name, "ChestCT")
	}
}

func TestRegistry_LatestPicksHighestVersion(t *testing.T) {
	reg := NewRegistry()

	reg.Put(registryPolicy("p1", "ChestCT", "1.9", policy.StatusSuperseded))
	reg.Put(registryPolicy("p2", "ChestCT", "1.10", policy.StatusApproved))
	reg.Put(registryPolicy("p3", "ChestCT", "1.2", policy.StatusSuperseded))

	latest, ok := reg.Latest("ChestCT")
	if !ok {
		t.Fatal("Latest(ChestCT) not found")
	}
	if latest.ID != "p2" {
		t.Errorf("Latest = %q (version %s), want p2 (1.10)", latest.ID, latest.Version)
	}
}

func TestRegistry_Active(t *testing.T) {
	reg := NewRegistry()

	reg.Put(registryPolicy("p1", "ChestCT", "1.0", policy.StatusApproved))
	reg.Put(registryPolicy("p2", "BrainMR", "1.0", policy.StatusEmergencyApproved))
	reg.Put(registryPolicy("p3", "AbdomenUS", "1.0", policy.StatusDraft))
	reg.Put(registryPolicy("p4", "PelvisXR", "1.0", policy.StatusRejected))

	active := reg.Active()
	if len(active) != 2 {
		t.Fatalf("Active() = %d policies, want 2", len(active))
	}
	for _, p := range active {
		if !p.Status.Active() {
			t.Errorf("Active() returned policy %q in state %q", p.ID, p.Status)
		}
	}
}

func TestRegistry_AllSortedByNameThenVersion(t *testing.T) {
	reg := NewRegistry()

	reg.Put(registryPolicy("p1", "ChestCT", "1.1", policy.StatusApproved))
	reg.Put(registryPolicy("p2", "BrainMR", "1.0", policy.StatusDraft))
	reg.Put(registryPolicy("p3", "ChestCT", "1.0", policy.StatusSuperseded))

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("All() = %d policies, want 3", len(all))
	}

	wantOrder := []string{"p2", "p3", "p1"}
	for i, want := range wantOrder {
		if all[i].ID != want {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestRegistry_Requests(t *testing.T) {
	reg := NewRegistry()

	base := time.Now()
	reg.PutRequest(&policy.ApprovalRequest{ID: "r2", PolicyID: "p2", CreatedAt: base.Add(time.Minute)})
	reg.PutRequest(&policy.ApprovalRequest{ID: "r1", PolicyID: "p1", CreatedAt: base})

	reqs := reg.Requests()
	if len(reqs) != 2 {
		t.Fatalf("Requests() = %d, want 2", len(reqs))
	}
	if reqs[0].ID != "r1" || reqs[1].ID != "r2" {
		t.Errorf("Requests() order = [%s %s], want oldest first", reqs[0].ID, reqs[1].ID)
	}

	req, ok := reg.RequestForPolicy("p1")
	if !ok || req.ID != "r1" {
		t.Errorf("RequestForPolicy(p1) = %v, %v; want r1, true", req, ok)
	}

	reg.DeleteRequest("r1")
	if _, ok := reg.GetRequest("r1"); ok {
		t.Error("GetRequest(r1) found after delete")
	}
}

func TestRegistry_ReplaceRebuildsIndex(t *testing.T) {
	reg := NewRegistry()
	reg.Put(registryPolicy("old", "ChestCT", "1.0", policy.StatusDraft))

	reg.Replace(
		[]*policy.Policy{
			registryPolicy("p1", "ChestCT", "1.0", policy.StatusSuperseded),
			registryPolicy("p2", "ChestCT", "1.1", policy.StatusApproved),
		},
		[]*policy.ApprovalRequest{
			{ID: "r1", PolicyID: "p2"},
		},
	)

	if _, ok := reg.Get("old"); ok {
		t.Error("Replace kept pre-existing policy")
	}
	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}
	latest, ok := reg.Latest("ChestCT")
	if !ok || latest.ID != "p2" {
		t.Errorf("Latest(ChestCT) = %v, want p2", latest)
	}
	if _, ok := reg.GetRequest("r1"); !ok {
		t.Error("GetRequest(r1) not found after Replace")
	}
}
