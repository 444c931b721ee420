package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"caduceus-hq/veil/pkg/audit"
	"caduceus-hq/veil/pkg/audit/storage"
)

func newSQLiteTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	cfg := storage.DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")

	store, err := storage.NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func readArchive(t *testing.T, dir, reason string) []*audit.Record {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "audit-"+reason+"-*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("archive files = %d, want 1", len(matches))
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var records []*audit.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("archive is not a JSON record array: %v", err)
	}
	return records
}

func seedStore(t *testing.T, store audit.Storage, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		record := &audit.Record{
			ID:        fmt.Sprintf("r-%s-%d", age, i),
			Timestamp: time.Now().Add(-age).Add(time.Duration(i) * time.Second),
			Context:   audit.Context{Actor: "dr.adams"},
			Policy:    audit.PolicyRef{Name: "ChestCT", Version: "1.0"},
		}
		if err := store.Store(context.Background(), record); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPruner_PruneByAge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedStore(t, store, 3, 48*time.Hour)
	seedStore(t, store, 2, time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 1})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if deleted != 3 {
		t.Errorf("Prune() = %d, want 3 aged records deleted", deleted)
	}
	if store.Size() != 2 {
		t.Errorf("store size = %d after prune, want 2", store.Size())
	}
}

func TestPruner_PruneByCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedStore(t, store, 5, time.Hour)

	pruner := NewPruner(store, &Config{MaxRecords: 2})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if deleted != 3 {
		t.Errorf("Prune() = %d, want 3 oldest records deleted", deleted)
	}
	if store.Size() != 2 {
		t.Errorf("store size = %d after prune, want 2", store.Size())
	}
}

func TestPruner_NothingToPrune(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedStore(t, store, 2, time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 30, MaxRecords: 100})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() = %d, want 0", deleted)
	}
}

func TestPruner_ZeroConfigKeepsForever(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedStore(t, store, 3, 24*365*time.Hour)

	pruner := NewPruner(store, &Config{})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 || store.Size() != 3 {
		t.Errorf("deleted = %d, size = %d; want records kept with zero config", deleted, store.Size())
	}
}

func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedStore(t, store, 2, 48*time.Hour)

	archiveDir := t.TempDir()
	pruner := NewPruner(store, &Config{
		RetentionDays:       1,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() = %d, want 2", deleted)
	}

	matches, err := filepath.Glob(filepath.Join(archiveDir, "audit-age-*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("archive files = %d, want 1", len(matches))
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("archive file is empty")
	}
}

// A backlog larger than the storage default page must be archived in
// full before anything is deleted.
func TestPruner_ArchivesFullBacklog(t *testing.T) {
	store := newSQLiteTestStore(t)
	seedStore(t, store, 150, 48*time.Hour)

	archiveDir := t.TempDir()
	pruner := NewPruner(store, &Config{
		RetentionDays:       1,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 150 {
		t.Fatalf("Prune() = %d, want 150", deleted)
	}

	archived := readArchive(t, archiveDir, "age")
	if len(archived) != int(deleted) {
		t.Errorf("archived %d records but deleted %d; every deleted record must be archived first",
			len(archived), deleted)
	}
}

func TestPruner_PruneByCount_LargeBacklog(t *testing.T) {
	store := newSQLiteTestStore(t)
	seedStore(t, store, 150, time.Hour)

	pruner := NewPruner(store, &Config{MaxRecords: 20})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 130 {
		t.Errorf("Prune() = %d, want 130", deleted)
	}

	count, err := store.Count(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("remaining records = %d, want 20", count)
	}
}

// Records sharing the cutoff timestamp are deleted together, so they
// must all land in the archive.
func TestPruner_PruneByCount_TimestampTies(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	tied := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		record := &audit.Record{
			ID:        fmt.Sprintf("tie-%d", i),
			Timestamp: tied,
			Context:   audit.Context{Actor: "dr.adams"},
			Policy:    audit.PolicyRef{Name: "ChestCT", Version: "1.0"},
		}
		if err := store.Store(ctx, record); err != nil {
			t.Fatal(err)
		}
	}
	seedStore(t, store, 2, time.Minute)

	archiveDir := t.TempDir()
	pruner := NewPruner(store, &Config{
		MaxRecords:          4,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 3 {
		t.Fatalf("Prune() = %d, want all 3 records at the cutoff timestamp", deleted)
	}
	if store.Size() != 2 {
		t.Errorf("store size = %d after prune, want 2", store.Size())
	}

	archived := readArchive(t, archiveDir, "count")
	if len(archived) != int(deleted) {
		t.Errorf("archived %d records but deleted %d", len(archived), deleted)
	}
}

func TestScheduler_EmptySchedule(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: ""})

	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("Start() with empty schedule error = %v", err)
	}
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler running with empty schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "not a cron"})

	if err := pruner.Start(context.Background()); err == nil {
		t.Error("Start() error = nil for invalid cron expression")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		RetentionDays: 1,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !pruner.scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if pruner.NextPruning() == nil {
		t.Error("NextPruning() = nil while scheduled")
	}

	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}
