package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}

	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}

func TestShouldProcessEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "/seeds/chest-ct.yaml", Op: fsnotify.Write}, true},
		{"yml create", fsnotify.Event{Name: "/seeds/brain-mr.yml", Op: fsnotify.Create}, true},
		{"chmod ignored", fsnotify.Event{Name: "/seeds/chest-ct.yaml", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "/seeds/.chest-ct.yaml.swp", Op: fsnotify.Write}, false},
		{"non-yaml", fsnotify.Event{Name: "/seeds/readme.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcher_TriggersReload(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(dir, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	reloaded := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- fw.Watch(ctx, func() error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "chest-ct.yaml")
	if err := os.WriteFile(path, []byte("name: ChestCT\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := <-watchErr; err != nil {
		t.Errorf("Watch() returned error = %v", err)
	}
}
