package skills

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcher_ReloadOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader, commandDir, _ := newTestLoader(t)
	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}

	var reloads atomic.Int32
	w, err := NewWatcher(loader, func(count int) {
		reloads.Add(1)
	})
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	writeDoc(t, commandDir, "new.md", "---\nname: new\n---\nBody\n")

	deadline := time.After(5 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never reloaded after a file write")
		case <-time.After(50 * time.Millisecond):
		}
	}

	if _, ok := loader.Get(KindCommand, "new"); !ok {
		t.Error("new document should be loaded after reload")
	}

	stats := w.Stats()
	if stats.Reloads == 0 {
		t.Error("stats should count the reload")
	}
	if stats.LastEventPath == "" {
		t.Error("stats should record the last event path")
	}
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader, commandDir, _ := newTestLoader(t)
	w, err := NewWatcher(loader, nil)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	writeDoc(t, commandDir, "notes.txt", "not a document")
	time.Sleep(700 * time.Millisecond)

	stats := w.Stats()
	if stats.FilesCreated != 0 && stats.FilesModified != 0 {
		t.Errorf("non-markdown files should be ignored: %+v", stats)
	}
	if stats.Reloads != 0 {
		t.Errorf("no reload expected, got %d", stats.Reloads)
	}

	w.Stop()
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader, _, _ := newTestLoader(t)
	w, err := NewWatcher(loader, nil)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	w.Stop()
	w.Stop()
}
