package inbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/runs"
)

type countingStarter struct {
	calls atomic.Int32
}

func (c *countingStarter) Create(_ context.Context, cmd runs.CreateCommand) (*runs.Run, error) {
	c.calls.Add(1)
	return &runs.Run{ID: uuid.New(), Name: cmd.Name, Total: len(cmd.Formulas)}, nil
}

func newTestWatcher(t *testing.T) (*Watcher, *countingStarter, string) {
	t.Helper()

	dir := t.TempDir()
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	starter := &countingStarter{}
	w := New(Options{Dir: dir}, starter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return w, starter, dir
}

func count(t *testing.T, dir, sub string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, sub))
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestProcessHandlesFileOnce(t *testing.T) {
	w, starter, dir := newTestWatcher(t)

	path := filepath.Join(dir, "sulfides.txt")
	if err := os.WriteFile(path, []byte("ZnS\nCdS\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// backlog scan and a late create event for the same file
	w.process(context.Background(), path)
	w.process(context.Background(), path)

	if got := starter.calls.Load(); got != 1 {
		t.Errorf("runs started: got %d, want 1", got)
	}
	if got := count(t, dir, processedDir); got != 1 {
		t.Errorf("processed files: got %d, want 1", got)
	}
	if got := count(t, dir, failedDir); got != 0 {
		t.Errorf("failed files: got %d, want 0", got)
	}
}

func TestProcessSkipsMissingFile(t *testing.T) {
	w, starter, dir := newTestWatcher(t)

	w.process(context.Background(), filepath.Join(dir, "gone.csv"))

	if got := starter.calls.Load(); got != 0 {
		t.Errorf("runs started: got %d, want 0", got)
	}
	if got := count(t, dir, failedDir); got != 0 {
		t.Errorf("failed files: got %d, want 0", got)
	}
}
