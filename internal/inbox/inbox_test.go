package inbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/inbox"
	"github.com/JaimeStill/sieve/internal/runs"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
)

type fakeStarter struct {
	created chan runs.CreateCommand
}

func (f *fakeStarter) Create(_ context.Context, cmd runs.CreateCommand) (*runs.Run, error) {
	if len(cmd.Formulas) == 0 {
		return nil, runs.ErrEmptyRun
	}
	f.created <- cmd
	return &runs.Run{ID: uuid.New(), Name: cmd.Name, Total: len(cmd.Formulas)}, nil
}

func start(t *testing.T, dir string) *fakeStarter {
	t.Helper()

	starter := &fakeStarter{created: make(chan runs.CreateCommand, 4)}
	w := inbox.New(inbox.Options{Dir: dir, Settle: 20 * time.Millisecond},
		starter, slog.New(slog.NewTextHandler(io.Discard, nil)))

	lc := lifecycle.New()
	if err := w.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		if err := lc.Shutdown(5 * time.Second); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return starter
}

func wait(t *testing.T, s *fakeStarter) runs.CreateCommand {
	t.Helper()
	select {
	case cmd := <-s.created:
		return cmd
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run")
		return runs.CreateCommand{}
	}
}

// drop writes a file outside the inbox and moves it in.
func drop(t *testing.T, dir, name, content string) {
	t.Helper()
	staging := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(staging, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(staging, filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherStartsRun(t *testing.T) {
	dir := t.TempDir()
	starter := start(t, dir)

	drop(t, dir, "oxides.txt", "ZnO\nTiO2\n")

	cmd := wait(t, starter)
	if cmd.Name != "oxides" {
		t.Errorf("name = %q, want oxides", cmd.Name)
	}
	if !slices.Equal(cmd.Formulas, []string{"ZnO", "TiO2"}) {
		t.Errorf("formulas = %v", cmd.Formulas)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, "oxides.txt")); errors.Is(err, os.ErrNotExist) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("file not moved out of inbox")
		}
		time.Sleep(10 * time.Millisecond)
	}

	moved, _ := filepath.Glob(filepath.Join(dir, "processed", "*-oxides.txt"))
	if len(moved) != 1 {
		t.Errorf("processed files = %v", moved)
	}
}

func TestWatcherProcessesBacklog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nitrides.csv"), []byte("formula\nTa3N5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := wait(t, start(t, dir))
	if cmd.Name != "nitrides" || !slices.Equal(cmd.Formulas, []string{"Ta3N5"}) {
		t.Errorf("command = %+v", cmd)
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	starter := start(t, dir)

	drop(t, dir, "notes.md", "ZnO\n")
	drop(t, dir, "batch.txt", "GaN\n")

	cmd := wait(t, starter)
	if cmd.Name != "batch" {
		t.Errorf("name = %q, want batch", cmd.Name)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.md")); err != nil {
		t.Errorf("ignored file should stay in inbox: %v", err)
	}
}

func TestWatcherRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	start(t, dir)

	drop(t, dir, "empty.txt", "# nothing\n")

	deadline := time.Now().Add(5 * time.Second)
	for {
		failed, _ := filepath.Glob(filepath.Join(dir, "failed", "*-empty.txt"))
		if len(failed) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("empty file not moved to failed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
