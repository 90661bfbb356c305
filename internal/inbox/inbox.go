// Package inbox watches a directory for formula lists and starts a run for
// each file dropped into it.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JaimeStill/sieve/internal/runs"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Starter creates runs.
type Starter interface {
	Create(ctx context.Context, cmd runs.CreateCommand) (*runs.Run, error)
}

// Options configures the watcher.
type Options struct {
	Dir        string
	Extensions []string
	// Settle is how long a file must go without writes before it is read.
	Settle time.Duration
}

// Watcher starts a run for every file that appears in the inbox. Handled
// files are moved to processed/ or failed/ beneath the inbox.
type Watcher struct {
	opts    Options
	starter Starter
	logger  *slog.Logger
}

// New creates a Watcher.
func New(opts Options, starter Starter, logger *slog.Logger) *Watcher {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".txt", ".csv"}
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	return &Watcher{
		opts:    opts,
		starter: starter,
		logger:  logger.With("system", "inbox", "dir", opts.Dir),
	}
}

// Start creates the inbox directories, processes files already present,
// and watches for new ones until the coordinator shuts down.
func (w *Watcher) Start(lc *lifecycle.Coordinator) error {
	for _, dir := range []string{w.opts.Dir, w.path(processedDir), w.path(failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := fw.Add(w.opts.Dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch inbox: %w", err)
	}

	w.logger.Info("watching inbox", "extensions", w.opts.Extensions)

	lc.Go(func(ctx context.Context) {
		defer fw.Close()
		w.backlog(ctx)
		w.watch(ctx, fw)
	})

	return nil
}

func (w *Watcher) backlog(ctx context.Context) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		w.logger.Error("read inbox", "error", err)
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && w.accepts(e.Name()) {
			w.process(ctx, w.path(e.Name()))
		}
	}
}

// watch debounces write events per file and processes each file once it
// has settled. A Reset that races a timer already fired queues the file a
// second time; process skips it once it has been moved.
func (w *Watcher) watch(ctx context.Context, fw *fsnotify.Watcher) {
	timers := make(map[string]*time.Timer)
	ready := make(chan string)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.opts.Dir) || !w.accepts(event.Name) {
				continue
			}

			name := event.Name
			if t, ok := timers[name]; ok {
				t.Reset(w.opts.Settle)
				continue
			}
			timers[name] = time.AfterFunc(w.opts.Settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(timers, name)
			w.process(ctx, name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

// process starts a run from path and moves it out of the inbox. A path that
// is already gone was handled by an earlier event for the same file.
func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("inbox file already handled", "file", name)
		return
	}

	run, err := w.start(ctx, path)
	if err != nil {
		w.logger.Error("inbox file rejected", "file", name, "error", err)
		w.move(path, failedDir)
		return
	}

	w.logger.Info("run started from inbox", "file", name, "run_id", run.ID, "total", run.Total)
	w.move(path, processedDir)
}

func (w *Watcher) start(ctx context.Context, path string) (*runs.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	formulas, err := runs.ParseFormulas(f)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	return w.starter.Create(ctx, runs.CreateCommand{
		Name:     strings.TrimSuffix(name, filepath.Ext(name)),
		Formulas: formulas,
	})
}

func (w *Watcher) move(path, dir string) {
	dest := w.path(dir, fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn("inbox file move failed", "file", path, "error", err)
	}
}

func (w *Watcher) accepts(name string) bool {
	return slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(name)))
}

func (w *Watcher) path(elem ...string) string {
	return filepath.Join(append([]string{w.opts.Dir}, elem...)...)
}
