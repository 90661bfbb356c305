// Package lifecycle coordinates startup, background work, and shutdown for
// the service's long-lived systems.
package lifecycle

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// NotReady returns the sorted names of the checkers that are not ready.
func NotReady(checkers map[string]ReadinessChecker) []string {
	var pending []string
	for _, name := range slices.Sorted(maps.Keys(checkers)) {
		if !checkers[name].Ready() {
			pending = append(pending, name)
		}
	}
	return pending
}

// Coordinator runs startup hooks concurrently, tracks background tasks,
// and drains both on shutdown.
type Coordinator struct {
	ctx      context.Context
	cancel   context.CancelFunc
	startup  sync.WaitGroup
	shutdown sync.WaitGroup
	tasks    sync.WaitGroup
	ready    atomic.Bool
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn immediately in its own goroutine. WaitForStartup
// blocks until every such hook has returned.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnShutdown runs fn in its own goroutine. Hooks block on
// <-c.Context().Done() before releasing their resources.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdown.Go(fn)
}

// Go runs fn in the background. Tasks must return once ctx is cancelled;
// Shutdown waits for them before reporting completion.
func (c *Coordinator) Go(fn func(ctx context.Context)) {
	c.tasks.Go(func() {
		fn(c.ctx)
	})
}

// Ready reports whether WaitForStartup has returned.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.ready.Store(true)
}

// Shutdown cancels the context and waits up to timeout for tasks and
// shutdown hooks to finish.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		c.shutdown.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
