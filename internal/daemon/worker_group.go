package daemon

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// WorkerGroup runs the daemon's named background goroutines (command loop,
// event sinks, watcher loops). Once StopAndWait is called no new worker starts.
type WorkerGroup struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	running  map[string]int
	stopping bool
}

// Go starts fn under name. It reports false when the group is stopping.
func (g *WorkerGroup) Go(name string, fn func()) bool {
	if fn == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		slog.Debug("Worker not started, group stopping", slog.String("worker", name))
		return false
	}
	if g.running == nil {
		g.running = make(map[string]int)
	}
	g.running[name]++
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		defer g.finish(name)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Worker panicked",
					slog.String("worker", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		fn()
	}()
	return true
}

func (g *WorkerGroup) finish(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[name]--; g.running[name] <= 0 {
		delete(g.running, name)
	}
}

// Running returns the names of live workers, sorted.
func (g *WorkerGroup) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.running))
	for name := range g.running {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StopAndWait blocks new workers and waits for the live ones, bounded by ctx.
// On timeout the error names the workers still running.
func (g *WorkerGroup) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WrapError(ctx.Err(), errors.CategoryDaemon, "workers did not stop").
			WithContext("pending", g.Running()).
			Build()
	}
}
