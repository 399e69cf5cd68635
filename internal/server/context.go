package server

import (
	"context"
	"sort"
	"sync"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// ServerContext carries the lifetime of a running server and the readiness
// checks of its dependencies.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	checks   map[string]CheckFunc
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context derived from ctx.
func NewServerContext(ctx context.Context) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		checks: make(map[string]CheckFunc),
	}
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// AddReadinessCheck registers a named dependency check.
func (sc *ServerContext) AddReadinessCheck(name string, check CheckFunc) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.checks[name] = check
}

// checkNames returns the registered check names in a stable order.
func (sc *ServerContext) checkNames() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	names := make([]string, 0, len(sc.checks))
	for name := range sc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sc *ServerContext) check(name string) CheckFunc {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.checks[name]
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
