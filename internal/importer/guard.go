package importer

import "sync"

// RunGuard is the single-flight guard for import runs: at most one pipeline
// run per book at a time. It is owned by the Service but constructed by the
// caller so that concurrent-call rejection is testable in isolation.
type RunGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunGuard creates an empty guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{active: make(map[string]struct{})}
}

// TryAcquire claims the run slot for key. It returns false when a run for the
// same key is already in flight.
func (g *RunGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[key]; ok {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release frees the run slot for key.
func (g *RunGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}
