package session

import (
	"context"
	"sync"
)

// Registry is the process-wide set of active orchestrators, used for
// admission control (§6 MAX_CONCURRENT_SESSIONS) and coordinated shutdown.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*Orchestrator
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Orchestrator)}
}

// TryAdmit registers o if the registry has not reached max concurrent
// sessions; returns false otherwise.
func (r *Registry) TryAdmit(o *Orchestrator, max int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if max > 0 && len(r.byID) >= max {
		return false
	}
	r.byID[o.Session.ID] = o
	o.OnClosed(func() { r.Remove(o.Session.ID) })
	return true
}

// Remove drops a session from the registry (called once it reaches Closed).
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sessionID)
}

// Count returns the number of currently registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// CloseAll begins Closing every registered session, used during process
// shutdown. Errors from individual sessions are isolated; one session's
// cleanup failure never blocks another's.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	orchestrators := make([]*Orchestrator, 0, len(r.byID))
	for _, o := range r.byID {
		orchestrators = append(orchestrators, o)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, o := range orchestrators {
		o := o
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.beginClosing(ctx)
		}()
	}
	wg.Wait()
}
