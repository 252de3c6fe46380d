package records

import (
	"context"
	"sync"
	"time"

	"github.com/ifilter/ifadmin/internal/controller"
)

// Factory builds and loads the controller for one session and resource.
type Factory func(ctx context.Context, sessionID, resource string) (*controller.Controller, error)

type sessionGrids struct {
	controllers map[string]*controller.Controller
	seen        time.Time
}

// Registry keeps one controller per session and resource so drafts,
// selection and scroll depth survive between requests.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionGrids
	factory  Factory
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionGrids),
		factory:  factory,
		now:      time.Now,
	}
}

// Controller returns the session's controller for resource, building it on
// first use. created reports whether it was just built and loaded.
func (r *Registry) Controller(ctx context.Context, sessionID, resource string) (c *controller.Controller, created bool, err error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &sessionGrids{controllers: make(map[string]*controller.Controller)}
		r.sessions[sessionID] = s
	}
	s.seen = r.now()
	if c, ok := s.controllers[resource]; ok {
		r.mu.Unlock()
		return c, false, nil
	}
	r.mu.Unlock()

	// Built outside the lock: loading hits the database.
	c, err = r.factory(ctx, sessionID, resource)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok = r.sessions[sessionID]
	if !ok {
		s = &sessionGrids{controllers: make(map[string]*controller.Controller), seen: r.now()}
		r.sessions[sessionID] = s
	}
	if existing, ok := s.controllers[resource]; ok {
		return existing, false, nil
	}
	s.controllers[resource] = c
	return c, true, nil
}

// Reset drops every controller, e.g. after the catalog was reloaded.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.sessions = make(map[string]*sessionGrids)
	r.mu.Unlock()
}

// Sweep drops sessions idle for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	n := 0
	for id, s := range r.sessions {
		if s.seen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
