// Package session keeps one view state per visitor for as long as the
// visitor's page stays open.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaetan-pardon/ISEN/internal/content"
	"github.com/gaetan-pardon/ISEN/internal/viewstate"
)

type entry struct {
	mu       sync.Mutex
	state    *viewstate.ViewState
	lastSeen time.Time
}

// Registry owns the view states. Each state has its own lock, held while
// a request mutates and renders it.
type Registry struct {
	store *content.Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(store *content.Store, ttl time.Duration) *Registry {
	return &Registry{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// NewVisitorID returns a fresh random visitor id.
func NewVisitorID() string {
	return uuid.NewString()
}

// ValidVisitorID reports whether id looks like one NewVisitorID made.
func ValidVisitorID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Registry) entry(id string, reset bool) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{state: viewstate.New(r.store)}
		r.entries[id] = e
	} else if reset {
		// Swap in a new entry so a request still holding the old lock
		// cannot touch the fresh state.
		e = &entry{state: viewstate.New(r.store)}
		r.entries[id] = e
	}
	e.lastSeen = r.now()
	return e
}

// Reset gives the visitor the page-load state and runs fn on it.
func (r *Registry) Reset(id string, fn func(v *viewstate.ViewState) error) error {
	e := r.entry(id, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// With runs fn on the visitor's state, creating the page-load state if
// the visitor has none.
func (r *Registry) With(id string, fn func(v *viewstate.ViewState) error) error {
	e := r.entry(id, false)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops states idle for longer than the ttl and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	dropped := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onSweep func(dropped int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
