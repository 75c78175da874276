// Package registry is the in-process subscription registry keyed by table
// name, plus the "all" wildcard.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tabsync/internal/schema"
)

// Callback is a zero-argument change notification.
type Callback func()

type entry struct {
	id uint64
	fn Callback
}

// Registry maps table names (or the wildcard) to callbacks.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run
// without the registry lock held, so they may subscribe or unsubscribe.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]entry
	logger *slog.Logger
}

// New returns an empty registry. A nil logger means slog.Default().
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		subs:   make(map[string][]entry),
		logger: logger,
	}
}

// Subscribe registers fn for key, a table name or [schema.Wildcard].
// The returned function removes exactly this registration; calling it more
// than once is harmless.
func (r *Registry) Subscribe(key string, fn Callback) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs[key] = append(r.subs[key], entry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(key, id) })
	}
}

func (r *Registry) remove(key string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.subs[key]
	for i, e := range entries {
		if e.id == id {
			// Copy so a Notify iterating the old slice is unaffected.
			next := make([]entry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			if len(next) == 0 {
				delete(r.subs, key)
			} else {
				r.subs[key] = next
			}
			return
		}
	}
}

// Notify invokes every callback registered for table and for the wildcard.
// A panicking callback is logged and does not stop the others.
//
// Returns the number of callbacks invoked.
func (r *Registry) Notify(table string) int {
	r.mu.Lock()
	targets := make([]entry, 0, len(r.subs[table])+len(r.subs[schema.Wildcard]))
	targets = append(targets, r.subs[table]...)
	if table != schema.Wildcard {
		targets = append(targets, r.subs[schema.Wildcard]...)
	}
	r.mu.Unlock()

	for _, e := range targets {
		r.invoke(table, e.fn)
	}
	return len(targets)
}

func (r *Registry) invoke(table string, fn Callback) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("subscriber panicked", "table", table, "error", fmt.Sprint(rec))
		}
	}()
	fn()
}

// Len returns the number of callbacks registered for key.
func (r *Registry) Len(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[key])
}
