// Package registry implements the Handler Registry: a name→handler map
// and a path→name route map, both guarded by a reader/writer lock since
// reads happen on every dispatch while writes only happen at startup or
// rare runtime reconfiguration.
package registry

import (
	"errors"
	"sync"

	"github.com/go-rustlet/rustlet/core/handler"
)

// ErrEmptyName is returned by AddHandler when name is empty.
var ErrEmptyName = errors.New("registry: handler name must not be empty")

// Registry holds the two independent maps the dispatcher consults:
// handler name → function, and URI path → handler name. Registering a
// route with a name that has no handler yet is allowed; resolution
// happens at dispatch time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]handler.Func
	routes   map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]handler.Func),
		routes:   make(map[string]string),
	}
}

// AddHandler inserts or overwrites the handler registered under name.
func (r *Registry) AddHandler(name string, fn handler.Func) error {
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
	return nil
}

// AddRoute maps path to handler name. name need not be registered yet.
func (r *Registry) AddRoute(path, name string) error {
	if path == "" {
		return errors.New("registry: route path must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = name
	return nil
}

// Route resolves path to a handler name, reporting whether path is
// registered at all.
func (r *Registry) Route(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.routes[path]
	return name, ok
}

// Handler resolves a handler name to its function, reporting whether name
// is registered.
func (r *Registry) Handler(name string) (handler.Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}
