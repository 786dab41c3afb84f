package registry

import (
	"fmt"
	"sync"

	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a lookup names no registered tool.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// Registry holds the set of invocable tools. Registration happens at server
// startup; afterwards the registry is read-only and safe to share across
// concurrent sessions. Listing order is registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*tools.Tool
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*tools.Tool)}
}

// Register adds a tool. The name must be non-empty and unique, and the tool
// must carry a handler.
func (r *Registry) Register(t tools.Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q must provide a handler", t.Name)
	}
	if t.Inputs.Type == "" {
		t.Inputs = tools.ObjectSchema()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}
	r.tools[t.Name] = &t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers the tool or panics. Intended for server setup code
// where a duplicate name is a programming error.
func (r *Registry) MustRegister(t tools.Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (tools.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return tools.Tool{}, &UnknownToolError{Name: name}
	}
	return *t, nil
}

// Tools returns a fresh snapshot of all tools in registration order. Each
// call restarts the sequence; the order is stable for the life of the
// registry.
func (r *Registry) Tools() []tools.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]tools.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
