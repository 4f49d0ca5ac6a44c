// Package action defines the contract for a single workflow action invoked
// by the lifecycle runner. An action receives the full execution context and
// destructures only the fields it needs; there is no reflection-based
// argument binding.
package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowgate/flowgate/service/loader"
)

// Action is one unit of workflow behaviour executed under lock.
type Action interface {
	Execute(ctx context.Context, ec *loader.Context) (interface{}, error)
}

// Func adapts a plain function to the Action interface.
type Func func(ctx context.Context, ec *loader.Context) (interface{}, error)

// Execute implements Action.
func (f Func) Execute(ctx context.Context, ec *loader.Context) (interface{}, error) {
	return f(ctx, ec)
}

// Registry maps action names to implementations for queue-dispatched jobs.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register binds name to an action, overwriting any previous binding.
func (r *Registry) Register(name string, a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = a
}

// Lookup returns the action bound to name.
func (r *Registry) Lookup(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("action %q not registered", name)
	}
	return a, nil
}
