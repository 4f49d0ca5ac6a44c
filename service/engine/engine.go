// Package engine declares the boundary to the workflow state-machine engine
// that actually executes flow nodes and tokens. The core never interprets
// flow semantics; it only constructs an engine per invocation, registers
// instances with it and asks it to advance.
package engine

import (
	"context"

	"github.com/flowgate/flowgate/model/definition"
	"github.com/flowgate/flowgate/model/instance"
)

// Engine is one invocation-scoped handle onto the state machine.
type Engine interface {
	// LoadInstance re-registers a persisted instance with the engine,
	// hydrating its in-memory token state. Collaborating instances are
	// loaded into the same engine so cross-instance message flows resolve
	// within a single invocation.
	LoadInstance(ctx context.Context, inst *instance.ProcessInstance) error

	// RunToNextState exhausts all immediately-enabled transitions and
	// tokens until the engine blocks on an external event or completes.
	RunToNextState(ctx context.Context) error
}

// Factory constructs engines bound to one definitions document.
type Factory interface {
	// New returns an engine for defs. emitGlobalEvents toggles
	// broadcast/global event emission for the invocation.
	New(defs *definition.Definitions, emitGlobalEvents bool) (Engine, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(defs *definition.Definitions, emitGlobalEvents bool) (Engine, error)

// New implements Factory.
func (f FactoryFunc) New(defs *definition.Definitions, emitGlobalEvents bool) (Engine, error) {
	return f(defs, emitGlobalEvents)
}
