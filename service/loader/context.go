package loader

import (
	"github.com/flowgate/flowgate/model/definition"
	"github.com/flowgate/flowgate/model/instance"
	"github.com/flowgate/flowgate/service/engine"
)

// Context is the ephemeral, per-invocation execution bundle resolved under
// lock. It is owned exclusively by one lifecycle invocation and discarded
// when the invocation ends.
type Context struct {
	// Definitions is the parsed process graph owning the target.
	Definitions *definition.Definitions

	// Instance is the loaded target instance; nil for start-new-process
	// jobs that only name definitions.
	Instance *instance.ProcessInstance

	// Collaborators are the other instances of Instance's collaboration,
	// already registered with Engine.
	Collaborators []*instance.ProcessInstance

	// Token and Element are the resolved execution position; both may be
	// nil when the job pinned neither or nothing matched.
	Token   *instance.Token
	Element *definition.Element

	// SubProcess is the resolved sub-model when the job named one.
	SubProcess *definition.Process

	// ProcessModel mirrors SubProcess when set, otherwise the first process
	// of the definitions; kept separate for caller convenience.
	ProcessModel *definition.Process

	// Data is the job payload, passed through unchanged.
	Data map[string]interface{}

	// Engine is the invocation-scoped state-machine handle.
	Engine engine.Engine
}
