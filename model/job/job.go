package job

import "errors"

var (
	// ErrMissingTarget is returned when a job names neither an instance nor
	// a definitions id.
	ErrMissingTarget = errors.New("job: either instanceId or definitionsId is required")

	// ErrAmbiguousTarget is returned when a job names both an instance and a
	// definitions id.
	ErrAmbiguousTarget = errors.New("job: instanceId and definitionsId are mutually exclusive")

	// ErrAmbiguousPosition is returned when a job names both a token and an
	// element id.
	ErrAmbiguousPosition = errors.New("job: tokenId and elementId are mutually exclusive")
)

// Job describes one dispatched unit of work: a single workflow action to be
// run against a process instance (or, for start-new-process actions,
// against bare definitions).
type Job struct {
	// InstanceID names the target process instance. Exactly one of
	// InstanceID and DefinitionsID must be set.
	InstanceID string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`

	// DefinitionsID names the definitions to start a new process from when
	// no running instance exists yet.
	DefinitionsID string `json:"definitionsId,omitempty" yaml:"definitionsId,omitempty"`

	// TokenID optionally pins the action to one live token; ElementID
	// optionally pins it to one flow element. At most one may be set.
	TokenID   string `json:"tokenId,omitempty" yaml:"tokenId,omitempty"`
	ElementID string `json:"elementId,omitempty" yaml:"elementId,omitempty"`

	// ProcessID optionally names a sub-process within the definitions.
	ProcessID string `json:"processId,omitempty" yaml:"processId,omitempty"`

	// Data is an opaque payload handed to the action unchanged.
	Data map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`

	// DisableGlobalEvents suppresses broadcast event emission for this job.
	DisableGlobalEvents bool `json:"disableGlobalEvents,omitempty" yaml:"disableGlobalEvents,omitempty"`

	// Action names the registered action to invoke; used by the worker
	// dispatch layer, ignored when the caller supplies the action directly.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Validate enforces the target and position exclusivity rules.
func (j *Job) Validate() error {
	if j.InstanceID == "" && j.DefinitionsID == "" {
		return ErrMissingTarget
	}
	if j.InstanceID != "" && j.DefinitionsID != "" {
		return ErrAmbiguousTarget
	}
	if j.TokenID != "" && j.ElementID != "" {
		return ErrAmbiguousPosition
	}
	return nil
}
