package runner

// Status classifies how one lifecycle invocation ended. Failures are
// propagated through this outcome type rather than thrown: none of them
// escapes Handle, so the durable error record on the affected request is
// the source of truth for operators.
type Status string

const (
	// StatusCompleted - the action ran and the engine advanced to its next
	// stable waiting state.
	StatusCompleted Status = "completed"

	// StatusLockTimeout - acquisition exhausted its attempt budget.
	// Transient: no partial state was mutated and the transport should
	// redeliver the job later.
	StatusLockTimeout Status = "lockTimeout"

	// StatusTargetVanished - the instance to be locked no longer exists.
	// Permanent: redelivery cannot succeed.
	StatusTargetVanished Status = "targetVanished"

	// StatusLoadFailed - definitions or instance could not be resolved.
	StatusLoadFailed Status = "loadFailed"

	// StatusActionFailed - the invoked action raised.
	StatusActionFailed Status = "actionFailed"

	// StatusAdvanceFailed - the post-action state-machine advance raised.
	StatusAdvanceFailed Status = "advanceFailed"
)

// Outcome is the result of one lifecycle invocation.
type Outcome struct {
	Status Status

	// Result is the action's return value; nil on failure.
	Result interface{}

	// Err is the underlying cause for non-completed outcomes.
	Err error
}

// Completed reports whether the invocation fully succeeded.
func (o Outcome) Completed() bool { return o.Status == StatusCompleted }

// Retryable reports whether the transport should redeliver the job.
func (o Outcome) Retryable() bool { return o.Status == StatusLockTimeout }
