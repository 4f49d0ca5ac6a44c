package lock

import "errors"

var (
	// ErrTimeout is returned when acquisition exhausts its attempt budget.
	// Transient: nothing was mutated and the job should be retried by its
	// transport later.
	ErrTimeout = errors.New("lock: acquisition timed out")

	// ErrTargetVanished is returned when the instance to be locked no longer
	// exists. Permanent: retrying cannot succeed.
	ErrTargetVanished = errors.New("lock: target instance no longer exists")
)
