package instance

import (
	"context"

	"github.com/flowgate/flowgate/model/instance"
)

// Repository is the persistence boundary for process instances - the
// records the lock protocol protects. The core consumes this contract; the
// host engine provides the production implementation.
type Repository interface {
	// Find returns the instance or dao.ErrNotFound.
	Find(ctx context.Context, id string) (*instance.ProcessInstance, error)

	// Save persists the instance.
	Save(ctx context.Context, inst *instance.ProcessInstance) error

	// Delete removes the instance.
	Delete(ctx context.Context, id string) error

	// Collaborators returns every other instance participating in the same
	// collaboration as inst; empty when the instance does not collaborate.
	Collaborators(ctx context.Context, inst *instance.ProcessInstance) ([]*instance.ProcessInstance, error)

	// RecordError flips the instance into the error status, persisting the
	// failure message and the id of the element being executed when the
	// failure occurred.
	RecordError(ctx context.Context, id string, message, elementID string) error
}
