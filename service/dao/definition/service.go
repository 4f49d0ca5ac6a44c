package definition

import (
	"context"

	"github.com/flowgate/flowgate/model/definition"
)

// Loader resolves process definitions by id. The production implementation
// belongs to the host engine's model layer; the core only performs id-based
// lookups on the returned documents.
type Loader interface {
	// Load returns the definitions or dao.ErrNotFound.
	Load(ctx context.Context, definitionsID string) (*definition.Definitions, error)
}
