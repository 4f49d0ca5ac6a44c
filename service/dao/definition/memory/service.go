package memory

import (
	"context"
	"sync"

	"github.com/flowgate/flowgate/model/definition"
	"github.com/flowgate/flowgate/service/dao"
	ddefinition "github.com/flowgate/flowgate/service/dao/definition"
)

// Service implements an in-memory definitions loader, primarily for tests
// and embedded single-process deployments.
type Service struct {
	mu          sync.RWMutex
	definitions map[string]*definition.Definitions
}

var _ ddefinition.Loader = (*Service)(nil)

// New creates an empty in-memory definitions loader.
func New() *Service {
	return &Service{definitions: make(map[string]*definition.Definitions)}
}

// Upsert registers definitions under their id.
func (s *Service) Upsert(defs *definition.Definitions) {
	if defs == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[defs.ID] = defs
}

// Load returns the definitions or dao.ErrNotFound.
func (s *Service) Load(_ context.Context, definitionsID string) (*definition.Definitions, error) {
	if definitionsID == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs, ok := s.definitions[definitionsID]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return defs, nil
}
