package memory

import (
	"context"
	"sync"

	"github.com/flowgate/flowgate/model/instance"
	"github.com/flowgate/flowgate/service/dao"
	dinstance "github.com/flowgate/flowgate/service/dao/instance"
)

// Service implements an in-memory instance repository. All operations are
// thread-safe and return copies of the underlying records.
type Service struct {
	mu        sync.RWMutex
	instances map[string]*instance.ProcessInstance
}

// Compile-time check that Service implements the repository contract.
var _ dinstance.Repository = (*Service)(nil)

// New creates an empty in-memory instance repository.
func New() *Service {
	return &Service{instances: make(map[string]*instance.ProcessInstance)}
}

// Find returns a copy of the instance or dao.ErrNotFound.
func (s *Service) Find(_ context.Context, id string) (*instance.ProcessInstance, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	inst, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return inst.Clone(), nil
}

// Save persists (a clone of) the supplied instance.
func (s *Service) Save(_ context.Context, inst *instance.ProcessInstance) error {
	if inst == nil {
		return dao.ErrNilEntity
	}
	if inst.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst.Clone()
	return nil
}

// Delete removes an instance.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, id)
	return nil
}

// Collaborators returns every other instance sharing inst's collaboration.
func (s *Service) Collaborators(_ context.Context, inst *instance.ProcessInstance) ([]*instance.ProcessInstance, error) {
	if inst == nil {
		return nil, dao.ErrNilEntity
	}
	if inst.CollaborationID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var siblings []*instance.ProcessInstance
	for _, candidate := range s.instances {
		if candidate.ID == inst.ID || candidate.CollaborationID != inst.CollaborationID {
			continue
		}
		siblings = append(siblings, candidate.Clone())
	}
	return siblings, nil
}

// RecordError persists the error status together with message and element.
func (s *Service) RecordError(_ context.Context, id string, message, elementID string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return dao.ErrNotFound
	}
	inst.MarkError(message, elementID)
	return nil
}
