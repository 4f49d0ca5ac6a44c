package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowgate/flowgate/internal/clock"
	"github.com/flowgate/flowgate/model/lock"
	"github.com/flowgate/flowgate/service/dao"
	"github.com/flowgate/flowgate/service/dao/ticket"
)

// Service implements an in-memory ticket store. All operations are
// thread-safe and return copies of the underlying records to prevent data
// races when callers mutate the returned tickets.
type Service struct {
	mu      sync.Mutex
	seq     int64
	tickets map[int64]*lock.Ticket
}

// Compile-time check that Service implements the ticket store contract.
var _ ticket.Store = (*Service)(nil)

// New creates an empty in-memory ticket store.
func New() *Service {
	return &Service{tickets: make(map[int64]*lock.Ticket)}
}

// Create inserts a new pending ticket with the next sequence id.
func (s *Service) Create(_ context.Context, ownerRequestID, ownerTokenID string, resourceIDs []string) (*lock.Ticket, error) {
	if len(resourceIDs) == 0 {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &lock.Ticket{
		ID:             s.seq,
		OwnerRequestID: ownerRequestID,
		OwnerTokenID:   ownerTokenID,
		ResourceIDs:    append([]string(nil), resourceIDs...),
		CreatedAt:      clock.Now(),
	}
	s.tickets[t.ID] = t
	return t.Clone(), nil
}

// OldestCandidate returns the lowest-id unexpired intersecting ticket.
func (s *Service) OldestCandidate(_ context.Context, resourceIDs []string, now time.Time) (*lock.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *lock.Ticket
	for _, t := range s.tickets {
		if t.Expired(now) || !t.Intersects(resourceIDs) {
			continue
		}
		if oldest == nil || t.ID < oldest.ID {
			oldest = t
		}
	}
	return oldest.Clone(), nil
}

// Activate confirms the ticket as holder and sets its lease expiry.
func (s *Service) Activate(_ context.Context, id int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return dao.ErrNotFound
	}
	due := expiresAt
	t.DueAt = &due
	t.Active = true
	return nil
}

// DeleteExpired removes every ticket whose lease lapsed before now.
func (s *Service) DeleteExpired(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tickets {
		if t.Expired(now) {
			delete(s.tickets, id)
		}
	}
	return nil
}

// Delete removes a ticket. Deleting an absent ticket is not an error so
// that release stays idempotent.
func (s *Service) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, id)
	return nil
}

// Size returns the number of stored tickets; used by tests to assert
// release-on-all-paths.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}
