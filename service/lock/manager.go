// Package lock implements bakery-style group mutual exclusion over a
// persisted ticket table. A contender takes a ticket covering every resource
// it needs and waits until that ticket is the oldest surviving claim over
// any of them; because ticket ids are strictly ordered, ties are impossible
// and grants happen in creation order, modulo expiry.
package lock

import (
	"context"
	"fmt"

	"github.com/flowgate/flowgate/internal/clock"
	"github.com/flowgate/flowgate/service/dao/ticket"
	"github.com/flowgate/flowgate/tracing"
)

// ExistsFunc probes whether the target resource still exists. The manager
// consults it when no candidate ticket is visible, to distinguish "my ticket
// was swept" from "the instance I am locking was deleted".
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Request describes one acquisition: the target instance plus the full
// resource group (target and all collaborators) to be claimed as a unit.
type Request struct {
	// TargetID is the instance the job is addressed to; its disappearance
	// turns acquisition into a permanent failure.
	TargetID string

	// OwnerTokenID optionally records which token requested the lock.
	// Informational only.
	OwnerTokenID string

	// ResourceIDs is the group to claim. Must include TargetID.
	ResourceIDs []string
}

// Handle wraps a granted ticket. The owner is not re-verified before each
// mutating step: expiry alone is trusted, so a sufficiently slow holder can
// still mutate after its own DueAt passed. This is a known weak point of
// the protocol, not an oversight.
type Handle struct {
	ticketID int64
	held     bool
}

// TicketID returns the granted ticket's id; zero for no-op handles.
func (h *Handle) TicketID() int64 {
	if h == nil {
		return 0
	}
	return h.ticketID
}

// Held reports whether the handle wraps a real ticket (false in disabled
// mode or when there was nothing to lock).
func (h *Handle) Held() bool { return h != nil && h.held }

// Option customises a Manager.
type Option func(*Manager)

// WithExistenceProbe installs the target-existence probe. Without one the
// manager cannot distinguish a vanished target and keeps re-ticketing until
// the attempt budget runs out.
func WithExistenceProbe(fn ExistsFunc) Option {
	return func(m *Manager) {
		m.exists = fn
	}
}

// Manager implements acquisition, activation, expiry observation and
// release on top of a ticket.Store.
type Manager struct {
	store  ticket.Store
	config Config
	exists ExistsFunc
}

// New creates a lock manager.
func New(store ticket.Store, config Config, options ...Option) *Manager {
	m := &Manager{store: store, config: config}
	for _, option := range options {
		option(m)
	}
	return m
}

// Acquire claims exclusive access to the request's resource group. It
// blocks, polling every PollInterval, until the claim is granted, the
// attempt budget is exhausted (ErrTimeout), the target disappears
// (ErrTargetVanished) or ctx is cancelled. When locking is disabled or the
// group is empty a no-op handle is returned immediately.
func (m *Manager) Acquire(ctx context.Context, req Request) (handle *Handle, err error) {
	if !m.config.Enabled || len(req.ResourceIDs) == 0 {
		return &Handle{}, nil
	}
	ctx, span := tracing.StartSpan(ctx, "lock.Acquire")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"lock.target": req.TargetID})

	current, err := m.store.Create(ctx, req.TargetID, req.OwnerTokenID, req.ResourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock ticket: %w", err)
	}

	for attempt := m.config.maxAttempts(); attempt > 0; attempt-- {
		now := clock.Now()
		oldest, qErr := m.store.OldestCandidate(ctx, req.ResourceIDs, now)
		if qErr != nil {
			m.discard(ctx, current.ID)
			return nil, fmt.Errorf("failed to query lock tickets: %w", qErr)
		}

		switch {
		case oldest == nil:
			// Our own ticket is gone - swept or superseded. If the target
			// itself disappeared, fail permanently; otherwise re-issue a
			// fresh claim and check again on the next attempt.
			if vErr := m.targetExists(ctx, req.TargetID); vErr != nil {
				return nil, vErr
			}
			current, qErr = m.store.Create(ctx, req.TargetID, req.OwnerTokenID, req.ResourceIDs)
			if qErr != nil {
				return nil, fmt.Errorf("failed to re-create lock ticket: %w", qErr)
			}

		case oldest.ID == current.ID:
			// Oldest surviving claim over the whole group: granted.
			expiresAt := now.Add(m.config.Timeout)
			if aErr := m.store.Activate(ctx, current.ID, expiresAt); aErr != nil {
				m.discard(ctx, current.ID)
				return nil, fmt.Errorf("failed to activate lock ticket %d: %w", current.ID, aErr)
			}
			// Opportunistically sweep leases other holders let lapse.
			_ = m.store.DeleteExpired(ctx, now)
			span.WithAttributes(map[string]string{"lock.ticket": fmt.Sprintf("%d", current.ID)})
			return &Handle{ticketID: current.ID, held: true}, nil
		}

		// An older claim has precedence (or we just re-ticketed); wait one
		// interval before the next check.
		if sErr := clock.Sleep(ctx, m.config.PollInterval); sErr != nil {
			m.discard(ctx, current.ID)
			return nil, sErr
		}
	}

	// Budget exhausted. Withdraw the pending claim so that it cannot stall
	// younger contenders, then report the transient failure.
	m.discard(ctx, current.ID)
	return nil, ErrTimeout
}

// Release deletes the granted ticket. Safe to call with nil or no-op
// handles and idempotent with respect to already-deleted tickets.
func (m *Manager) Release(ctx context.Context, handle *Handle) error {
	if !handle.Held() {
		return nil
	}
	if err := m.store.Delete(ctx, handle.ticketID); err != nil {
		return fmt.Errorf("failed to release lock ticket %d: %w", handle.ticketID, err)
	}
	handle.held = false
	return nil
}

// targetExists maps the existence probe onto the permanent failure.
func (m *Manager) targetExists(ctx context.Context, targetID string) error {
	if m.exists == nil {
		return nil
	}
	ok, err := m.exists(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to verify lock target %s: %w", targetID, err)
	}
	if !ok {
		return ErrTargetVanished
	}
	return nil
}

// discard best-effort deletes our own claim on a failure path; when the
// delete itself fails the ticket is left for a future sweep.
func (m *Manager) discard(ctx context.Context, ticketID int64) {
	_ = m.store.Delete(ctx, ticketID)
}
