package ticket

import (
	"context"
	"time"

	"github.com/flowgate/flowgate/model/lock"
)

// Store is durable, append-ordered storage for lock tickets. Implementations
// must assign strictly increasing ids across all creators and must support
// an atomic single-record insert plus a consistent read of the oldest
// unexpired intersecting ticket - the one low-level atomicity requirement
// the bakery protocol leans on.
type Store interface {
	// Create inserts a new pending ticket (no due time, not active) claiming
	// resourceIDs and returns it with its store-assigned id.
	Create(ctx context.Context, ownerRequestID, ownerTokenID string, resourceIDs []string) (*lock.Ticket, error)

	// OldestCandidate returns the lowest-id unexpired ticket whose resource
	// set intersects resourceIDs, or nil when no such ticket exists. Pending
	// tickets (nil DueAt) count as candidates; a ticket whose DueAt has
	// passed is treated as absent regardless of its Active flag.
	OldestCandidate(ctx context.Context, resourceIDs []string, now time.Time) (*lock.Ticket, error)

	// Activate marks the ticket as the confirmed holder and sets its lease
	// expiry. Idempotent.
	Activate(ctx context.Context, id int64, expiresAt time.Time) error

	// DeleteExpired removes every ticket whose DueAt lies before now. Used
	// opportunistically by activators; correctness never depends on prompt
	// sweeping, only on expiry being observed at query time.
	DeleteExpired(ctx context.Context, now time.Time) error

	// Delete removes a ticket, typically on release.
	Delete(ctx context.Context, id int64) error
}
