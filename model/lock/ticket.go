package lock

import "time"

// Ticket is one holder's persisted claim (pending or active) over a group
// of process-instance ids. Tickets form a bakery queue: the store assigns a
// monotonically increasing ID at creation time and that ID is the sole
// ordering key for precedence - lower id means older means higher priority.
type Ticket struct {
	ID int64 `json:"id"`

	// OwnerRequestID and OwnerTokenID identify the logical unit that
	// requested the ticket. They are informational only and take no part in
	// the mutual-exclusion predicate.
	OwnerRequestID string `json:"ownerRequestId,omitempty"`
	OwnerTokenID   string `json:"ownerTokenId,omitempty"`

	// ResourceIDs is the unordered set of process-instance ids this ticket
	// claims. Sets of distinct tickets may overlap.
	ResourceIDs []string `json:"resourceIds"`

	// DueAt is nil while the ticket is pending. Activation sets it to
	// now+timeout; once DueAt has passed the ticket is expired and must be
	// treated as absent.
	DueAt *time.Time `json:"dueAt,omitempty"`

	// Active is false while the ticket is merely a pending candidate and
	// true once the holder confirmed it is the oldest surviving claim.
	Active bool `json:"active"`

	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the ticket's lease has lapsed. Pending tickets
// (nil DueAt) never expire.
func (t *Ticket) Expired(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now)
}

// Intersects reports whether the ticket claims any of the supplied ids.
func (t *Ticket) Intersects(resourceIDs []string) bool {
	for _, claimed := range t.ResourceIDs {
		for _, id := range resourceIDs {
			if claimed == id {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so that stores can hand out tickets without
// exposing their internal records to caller mutation.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	ret := *t
	ret.ResourceIDs = append([]string(nil), t.ResourceIDs...)
	if t.DueAt != nil {
		due := *t.DueAt
		ret.DueAt = &due
	}
	return &ret
}
