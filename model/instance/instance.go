package instance

import "time"

// Process instance status constants
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Token status constants
const (
	TokenStatusActive = "active"
	TokenStatusClosed = "closed"
)

// Token marks an execution position within a running instance's flow.
type Token struct {
	ID        string `json:"id"`
	ElementID string `json:"elementId"`
	Status    string `json:"status"`
}

// ProcessInstance is one running execution of a workflow definition. It is
// the shared mutable resource the lock protocol protects; all of its fields
// are persisted through an instance.Repository.
type ProcessInstance struct {
	ID            string `json:"id"`
	DefinitionsID string `json:"definitionsId"`

	// CollaborationID links instances that exchange messages. Instances
	// sharing a collaboration must always be locked as a unit.
	CollaborationID string `json:"collaborationId,omitempty"`

	Status string   `json:"status"`
	Tokens []*Token `json:"tokens,omitempty"`

	// ErrorMessage and ErrorElementID are populated when an action or the
	// subsequent state-machine advance fails while this instance was the
	// affected request.
	ErrorMessage   string `json:"errorMessage,omitempty"`
	ErrorElementID string `json:"errorElementId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Token returns the first live token with the given id, nil when absent. No
// ordering beyond "first structurally matching" is guaranteed.
func (p *ProcessInstance) Token(id string) *Token {
	for _, token := range p.Tokens {
		if token.ID == id {
			return token
		}
	}
	return nil
}

// MarkError flips the instance into the error status and records the
// failure message together with the element being executed at failure time.
func (p *ProcessInstance) MarkError(message, elementID string) {
	p.Status = StatusError
	p.ErrorMessage = message
	p.ErrorElementID = elementID
	p.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the instance.
func (p *ProcessInstance) Clone() *ProcessInstance {
	if p == nil {
		return nil
	}
	ret := *p
	if len(p.Tokens) > 0 {
		ret.Tokens = make([]*Token, len(p.Tokens))
		for i, token := range p.Tokens {
			cloned := *token
			ret.Tokens[i] = &cloned
		}
	}
	return &ret
}
