package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessInstance_Token(t *testing.T) {
	inst := &ProcessInstance{
		ID: "i1",
		Tokens: []*Token{
			{ID: "t1", ElementID: "a", Status: TokenStatusClosed},
			{ID: "t2", ElementID: "b", Status: TokenStatusActive},
		},
	}
	token := inst.Token("t2")
	if assert.NotNil(t, token) {
		assert.Equal(t, "b", token.ElementID)
	}
	assert.Nil(t, inst.Token("ghost"))
	assert.Nil(t, (&ProcessInstance{}).Token("t1"))
}

func TestProcessInstance_MarkError(t *testing.T) {
	inst := &ProcessInstance{ID: "i1", Status: StatusActive}
	inst.MarkError("payment rejected", "task-7")
	assert.Equal(t, StatusError, inst.Status)
	assert.Equal(t, "payment rejected", inst.ErrorMessage)
	assert.Equal(t, "task-7", inst.ErrorElementID)
	assert.False(t, inst.UpdatedAt.IsZero())
}

func TestProcessInstance_Clone(t *testing.T) {
	var absent *ProcessInstance
	assert.Nil(t, absent.Clone())

	inst := &ProcessInstance{
		ID:     "i1",
		Tokens: []*Token{{ID: "t1", ElementID: "a", Status: TokenStatusActive}},
	}
	cloned := inst.Clone()
	cloned.Tokens[0].Status = TokenStatusClosed
	assert.Equal(t, TokenStatusActive, inst.Tokens[0].Status, "clone must not alias token state")
}
