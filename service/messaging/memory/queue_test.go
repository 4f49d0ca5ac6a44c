package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{Name: "first"}))
	require.NoError(t, queue.Publish(ctx, &payload{Name: "second"}))
	assert.Equal(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.T().Name)
	require.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack(), "double ack must be rejected")
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_DropWhenFull(t *testing.T) {
	queue := NewQueue[payload](Config{QueueBuffer: 1, DropWhenFull: true})
	ctx := context.Background()

	// no consumer: without the drop policy the second publish would block
	require.NoError(t, queue.Publish(ctx, &payload{Name: "kept"}))
	require.NoError(t, queue.Publish(ctx, &payload{Name: "dropped"}))
	require.NoError(t, queue.Publish(ctx, &payload{Name: "dropped too"}))
	assert.Equal(t, 1, queue.Size())

	msg, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", msg.T().Name)
}

func TestQueue_NackRedelivers(t *testing.T) {
	queue := NewQueue[payload](Config{MaxRetries: 2, RetryDelay: time.Millisecond, DeadLetter: true, QueueBuffer: 4})
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &payload{Name: "flaky"}))

	for attempt := 0; attempt < 3; attempt++ {
		msg, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NoError(t, msg.Nack(errors.New("not yet")))
	}

	// retry budget spent: nothing redelivered, message dead-lettered
	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := queue.Consume(ctx2)
	assert.Error(t, err)
	assert.Equal(t, 1, queue.DLQSize())
}
