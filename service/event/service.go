// Package event publishes broadcast lifecycle events. Emission is
// best-effort and can be suppressed per job via DisableGlobalEvents.
package event

import (
	"context"
	"time"

	"github.com/flowgate/flowgate/internal/clock"
	"github.com/flowgate/flowgate/service/messaging"
	qmem "github.com/flowgate/flowgate/service/messaging/memory"
)

// Topics emitted by the lifecycle runner.
const (
	TopicLockAcquired   = "lifecycle.lockAcquired"
	TopicActionComplete = "lifecycle.actionCompleted"
	TopicActionFailed   = "lifecycle.actionFailed"
)

// Event is one broadcast notification.
type Event struct {
	Topic      string            `json:"topic"`
	InstanceID string            `json:"instanceId,omitempty"`
	At         time.Time         `json:"at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Service fans lifecycle events out over a queue.
type Service struct {
	events messaging.Queue[Event]
}

// New creates an event service. With a nil queue an in-memory one is used
// that drops events when nobody drains it, so emission never blocks the
// lifecycle; hosts supplying their own queue choose their own backpressure
// policy.
func New(queue messaging.Queue[Event]) *Service {
	if queue == nil {
		config := qmem.DefaultConfig()
		config.DropWhenFull = true
		queue = qmem.NewQueue[Event](config)
	}
	return &Service{events: queue}
}

// Publish emits an event, stamping it when the caller did not.
func (s *Service) Publish(ctx context.Context, e *Event) error {
	if s == nil || e == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = clock.Now()
	}
	return s.events.Publish(ctx, e)
}

// Consume blocks for the next event; used by host-side listeners.
func (s *Service) Consume(ctx context.Context) (messaging.Message[Event], error) {
	return s.events.Consume(ctx)
}
