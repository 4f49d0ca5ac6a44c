package messaging

import "context"

// Queue is the transport boundary for dispatched action jobs. Delivery
// guarantees (at-least-once, redelivery back-off) are the implementation's
// concern; the core only Acks successfully handled messages and Nacks those
// that should be retried later.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message, blocking until one is available
	// or ctx is cancelled.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message.
	Nack(err error) error
}
