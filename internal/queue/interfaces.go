package queue

import (
	"context"
)

// Message is a queue message independent of the broker it came from
type Message struct {
	ID   string
	Body []byte
	// Receipt is the broker-specific handle needed to acknowledge the message
	Receipt any
}

// QueuePublisher defines the interface for publishing raw registrations to a queue
type QueuePublisher interface {
	PublishRegistration(ctx context.Context, key string, body []byte) error
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	// ReceiveMessages blocks until messages are available, the broker wait time elapses or ctx is done
	ReceiveMessages(ctx context.Context) ([]Message, error)
	// DeleteMessage acknowledges msg so it is not delivered again
	DeleteMessage(ctx context.Context, msg Message) error
	Name() string
}
