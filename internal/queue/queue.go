// Package queue publishes forecast lifecycle events to a message broker.
package queue

import "context"

// Event subjects.
const (
	SubjectForecastGenerated = "forecast.generated"
	SubjectModelRetrained    = "model.retrained"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// nopQueue drops everything. It backs queue.type "none".
type nopQueue struct{}

func (nopQueue) Publish(ctx context.Context, subject string, data []byte) error { return nil }
func (nopQueue) Subscribe(subject string, handler MessageHandler) error         { return nil }
func (nopQueue) Unsubscribe(subject string) error                               { return nil }
func (nopQueue) Close() error                                                   { return nil }
