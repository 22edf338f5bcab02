package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures the JetStream publisher.
type NATSConfig struct {
	URL    string // nats://localhost:4222
	Stream string // Stream capturing the event subjects (default: "CASHCAST")
}

// streamSubjects are captured by the event stream.
var streamSubjects = []string{"forecast.>", "model.>"}

// NATSQueue implements Queue on NATS JetStream.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	stream        string
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

func newNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("cashcast"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg.Stream)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// NewNATSQueueWithConn creates a queue on an existing connection and makes
// sure the event stream exists.
func NewNATSQueueWithConn(conn *nats.Conn, stream string) (*NATSQueue, error) {
	return newNATSQueueWithConn(conn, stream)
}

func newNATSQueueWithConn(conn *nats.Conn, stream string) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if stream == "" {
		stream = "CASHCAST"
	}
	q := &NATSQueue{
		conn:          conn,
		js:            js,
		stream:        stream,
		subscriptions: make(map[string]*nats.Subscription),
	}
	if err := q.ensureStream(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *NATSQueue) ensureStream() error {
	_, err := q.js.StreamInfo(q.stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", q.stream, err)
	}

	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:     q.stream,
		Subjects: streamSubjects,
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", q.stream, err)
	}
	return nil
}

// Publish publishes synchronously and waits for the stream ack.
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable, manually acked consumer. Handler errors NAK
// the message for redelivery, at most three attempts.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.BindStream(q.stream),
		nats.Durable("cashcast-"+sanitizeConsumerName(subject)),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close drops subscriptions and closes the connection.
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}
	q.conn.Close()
	return nil
}

// sanitizeConsumerName maps a subject onto the consumer name alphabet
// A-Z, a-z, 0-9, dash and underscore.
func sanitizeConsumerName(subject string) string {
	result := make([]byte, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
