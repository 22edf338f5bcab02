package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// setupTestNATS creates an embedded NATS server for testing
func setupTestNATS(t *testing.T) string {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNewNATSQueue_CreatesStream(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url, Stream: "TEST_EVENTS"})
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	info, err := q.js.StreamInfo("TEST_EVENTS")
	if err != nil {
		t.Fatalf("stream not created: %v", err)
	}
	if len(info.Config.Subjects) != len(streamSubjects) {
		t.Errorf("expected subjects %v, got %v", streamSubjects, info.Config.Subjects)
	}

	// Existing stream is reused.
	conn, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := NewNATSQueueWithConn(conn, "TEST_EVENTS"); err != nil {
		t.Errorf("reopening existing stream failed: %v", err)
	}
}

func TestNewNATSQueue_InvalidURL(t *testing.T) {
	q, err := newNATSQueue(NATSConfig{URL: "nats://127.0.0.1:1"})
	if err == nil {
		_ = q.Close()
		t.Fatal("Expected error with invalid URL")
	}
}

func TestNATSQueue_PublishForecastEvent(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = q.Close() }()

	received := make(chan ForecastGeneratedEvent, 1)
	if err := q.Subscribe(SubjectForecastGenerated, func(data []byte) error {
		var ev ForecastGeneratedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := NewForecastGeneratedEvent("run-nats", time.Now().UTC(), testModel(), false, nil)
	if err := NewEventPublisher(q).ForecastGenerated(ctx, ev); err != nil {
		t.Fatalf("ForecastGenerated() error = %v", err)
	}

	select {
	case got := <-received:
		if got.RunID != "run-nats" {
			t.Errorf("expected run-nats, got %s", got.RunID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestNATSQueue_RedeliversOnHandlerError(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = q.Close() }()

	var attempts atomic.Int32
	done := make(chan struct{})
	if err := q.Subscribe(SubjectModelRetrained, func(data []byte) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := q.Publish(context.Background(), SubjectModelRetrained, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
		if attempts.Load() != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts.Load())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("message was not redelivered")
	}
}

func TestNATSQueue_SubscribeTwice(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = q.Close() }()

	handler := func([]byte) error { return nil }
	if err := q.Subscribe(SubjectForecastGenerated, handler); err != nil {
		t.Fatal(err)
	}
	if err := q.Subscribe(SubjectForecastGenerated, handler); err == nil {
		t.Error("expected duplicate subscription error")
	}
	if err := q.Unsubscribe(SubjectForecastGenerated); err != nil {
		t.Error(err)
	}
	if err := q.Unsubscribe(SubjectForecastGenerated); err == nil {
		t.Error("expected error for missing subscription")
	}
}

func TestSanitizeConsumerName(t *testing.T) {
	if got := sanitizeConsumerName("forecast.generated>*"); got != "forecast_generated__" {
		t.Errorf("unexpected name %q", got)
	}
}
