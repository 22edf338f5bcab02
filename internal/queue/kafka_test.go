package queue

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNewKafkaQueue(t *testing.T) {
	q, err := NewKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.GroupID != "cashcast" {
		t.Errorf("expected default group, got %s", q.config.GroupID)
	}
	if got := q.topic(SubjectForecastGenerated); got != "cashcast.forecast.generated" {
		t.Errorf("unexpected topic %s", got)
	}
}

func TestNewKafkaQueue_NoBrokers(t *testing.T) {
	if _, err := NewKafkaQueue(KafkaConfig{}); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestKafkaQueue_Publish(t *testing.T) {
	if os.Getenv("KAFKA_TEST") != "1" {
		t.Skip("KAFKA_TEST not set, skipping test")
	}
	brokers := []string{"localhost:9092"}
	if b := os.Getenv("KAFKA_BROKERS"); b != "" {
		brokers = []string{b}
	}

	q, err := NewKafkaQueue(KafkaConfig{Brokers: brokers, TopicPrefix: "test-cashcast."})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Publish(ctx, SubjectForecastGenerated, []byte(`{}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if q.Stats().Messages < 1 {
		t.Error("expected writer stats to count the message")
	}
}
