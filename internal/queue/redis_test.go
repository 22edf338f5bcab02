package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Test helper: get Redis URL from env or default
func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

// Test helper: connect or skip
func redisClient(t *testing.T) *redis.Client {
	opts, err := redis.ParseURL(getRedisURL())
	if err != nil {
		t.Skipf("invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping test")
	}
	return client
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	client := redisClient(t)
	prefix := "test-cashcast-" + time.Now().Format("150405.000")
	q := NewRedisQueueWithClient(client, RedisConfig{Stream: prefix, Group: "test"})
	defer func() { _ = q.Close() }()
	defer client.Del(context.Background(), prefix+":"+SubjectForecastGenerated)

	received := make(chan []byte, 1)
	if err := q.Subscribe(SubjectForecastGenerated, func(data []byte) error {
		received <- data
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := q.Publish(context.Background(), SubjectForecastGenerated, []byte(`{"run_id":"r"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case data := <-received:
		if string(data) != `{"run_id":"r"}` {
			t.Errorf("unexpected payload %s", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNewRedisQueueWithClient_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	q := NewRedisQueueWithClient(client, RedisConfig{})
	defer func() { _ = q.Close() }()

	if q.config.Stream != "cashcast" || q.config.Group != "cashcast" {
		t.Errorf("unexpected defaults %+v", q.config)
	}
	if q.config.Consumer == "" || q.config.MaxLen != 10000 {
		t.Errorf("unexpected defaults %+v", q.config)
	}
	if got := q.streamName(SubjectModelRetrained); got != "cashcast:model.retrained" {
		t.Errorf("unexpected stream name %s", got)
	}
}
