package queue

import (
	"fmt"
	"strings"

	"github.com/lavapop/cashcast/internal/config"
)

// Type names a queue backend.
type Type string

const (
	TypeNone   Type = "none"
	TypeNATS   Type = "nats"
	TypeRedis  Type = "redis"
	TypeKafka  Type = "kafka"
	TypeMemory Type = "memory"
)

// NewQueue creates a new Queue instance based on configuration.
// An empty type disables publishing.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	switch Type(strings.ToLower(cfg.Type)) {
	case "", TypeNone:
		return nopQueue{}, nil

	case TypeNATS:
		return newNATSQueue(NATSConfig{URL: cfg.URL, Stream: cfg.NATSStream})

	case TypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case TypeKafka:
		return newKafkaQueue(KafkaConfig{Brokers: cfg.KafkaBrokers})

	case TypeMemory:
		return newMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: none, nats, redis, kafka, memory)", cfg.Type)
	}
}
