package modelcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/lavapop/cashcast/internal/config"
)

// Backend names accepted by model_cache.backend.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// pinger is implemented by backends with a reachable server.
type pinger interface {
	Ping(ctx context.Context) error
}

// Open creates the repository selected by cfg. db is required for the
// postgres backend and ignored otherwise.
func Open(ctx context.Context, cfg config.ModelCacheConfig, redisCfg config.RedisConfig, db Querier) (*Repository, error) {
	var backend Backend

	switch strings.ToLower(cfg.Backend) {
	case BackendRedis, "":
		rb, err := NewRedisBackend(RedisConfig{
			URL:      redisCfg.URL,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Key:      cfg.Key,
			TTL:      cfg.MaxAge,
		})
		if err != nil {
			return nil, err
		}
		backend = rb
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres model cache requires a database connection")
		}
		pb := NewPostgresBackend(db, cfg.Key)
		if err := pb.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		backend = pb
	case BackendMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported model cache backend: %s", cfg.Backend)
	}

	return NewRepository(backend, cfg.MaxAge), nil
}

// Ping checks the backend when it has a server to reach.
func (r *Repository) Ping(ctx context.Context) error {
	if p, ok := r.backend.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
