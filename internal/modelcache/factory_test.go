package modelcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavapop/cashcast/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	repo, err := Open(context.Background(), config.ModelCacheConfig{Backend: "MEMORY", MaxAge: time.Hour}, config.RedisConfig{}, nil)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	assert.Equal(t, time.Hour, repo.MaxAge())
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open(context.Background(), config.ModelCacheConfig{Backend: "postgres"}, config.RedisConfig{}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), config.ModelCacheConfig{Backend: "s3"}, config.RedisConfig{}, nil)
	assert.Error(t, err)
}
