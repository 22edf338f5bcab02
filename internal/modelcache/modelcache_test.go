package modelcache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

var now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func testModel(trainedAt time.Time) *forecast.Model {
	return &forecast.Model{
		RegressionType: forecast.RegressionType,
		Tier:           forecast.TierMinimal,
		Beta:           []float64{520, 12.5, 30.1},
		Lambda:         0.5,
		Scaler:         &forecast.Scaler{Means: []float64{0, 510, 505}, Stds: []float64{1, 60, 62}},
		N:              40,
		P:              3,
		MSE:            900,
		GramInverse:    [][]float64{{0.025, 0, 0}, {0, 0.02, 0}, {0, 0, 0.02}},
		MeanRevenue:    520,
		TrainedAt:      trainedAt,
	}
}

type failingBackend struct{ err error }

func (b failingBackend) Get(ctx context.Context) ([]byte, error)    { return nil, b.err }
func (b failingBackend) Put(ctx context.Context, data []byte) error { return b.err }
func (b failingBackend) Close() error                               { return nil }

func TestRepository_RoundTrip(t *testing.T) {
	repo := NewRepository(NewMemoryBackend(), 0)
	assert.Equal(t, DefaultMaxAge, repo.MaxAge())

	saved := testModel(now.Add(-time.Hour))
	require.NoError(t, repo.Save(context.Background(), saved))

	got, err := repo.LoadFresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, saved.Beta, got.Beta)
	assert.Equal(t, saved.Scaler, got.Scaler)
	assert.Equal(t, saved.GramInverse, got.GramInverse)
	assert.True(t, saved.TrainedAt.Equal(got.TrainedAt))
}

func TestRepository_MissWhenAbsent(t *testing.T) {
	_, err := NewRepository(NewMemoryBackend(), 0).LoadFresh(context.Background(), now)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRepository_MissWhenStale(t *testing.T) {
	repo := NewRepository(NewMemoryBackend(), 48*time.Hour)
	require.NoError(t, repo.Save(context.Background(), testModel(now.Add(-49*time.Hour))))

	_, err := repo.LoadFresh(context.Background(), now)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Exactly at the bound is still fresh.
	require.NoError(t, repo.Save(context.Background(), testModel(now.Add(-48*time.Hour))))
	_, err = repo.LoadFresh(context.Background(), now)
	assert.NoError(t, err)
}

func TestRepository_MissOnRegressionType(t *testing.T) {
	repo := NewRepository(NewMemoryBackend(), 0)
	m := testModel(now)
	m.RegressionType = "ridge_tiered_v1"
	require.NoError(t, repo.Save(context.Background(), m))

	_, err := repo.LoadFresh(context.Background(), now)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRepository_BackendError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := NewRepository(failingBackend{err: boom}, 0)

	_, err := repo.LoadFresh(context.Background(), now)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.ErrorIs(t, repo.Save(context.Background(), testModel(now)), boom)
}

func TestValidate(t *testing.T) {
	mutate := func(f func(m *forecast.Model)) []byte {
		m := testModel(now)
		f(m)
		data, err := Encode(m)
		require.NoError(t, err)
		return data
	}

	tests := map[string][]byte{
		"empty":          nil,
		"malformed":      []byte(`{"beta": "not-a-vector"`),
		"beta as string": []byte(`{"regression_type":"ridge_tiered_v2","tier":"minimal","beta":"1,2,3","p":3}`),
		"empty beta":     mutate(func(m *forecast.Model) { m.Beta = nil }),
		"length":         mutate(func(m *forecast.Model) { m.Beta = []float64{1, 2} }),
		"width":          mutate(func(m *forecast.Model) { m.P = 4; m.Beta = []float64{1, 2, 3, 4} }),
		"no trained_at":  mutate(func(m *forecast.Model) { m.TrainedAt = time.Time{} }),
		"no scaler":      mutate(func(m *forecast.Model) { m.Scaler = nil }),
		"zero std":       mutate(func(m *forecast.Model) { m.Scaler.Stds[1] = 0 }),
		"negative std":   mutate(func(m *forecast.Model) { m.Scaler.Stds[2] = -4 }),
		"gram shape":     mutate(func(m *forecast.Model) { m.GramInverse = m.GramInverse[:2] }),
		"short stds": []byte(`{"regression_type":"ridge_tiered_v2","tier":"minimal","beta":[500,10,10],"p":3,` +
			`"scaler":{"means":[0,500,500],"stds":[1]},"trained_at":"2025-06-10T08:00:00Z"}`),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Validate(data, now, DefaultMaxAge, forecast.RegressionType)
			assert.ErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func redisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

func isRedisAvailable() bool {
	opts, err := redis.ParseURL(redisURL())
	if err != nil {
		return false
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func TestRedisBackend(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	b, err := NewRedisBackend(RedisConfig{URL: redisURL(), Key: "cashcast:test:model"})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	b.client.Del(ctx, b.key)

	_, err = b.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	repo := NewRepository(b, 0)
	require.NoError(t, repo.Save(ctx, testModel(now)))

	got, err := repo.LoadFresh(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, forecast.TierMinimal, got.Tier)

	b.client.Del(ctx, b.key)
}
