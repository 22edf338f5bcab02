// Package modelcache persists the trained forecast model snapshot and decides
// whether a stored snapshot is still fresh enough to serve.
package modelcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

// DefaultMaxAge is the staleness bound of a snapshot.
const DefaultMaxAge = 48 * time.Hour

var (
	// ErrCacheMiss is returned (wrapped with the reason) when no servable
	// snapshot exists. Callers retrain and write through.
	ErrCacheMiss = errors.New("model cache miss")

	// ErrNotFound is returned by backends when the snapshot key is absent.
	ErrNotFound = errors.New("snapshot not found")
)

// Backend stores one encoded snapshot. Writes are last-write-wins.
type Backend interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Close() error
}

// Repository loads and saves model snapshots through a Backend.
type Repository struct {
	backend        Backend
	maxAge         time.Duration
	regressionType string
}

// NewRepository creates a repository. A non-positive maxAge uses DefaultMaxAge.
func NewRepository(backend Backend, maxAge time.Duration) *Repository {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Repository{
		backend:        backend,
		maxAge:         maxAge,
		regressionType: forecast.RegressionType,
	}
}

// MaxAge is the configured staleness bound.
func (r *Repository) MaxAge() time.Duration {
	return r.maxAge
}

// LoadFresh returns the stored model when it passes every freshness check.
// A rejected or absent snapshot yields an error wrapping ErrCacheMiss; any
// other error is a backend failure.
func (r *Repository) LoadFresh(ctx context.Context, now time.Time) (*forecast.Model, error) {
	data, err := r.backend.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no snapshot stored", ErrCacheMiss)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Validate(data, now, r.maxAge, r.regressionType)
}

// Save writes the model as the current snapshot.
func (r *Repository) Save(ctx context.Context, m *forecast.Model) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := r.backend.Put(ctx, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close releases the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// Encode serializes a model snapshot.
func Encode(m *forecast.Model) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model: %w", err)
	}
	return data, nil
}

// Validate decodes a snapshot and applies the freshness policy.
func Validate(data []byte, now time.Time, maxAge time.Duration, regressionType string) (*forecast.Model, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrCacheMiss)
	}

	var m forecast.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot: %v", ErrCacheMiss, err)
	}

	if m.RegressionType != regressionType {
		return nil, fmt.Errorf("%w: regression type %q, want %q", ErrCacheMiss, m.RegressionType, regressionType)
	}
	if m.TrainedAt.IsZero() {
		return nil, fmt.Errorf("%w: snapshot has no training time", ErrCacheMiss)
	}
	if age := m.Age(now); age > maxAge {
		return nil, fmt.Errorf("%w: snapshot is %s old, max %s", ErrCacheMiss, age.Round(time.Minute), maxAge)
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheMiss, err)
	}
	return &m, nil
}
