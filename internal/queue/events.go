package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

// ForecastDay is the per-day payload of a forecast event.
type ForecastDay struct {
	Date             string  `json:"date"`
	PredictedRevenue float64 `json:"predicted_revenue"`
	IntervalLow      float64 `json:"interval_low"`
	IntervalHigh     float64 `json:"interval_high"`
	Category         string  `json:"category"`
	IsClosedDay      bool    `json:"is_closed_day"`
}

// ForecastGeneratedEvent is published after every successful forecast.
type ForecastGeneratedEvent struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	ModelTier   forecast.Tier `json:"model_tier"`
	Lambda      float64       `json:"lambda"`
	CacheHit    bool          `json:"cache_hit"`
	TotalWeek   float64       `json:"total_predicted_revenue"`
	Days        []ForecastDay `json:"days"`
}

// ModelRetrainedEvent is published when a new model snapshot is stored.
type ModelRetrainedEvent struct {
	RunID     string        `json:"run_id"`
	TrainedAt time.Time     `json:"trained_at"`
	Tier      forecast.Tier `json:"tier"`
	N         int           `json:"n"`
	P         int           `json:"p"`
	Lambda    float64       `json:"lambda"`
	RSquared  float64       `json:"r_squared"`
	OOSMAPE   *float64      `json:"oos_mape,omitempty"`
	Fallback  string        `json:"fallback_reason,omitempty"`
}

// NewForecastGeneratedEvent summarizes a forecast run.
func NewForecastGeneratedEvent(runID string, generatedAt time.Time, m *forecast.Model, cacheHit bool, preds []forecast.Prediction) ForecastGeneratedEvent {
	ev := ForecastGeneratedEvent{
		RunID:       runID,
		GeneratedAt: generatedAt,
		ModelTier:   m.Tier,
		Lambda:      m.Lambda,
		CacheHit:    cacheHit,
		Days:        make([]ForecastDay, len(preds)),
	}
	for i, p := range preds {
		ev.Days[i] = ForecastDay{
			Date:             p.Date.Format("2006-01-02"),
			PredictedRevenue: p.PredictedRevenue,
			IntervalLow:      p.IntervalLow,
			IntervalHigh:     p.IntervalHigh,
			Category:         p.Category,
			IsClosedDay:      p.IsClosedDay,
		}
		ev.TotalWeek += p.PredictedRevenue
	}
	return ev
}

// NewModelRetrainedEvent summarizes a freshly trained model.
func NewModelRetrainedEvent(runID string, m *forecast.Model) ModelRetrainedEvent {
	ev := ModelRetrainedEvent{
		RunID:     runID,
		TrainedAt: m.TrainedAt,
		Tier:      m.Tier,
		N:         m.N,
		P:         m.P,
		Lambda:    m.Lambda,
		RSquared:  m.InSample.RSquared,
		Fallback:  m.FallbackReason,
	}
	if m.OOS != nil {
		mape := m.OOS.MAPE
		ev.OOSMAPE = &mape
	}
	return ev
}

// DecodeModelRetrained parses a SubjectModelRetrained payload.
func DecodeModelRetrained(data []byte) (ModelRetrainedEvent, error) {
	var ev ModelRetrainedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode %s event: %w", SubjectModelRetrained, err)
	}
	if ev.RunID == "" {
		return ev, fmt.Errorf("%s event without run_id", SubjectModelRetrained)
	}
	return ev, nil
}

// EventPublisher encodes events as JSON onto their subjects.
type EventPublisher struct {
	pub Publisher
}

// NewEventPublisher wraps a Publisher.
func NewEventPublisher(pub Publisher) *EventPublisher {
	if pub == nil {
		pub = nopQueue{}
	}
	return &EventPublisher{pub: pub}
}

// ForecastGenerated publishes on SubjectForecastGenerated.
func (p *EventPublisher) ForecastGenerated(ctx context.Context, ev ForecastGeneratedEvent) error {
	return p.publish(ctx, SubjectForecastGenerated, ev)
}

// ModelRetrained publishes on SubjectModelRetrained.
func (p *EventPublisher) ModelRetrained(ctx context.Context, ev ModelRetrainedEvent) error {
	return p.publish(ctx, SubjectModelRetrained, ev)
}

// Close closes the underlying publisher.
func (p *EventPublisher) Close() error {
	return p.pub.Close()
}

func (p *EventPublisher) publish(ctx context.Context, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", subject, err)
	}
	return p.pub.Publish(ctx, subject, data)
}
