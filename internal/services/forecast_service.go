package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/forecast"
	"github.com/lavapop/cashcast/internal/config"
	"github.com/lavapop/cashcast/internal/logging"
	"github.com/lavapop/cashcast/internal/metrics"
	"github.com/lavapop/cashcast/internal/modelcache"
	"github.com/lavapop/cashcast/internal/queue"
	"github.com/lavapop/cashcast/internal/store"
)

const (
	// accuracyWindow is how far back model_info.accuracy looks.
	accuracyWindow = 30
	// syncTimeout bounds the cache reload after a retrain event.
	syncTimeout = 5 * time.Second
)

// Dependencies are the collaborators of the ForecastService. Tracker, Events
// and Metrics are optional.
type Dependencies struct {
	Revenue  store.RevenueReader
	Weather  store.WeatherReader
	Tracker  store.PredictionTracker
	Models   *modelcache.Repository
	Calendar forecast.Calendar
	Events   *queue.EventPublisher
	Metrics  *metrics.Metrics
}

// ForecastService handles forecasting business logic
type ForecastService struct {
	logger    *logging.Logger
	cfg       config.ForecastConfig
	deps      Dependencies
	trainer   *forecast.Trainer
	predictor *forecast.Predictor
	loc       *time.Location
	now       func() time.Time

	// lastRun is the run ID of the latest model this instance published.
	lastRun atomic.Value
}

// NewForecastService creates a new ForecastService
func NewForecastService(logger *logging.Logger, cfg config.ForecastConfig, deps Dependencies) *ForecastService {
	if deps.Events == nil {
		deps.Events = queue.NewEventPublisher(nil)
	}
	trainer := forecast.NewTrainer(cfg.EngineConfig, deps.Calendar)
	return &ForecastService{
		logger:    logger,
		cfg:       cfg,
		deps:      deps,
		trainer:   trainer,
		predictor: forecast.NewPredictor(trainer.Engineer(), deps.Calendar, cfg.Interval),
		loc:       cfg.Location(),
		now:       time.Now,
	}
}

// ModelInfo describes the model behind a forecast.
type ModelInfo struct {
	Tier                forecast.Tier        `json:"tier"`
	Algorithm           string               `json:"algorithm"`
	N                   int                  `json:"n"`
	P                   int                  `json:"p"`
	Lambda              float64              `json:"lambda"`
	RSquared            float64              `json:"r_squared"`
	RMSE                float64              `json:"rmse"`
	MAE                 float64              `json:"mae"`
	MSE                 float64              `json:"mse"`
	CVMAE               float64              `json:"cv_mae,omitempty"`
	OOS                 *forecast.OOSMetrics `json:"oos,omitempty"`
	MeanRevenue         float64              `json:"mean_revenue"`
	Winsorized          int                  `json:"winsorized"`
	FallbackReason      string               `json:"fallback_reason,omitempty"`
	StatisticalInterval bool                 `json:"statistical_interval"`
	Coefficients        map[string]float64   `json:"coefficients"`
	TrainedAt           time.Time            `json:"trained_at"`
	AgeHours            float64              `json:"age_hours"`
	CacheHit            bool                 `json:"cache_hit"`
	Accuracy            *store.Accuracy      `json:"accuracy,omitempty"`
}

// ForecastResponse is the result of GenerateForecast.
type ForecastResponse struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	StartDate   string                `json:"start_date"`
	Predictions []forecast.Prediction `json:"predictions"`
	TotalWeek   float64               `json:"total_predicted_revenue"`
	ModelInfo   ModelInfo             `json:"model_info"`
	DataQuality forecast.DataQuality  `json:"data_quality"`
}

// inputs is one read of the upstream series.
type inputs struct {
	now     time.Time
	today   time.Time
	revenue analytics.RevenueSeries
	weather analytics.WeatherSeries
}

// GenerateForecast forecasts the configured horizon starting tomorrow in the
// business timezone. A fresh cached model is reused; otherwise a new one is
// trained and written through.
func (s *ForecastService) GenerateForecast(ctx context.Context) (*ForecastResponse, error) {
	started := time.Now()
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	log := s.logger.WithContext(ctx)

	in, err := s.fetch(ctx)
	if err != nil {
		s.count("upstream_error")
		return nil, err
	}

	model, cacheHit := s.loadModel(ctx, in.now)
	if model == nil {
		model, err = s.train(ctx, in)
		if err != nil {
			var se *ServiceError
			if errors.As(err, &se) && se.Code == CodeInsufficientData {
				s.count("insufficient_data")
			} else {
				s.count("error")
			}
			return nil, err
		}
	}

	start := in.today.AddDate(0, 0, 1)
	preds := s.predict(model, in)

	resp := &ForecastResponse{
		RunID:       runID,
		GeneratedAt: in.now,
		StartDate:   analytics.DateKey(start),
		Predictions: preds,
		ModelInfo:   s.modelInfo(model, in.now, cacheHit),
		DataQuality: model.DataQuality,
	}
	for _, p := range preds {
		resp.TotalWeek += p.PredictedRevenue
	}

	s.track(ctx, preds, model, in.now)
	resp.ModelInfo.Accuracy = s.accuracy(ctx, in.today)

	if err := s.deps.Events.ForecastGenerated(ctx, queue.NewForecastGeneratedEvent(runID, in.now, model, cacheHit, preds)); err != nil {
		log.Warn("Failed to publish forecast event", "error", err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.PublishErrors.Inc()
		}
	}

	if m := s.deps.Metrics; m != nil {
		m.ForecastsTotal.WithLabelValues("ok").Inc()
		m.ForecastDuration.Observe(time.Since(started).Seconds())
		m.ObserveModel(model, in.now)
		m.NextWeekRevenue.Set(resp.TotalWeek)
	}

	log.Info("Forecast completed",
		"tier", model.Tier,
		"cache_hit", cacheHit,
		"start", resp.StartDate,
		"days", len(preds),
		"total", resp.TotalWeek,
		"duration", time.Since(started),
	)
	return resp, nil
}

// Retrain trains a new model from the current data regardless of the cache.
func (s *ForecastService) Retrain(ctx context.Context) (*ModelInfo, error) {
	ctx = logging.WithRunID(ctx, uuid.New().String())

	in, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	model, err := s.train(ctx, in)
	if err != nil {
		return nil, err
	}

	info := s.modelInfo(model, in.now, false)
	return &info, nil
}

// CurrentModel describes the stored model when it is fresh.
func (s *ForecastService) CurrentModel(ctx context.Context) (*ModelInfo, error) {
	now := s.now()
	model, err := s.deps.Models.LoadFresh(ctx, now)
	if err != nil {
		if errors.Is(err, modelcache.ErrCacheMiss) {
			return nil, NewServiceErrorWithDetails(CodeModelNotFound, "No fresh model is stored",
				map[string]interface{}{"reason": err.Error()}).withCause(err)
		}
		return nil, upstreamError("model_cache", err)
	}

	info := s.modelInfo(model, now, true)
	info.Accuracy = s.accuracy(ctx, analytics.Day(now.In(s.loc)))
	return &info, nil
}

// WatchRetrains subscribes to model retrain events so that models trained by
// other instances sharing the cache refresh this instance's model gauges.
// Events this instance published are skipped. Callers unsubscribe from
// queue.SubjectModelRetrained on shutdown.
func (s *ForecastService) WatchRetrains(sub queue.Subscriber) error {
	return sub.Subscribe(queue.SubjectModelRetrained, s.onModelRetrained)
}

func (s *ForecastService) onModelRetrained(data []byte) error {
	ev, err := queue.DecodeModelRetrained(data)
	if err != nil {
		s.sync("error")
		s.logger.Warn("Dropping malformed retrain event", "error", err)
		return err
	}
	if own, _ := s.lastRun.Load().(string); own == ev.RunID {
		s.sync("own")
		return nil
	}

	ctx, cancel := context.WithTimeout(logging.WithRunID(context.Background(), ev.RunID), syncTimeout)
	defer cancel()
	log := s.logger.WithContext(ctx)

	now := s.now()
	model, err := s.deps.Models.LoadFresh(ctx, now)
	if err != nil {
		s.sync("error")
		log.Warn("Failed to reload retrained model", "tier", ev.Tier, "error", err)
		return err
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveModel(model, now)
	}
	s.sync("reloaded")
	log.Info("Model retrained by another instance",
		"tier", model.Tier,
		"n", model.N,
		"lambda", model.Lambda,
		"trained_at", model.TrainedAt,
	)
	return nil
}

func (s *ForecastService) fetch(ctx context.Context) (*inputs, error) {
	now := s.now().In(s.loc)
	today := analytics.Day(now)
	from := today.AddDate(0, 0, -s.cfg.HistoryDays)

	// Today's revenue is partial until close.
	through := today
	if !s.cfg.IncludeToday {
		through = today.AddDate(0, 0, -1)
	}

	revenue, err := s.deps.Revenue.DailyRevenue(ctx, from, through)
	if err != nil {
		s.logger.WithContext(ctx).Error("Revenue fetch failed", "error", err)
		return nil, upstreamError("revenue", err)
	}

	weather, err := s.deps.Weather.DailyWeather(ctx, from, today.AddDate(0, 0, s.cfg.Horizon))
	if err != nil {
		s.logger.WithContext(ctx).Error("Weather fetch failed", "error", err)
		return nil, upstreamError("weather", err)
	}

	return &inputs{now: now, today: today, revenue: revenue.Sorted(), weather: weather}, nil
}

// predict forecasts the horizon starting tomorrow. When today's revenue is
// not read, today is predicted first so that tomorrow's lags see it, and
// that step is dropped.
func (s *ForecastService) predict(model *forecast.Model, in *inputs) []forecast.Prediction {
	if s.cfg.IncludeToday {
		return s.predictor.Forecast(model, in.revenue, in.weather, in.today.AddDate(0, 0, 1), s.cfg.Horizon)
	}
	return s.predictor.Forecast(model, in.revenue, in.weather, in.today, s.cfg.Horizon+1)[1:]
}

// loadModel returns the cached model, or nil when it must be retrained.
// Backend failures are treated as a miss.
func (s *ForecastService) loadModel(ctx context.Context, now time.Time) (*forecast.Model, bool) {
	model, err := s.deps.Models.LoadFresh(ctx, now)
	switch {
	case err == nil:
		s.lookup("hit")
		return model, true
	case errors.Is(err, modelcache.ErrCacheMiss):
		s.lookup("miss")
		s.logger.WithContext(ctx).Debug("Model cache miss", "reason", err)
	default:
		s.lookup("error")
		s.logger.WithContext(ctx).Warn("Model cache unavailable, retraining", "error", err)
	}
	return nil, false
}

func (s *ForecastService) train(ctx context.Context, in *inputs) (*forecast.Model, error) {
	log := s.logger.WithContext(ctx)
	started := time.Now()

	model, err := s.trainer.Train(in.revenue, in.weather, in.now)
	if err != nil {
		log.Warn("Training failed", "error", err, "revenue_days", len(in.revenue))
		return nil, trainingError(err)
	}
	took := time.Since(started)

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveTraining(model, took)
	}
	log.Info("Model trained",
		"tier", model.Tier,
		"n", model.N,
		"p", model.P,
		"lambda", model.Lambda,
		"r_squared", model.InSample.RSquared,
		"fallback", model.FallbackReason,
		"duration", took,
	)

	if err := s.deps.Models.Save(ctx, model); err != nil {
		log.Warn("Failed to store model snapshot", "error", err)
	}
	runID := logging.RunID(ctx)
	s.lastRun.Store(runID)
	if err := s.deps.Events.ModelRetrained(ctx, queue.NewModelRetrainedEvent(runID, model)); err != nil {
		log.Warn("Failed to publish retrain event", "error", err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.PublishErrors.Inc()
		}
	}
	return model, nil
}

func (s *ForecastService) track(ctx context.Context, preds []forecast.Prediction, model *forecast.Model, now time.Time) {
	if s.deps.Tracker == nil {
		return
	}
	for _, p := range preds {
		if err := s.deps.Tracker.UpsertPrediction(ctx, store.NewPredictionRecord(p, model, now)); err != nil {
			s.logger.WithContext(ctx).Warn("Failed to track prediction", "date", analytics.DateKey(p.Date), "error", err)
			if s.deps.Metrics != nil {
				s.deps.Metrics.TrackerErrors.Inc()
			}
		}
	}
}

// accuracy scores tracked predictions of the last accuracyWindow days.
func (s *ForecastService) accuracy(ctx context.Context, today time.Time) *store.Accuracy {
	if s.deps.Tracker == nil {
		return nil
	}
	acc, err := s.deps.Tracker.Accuracy(ctx, today.AddDate(0, 0, -accuracyWindow), today)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Failed to compute accuracy", "error", err)
		return nil
	}
	if acc.Days == 0 {
		return nil
	}
	return acc
}

func (s *ForecastService) modelInfo(m *forecast.Model, now time.Time, cacheHit bool) ModelInfo {
	return ModelInfo{
		Tier:                m.Tier,
		Algorithm:           m.RegressionType,
		N:                   m.N,
		P:                   m.P,
		Lambda:              m.Lambda,
		RSquared:            m.InSample.RSquared,
		RMSE:                m.InSample.RMSE,
		MAE:                 m.InSample.MAE,
		MSE:                 m.MSE,
		CVMAE:               m.CVMAE,
		OOS:                 m.OOS,
		MeanRevenue:         m.MeanRevenue,
		Winsorized:          m.Winsorized,
		FallbackReason:      m.FallbackReason,
		StatisticalInterval: m.HasStatisticalInterval() && s.cfg.Interval.Method != forecast.IntervalEmpirical,
		Coefficients:        m.Coefficients(),
		TrainedAt:           m.TrainedAt,
		AgeHours:            m.Age(now).Hours(),
		CacheHit:            cacheHit,
	}
}

func (s *ForecastService) count(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ForecastsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ForecastService) sync(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ModelSyncs.WithLabelValues(result).Inc()
	}
}

func (s *ForecastService) lookup(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
