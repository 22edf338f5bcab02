package forecast

import (
	"errors"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
)

// Trainer runs the training data flow: features, tier, winsorization,
// standardization, lambda search, ridge fit and walk-forward validation.
type Trainer struct {
	cfg       EngineConfig
	engineer  *FeatureEngineer
	selector  *LambdaSelector
	validator *WalkForwardValidator
}

// NewTrainer creates a Trainer for the configuration and calendar.
func NewTrainer(cfg EngineConfig, calendar Calendar) *Trainer {
	return &Trainer{
		cfg:       cfg,
		engineer:  NewFeatureEngineer(cfg.Drying, calendar),
		selector:  NewLambdaSelector(cfg.Lambdas, cfg.CVFolds),
		validator: NewWalkForwardValidator(cfg.WalkForward),
	}
}

// Engineer exposes the feature engineer shared with the predictor.
func (t *Trainer) Engineer() *FeatureEngineer {
	return t.engineer
}

// Train builds a fresh Model from the full history. It fails with
// ErrInsufficientSamples below the absolute floor; numerical failures of the
// production fit degrade to the mean-only fallback model instead of failing.
func (t *Trainer) Train(revenue analytics.RevenueSeries, weather analytics.WeatherSeries, now time.Time) (*Model, error) {
	minimal, _ := t.engineer.Build(revenue, weather, TierMinimal)
	if len(minimal) < t.cfg.MinimumSamples {
		return nil, &TrainingError{Kind: KindInsufficientSamples, Have: len(minimal), Need: t.cfg.MinimumSamples}
	}

	tier := t.cfg.Tiers.Select(len(minimal))
	rows, quality := t.engineer.Build(revenue, weather, tier)
	for tier != TierMinimal && tier != TierFallback && len(rows) < t.cfg.Tiers.Minimum(tier) {
		tier = tier.Lower()
		rows, quality = t.engineer.Build(revenue, weather, tier)
	}

	x, targets := designMatrix(rows)
	y, clamped := Winsorize(targets)

	scaler := FitScaler(x)
	xs := scaler.Transform(x)

	base := &Model{
		RegressionType: RegressionType,
		MeanRevenue:    analytics.Mean(targets),
		Winsorized:     len(clamped),
		DataQuality:    quality,
		TrainedAt:      now,
	}

	if len(rows) < t.cfg.MinRowsForCV {
		return t.fallback(base, y, "too few rows for lambda selection")
	}

	lambda := t.cfg.DefaultLambda
	selection, err := t.selector.Select(xs, y)
	if err == nil {
		lambda = selection.Lambda
		base.CVMAE = selection.CVMAE
	}

	fit, err := SolveRidge(xs, y, lambda)
	if err != nil {
		if errors.Is(err, ErrSingularMatrix) || errors.Is(err, ErrInsufficientDegreesOfFreedom) {
			return t.fallback(base, y, err.Error())
		}
		return nil, err
	}

	model := base
	model.Tier = tier
	model.Scaler = scaler
	applyFit(model, fit)
	if oos, ok := t.validator.Validate(xs, y, lambda); ok {
		model.OOS = oos
	}
	return model, nil
}

// fallback fits the intercept-only mean model on the winsorized targets.
func (t *Trainer) fallback(base *Model, y []float64, reason string) (*Model, error) {
	x := make([][]float64, len(y))
	for i := range x {
		x[i] = FallbackFeatures{}.Vector()
	}

	fit, err := SolveRidge(x, y, 0)
	if err != nil {
		return nil, err
	}

	model := base
	model.Tier = TierFallback
	model.Scaler = FitScaler(x)
	model.FallbackReason = reason
	model.CVMAE = 0
	applyFit(model, fit)
	if oos, ok := t.validator.Validate(x, y, 0); ok {
		model.OOS = oos
	}
	return model, nil
}

func applyFit(m *Model, fit *RidgeFit) {
	m.Beta = fit.Beta
	m.Lambda = fit.Lambda
	m.N = fit.N
	m.P = fit.P
	m.MSE = fit.MSE
	m.GramInverse = fit.GramInverse
	m.InSample = FitMetrics{MAE: fit.MAE, RMSE: fit.RMSE, RSquared: fit.RSquared}
}
