package forecast

// DryingWeights weight the components of the drying-pain index.
type DryingWeights struct {
	Humidity   float64 `mapstructure:"humidity" json:"humidity"`
	Precip     float64 `mapstructure:"precip" json:"precip"`
	SunDeficit float64 `mapstructure:"sun_deficit" json:"sun_deficit"`
}

// WalkForwardConfig bounds the expanding-window backtest.
type WalkForwardConfig struct {
	Warmup    int `mapstructure:"warmup"`     // Rows before the first validation step
	Step      int `mapstructure:"step"`       // Rows between validation steps
	MinPoints int `mapstructure:"min_points"` // Points required to report metrics
}

// IntervalConfig calibrates prediction intervals.
//
// Method "auto" uses the statistical interval whenever the model carries the
// residual variance and the Gram inverse, "empirical" always uses the
// percentage margin.
type IntervalConfig struct {
	Method       string           `mapstructure:"method"`
	Confidence   float64          `mapstructure:"confidence"`
	EmpiricalPct map[Tier]float64 `mapstructure:"empirical_pct"`
	MinMargin    float64          `mapstructure:"min_margin"`
	MaxMargin    float64          `mapstructure:"max_margin"`
}

// Interval methods.
const (
	IntervalAuto      = "auto"
	IntervalEmpirical = "empirical"
)

// EngineConfig is the immutable configuration of the training and
// prediction pipeline.
type EngineConfig struct {
	Tiers          TierThresholds    `mapstructure:"tiers"`
	MinimumSamples int               `mapstructure:"minimum_samples"` // Absolute floor for forecasting at all
	Drying         DryingWeights     `mapstructure:"drying"`
	Lambdas        []float64         `mapstructure:"lambdas"`
	DefaultLambda  float64           `mapstructure:"default_lambda"` // Used when no CV fold succeeds
	CVFolds        int               `mapstructure:"cv_folds"`
	MinRowsForCV   int               `mapstructure:"min_rows_for_cv"`
	WalkForward    WalkForwardConfig `mapstructure:"walk_forward"`
	Interval       IntervalConfig    `mapstructure:"interval"`
	Horizon        int               `mapstructure:"horizon"`
}

// DefaultEngineConfig returns the production calibration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Tiers:          DefaultTierThresholds(),
		MinimumSamples: 14,
		Drying: DryingWeights{
			Humidity:   0.02,
			Precip:     0.3,
			SunDeficit: 0.5,
		},
		Lambdas:       []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
		DefaultLambda: 1.0,
		CVFolds:       5,
		MinRowsForCV:  10,
		WalkForward: WalkForwardConfig{
			Warmup:    30,
			Step:      3,
			MinPoints: 10,
		},
		Interval: IntervalConfig{
			Method:     IntervalAuto,
			Confidence: 0.95,
			EmpiricalPct: map[Tier]float64{
				TierFull:     0.50,
				TierReduced:  0.55,
				TierMinimal:  0.65,
				TierFallback: 0.75,
			},
			MinMargin: 80,
			MaxMargin: 350,
		},
		Horizon: 7,
	}
}
