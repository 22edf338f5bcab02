package forecast

// Tier is a model complexity level chosen from the available sample count.
type Tier string

const (
	TierFull     Tier = "full"
	TierReduced  Tier = "reduced"
	TierMinimal  Tier = "minimal"
	TierFallback Tier = "fallback"
)

// Feature names. The per-tier tables below fix the positional layout of the
// feature vector and therefore of the coefficient vector.
const (
	FeatureIntercept     = "intercept"
	FeatureLag1          = "lag_1"
	FeatureLag7          = "lag_7"
	FeatureMA7           = "ma_7"
	FeatureVolatility14  = "volatility_14"
	FeatureDowSin        = "dow_sin"
	FeatureDowCos        = "dow_cos"
	FeatureIsWeekend     = "is_weekend"
	FeatureDryingPain    = "drying_pain"
	FeatureIsRainy       = "is_rainy"
	FeatureIsHeavyRain   = "is_heavy_rain"
	FeatureIsHoliday     = "is_holiday"
	FeatureIsHolidayEve  = "is_holiday_eve"
	FeatureWeekendDrying = "weekend_x_drying"
	FeatureWeekendRain   = "weekend_x_rain"
	FeatureHolidayDrying = "holiday_x_drying"
)

var (
	fullFeatureNames = []string{
		FeatureIntercept, FeatureLag1, FeatureLag7, FeatureMA7, FeatureVolatility14,
		FeatureDowSin, FeatureDowCos, FeatureIsWeekend, FeatureDryingPain,
		FeatureIsRainy, FeatureIsHeavyRain, FeatureIsHoliday, FeatureIsHolidayEve,
		FeatureWeekendDrying, FeatureWeekendRain, FeatureHolidayDrying,
	}
	reducedFeatureNames = []string{
		FeatureIntercept, FeatureLag1, FeatureLag7, FeatureIsWeekend,
		FeatureDryingPain, FeatureIsRainy, FeatureIsHoliday, FeatureWeekendDrying,
	}
	minimalFeatureNames  = []string{FeatureIntercept, FeatureLag1, FeatureLag7}
	fallbackFeatureNames = []string{FeatureIntercept}
)

// impactFeatures are the weather, holiday and interaction terms whose
// contribution is reported as the weather impact of a prediction.
var impactFeatures = map[string]bool{
	FeatureDryingPain:    true,
	FeatureIsRainy:       true,
	FeatureIsHeavyRain:   true,
	FeatureIsHoliday:     true,
	FeatureIsHolidayEve:  true,
	FeatureWeekendDrying: true,
	FeatureWeekendRain:   true,
	FeatureHolidayDrying: true,
}

// weatherFeatures are the columns derived from the weather row.
var weatherFeatures = map[string]bool{
	FeatureDryingPain:    true,
	FeatureIsRainy:       true,
	FeatureIsHeavyRain:   true,
	FeatureWeekendDrying: true,
	FeatureWeekendRain:   true,
	FeatureHolidayDrying: true,
}

// FeatureNames returns the ordered feature names for the tier.
// The returned slice must not be modified.
func (t Tier) FeatureNames() []string {
	switch t {
	case TierFull:
		return fullFeatureNames
	case TierReduced:
		return reducedFeatureNames
	case TierMinimal:
		return minimalFeatureNames
	default:
		return fallbackFeatureNames
	}
}

// Width is the feature vector length, intercept included.
func (t Tier) Width() int {
	return len(t.FeatureNames())
}

// Lookback is the number of leading days consumed by lag and window features.
func (t Tier) Lookback() int {
	if t == TierFull {
		return 14
	}
	return 7
}

// Lower returns the next simpler tier.
func (t Tier) Lower() Tier {
	switch t {
	case TierFull:
		return TierReduced
	case TierReduced:
		return TierMinimal
	default:
		return TierFallback
	}
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFull, TierReduced, TierMinimal, TierFallback:
		return true
	}
	return false
}

// ImpactIndices returns the positions of the weather and holiday terms.
func (t Tier) ImpactIndices() []int {
	return indicesOf(t.FeatureNames(), impactFeatures)
}

// WeatherIndices returns the positions of the weather-derived terms.
func (t Tier) WeatherIndices() []int {
	return indicesOf(t.FeatureNames(), weatherFeatures)
}

// IndexOf returns the position of a named feature, -1 when absent.
func (t Tier) IndexOf(name string) int {
	for i, n := range t.FeatureNames() {
		if n == name {
			return i
		}
	}
	return -1
}

func indicesOf(names []string, set map[string]bool) []int {
	var idx []int
	for i, n := range names {
		if set[n] {
			idx = append(idx, i)
		}
	}
	return idx
}

// TierThresholds are the minimum usable sample counts per tier.
type TierThresholds struct {
	Full    int `mapstructure:"full" json:"full"`
	Reduced int `mapstructure:"reduced" json:"reduced"`
	Minimal int `mapstructure:"minimal" json:"minimal"`
}

// DefaultTierThresholds returns the standard 60/30/14 thresholds.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Full: 60, Reduced: 30, Minimal: 14}
}

// Select maps a usable sample count to a tier.
func (th TierThresholds) Select(samples int) Tier {
	switch {
	case samples >= th.Full:
		return TierFull
	case samples >= th.Reduced:
		return TierReduced
	case samples >= th.Minimal:
		return TierMinimal
	default:
		return TierFallback
	}
}

// Minimum returns the threshold that admits the tier.
func (th TierThresholds) Minimum(t Tier) int {
	switch t {
	case TierFull:
		return th.Full
	case TierReduced:
		return th.Reduced
	case TierMinimal:
		return th.Minimal
	default:
		return 0
	}
}
