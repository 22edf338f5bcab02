// Package forecast implements the tiered ridge-regression revenue forecaster:
// feature engineering, standardization, cross-validated lambda selection,
// walk-forward validation and a recursive seven-day predictor.
package forecast

import (
	"math"
	"time"
)

// RegressionType identifies the algorithm generation that produced a Model.
// Cached snapshots carrying a different value are treated as stale.
const RegressionType = "ridge_tiered_v2"

// Calendar answers the calendar questions the features and the predictor need.
type Calendar interface {
	// Holiday reports whether date is a holiday and its name.
	Holiday(date time.Time) (string, bool)
	// HolidayEve reports whether the day after date is a holiday and that holiday's name.
	HolidayEve(date time.Time) (string, bool)
	// ClosedDay reports whether the business does not open on date.
	ClosedDay(date time.Time) (string, bool)
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// zScore returns the two-sided normal quantile for a confidence level.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	case confidence >= 0.80:
		return 1.282
	default:
		return 1.96
	}
}
