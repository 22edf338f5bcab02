package anomaly

import (
	"sort"
)

// DefaultIQRMultiplier is Tukey's fence multiplier.
const DefaultIQRMultiplier = 1.5

// IQRDetector detects outliers using the Interquartile Range (IQR) method.
// Outliers are values outside [Q1 - k*IQR, Q3 + k*IQR].
type IQRDetector struct {
	Multiplier float64
}

// NewIQRDetector creates a detector with the standard 1.5 multiplier.
func NewIQRDetector() *IQRDetector {
	return &IQRDetector{Multiplier: DefaultIQRMultiplier}
}

// Fences returns the inclusive range of non-outlying values.
func (d *IQRDetector) Fences(values []float64) Range {
	q1, q3, iqr := CalculateIQR(values)
	k := d.multiplier()
	return Range{Min: q1 - k*iqr, Max: q3 + k*iqr}
}

// Detect finds the values outside the IQR fences.
func (d *IQRDetector) Detect(values []float64) []Result {
	if len(values) < 4 {
		return nil
	}

	_, _, iqrValue := CalculateIQR(values)
	expected := d.Fences(values)

	var results []Result
	for i, v := range values {
		if expected.Contains(v) {
			continue
		}

		var score float64
		anomalyType := AnomalyTypeSpike
		if v < expected.Min {
			anomalyType = AnomalyTypeDrop
			score = expected.Min - v
		} else {
			score = v - expected.Max
		}
		if iqrValue > 0 {
			score /= iqrValue
		} else {
			score = 1.0
		}

		results = append(results, Result{
			Index:    i,
			Score:    score,
			Type:     anomalyType,
			Expected: expected,
		})
	}

	return results
}

func (d *IQRDetector) multiplier() float64 {
	if d.Multiplier <= 0 {
		return DefaultIQRMultiplier
	}
	return d.Multiplier
}

// percentile calculates the p-th percentile of sorted data
// p should be between 0 and 100
func percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100) * float64(len(sortedData)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// CalculateIQR returns Q1, Q3, and IQR for a slice of values
func CalculateIQR(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	q1 = percentile(sortedValues, 25)
	q3 = percentile(sortedValues, 75)
	iqr = q3 - q1

	return q1, q3, iqr
}
