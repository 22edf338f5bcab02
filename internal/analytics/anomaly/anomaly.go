// Package anomaly flags statistical outliers in realized revenue.
package anomaly

// AnomalyType represents the type of anomaly detected
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // Above the upper fence
	AnomalyTypeDrop  AnomalyType = "drop"  // Below the lower fence
)

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the closed range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp moves v into the closed range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Result contains detection result for a single value
type Result struct {
	Index    int         // Index in original data
	Score    float64     // Distance outside the fence in IQR units
	Type     AnomalyType // Type of anomaly
	Expected Range       // Fences used for the decision
}
