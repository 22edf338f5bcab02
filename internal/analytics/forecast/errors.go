package forecast

import (
	"errors"
	"fmt"
)

// TrainingErrorKind enumerates the ways a fit can fail.
type TrainingErrorKind int

const (
	KindSingularMatrix TrainingErrorKind = iota + 1
	KindInsufficientDegreesOfFreedom
	KindInsufficientSamples
)

func (k TrainingErrorKind) String() string {
	switch k {
	case KindSingularMatrix:
		return "singular_matrix"
	case KindInsufficientDegreesOfFreedom:
		return "insufficient_degrees_of_freedom"
	case KindInsufficientSamples:
		return "insufficient_samples"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *TrainingError.
var (
	ErrSingularMatrix               = &TrainingError{Kind: KindSingularMatrix}
	ErrInsufficientDegreesOfFreedom = &TrainingError{Kind: KindInsufficientDegreesOfFreedom}
	ErrInsufficientSamples          = &TrainingError{Kind: KindInsufficientSamples}
)

// TrainingError is returned by the solver and the trainer.
// Have and Need carry the sample (or pivot) counts that caused the failure.
type TrainingError struct {
	Kind TrainingErrorKind
	Have int
	Need int
}

func (e *TrainingError) Error() string {
	switch e.Kind {
	case KindSingularMatrix:
		return fmt.Sprintf("singular matrix: pivot %d below tolerance", e.Have)
	case KindInsufficientDegreesOfFreedom:
		return fmt.Sprintf("insufficient degrees of freedom: n=%d, need more than p=%d", e.Have, e.Need)
	case KindInsufficientSamples:
		return fmt.Sprintf("insufficient samples: have %d, need at least %d", e.Have, e.Need)
	default:
		return "training failed"
	}
}

// Is matches any TrainingError of the same kind.
func (e *TrainingError) Is(target error) bool {
	var t *TrainingError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Shortfall is the number of additional samples needed.
func (e *TrainingError) Shortfall() int {
	if e.Need > e.Have {
		return e.Need - e.Have
	}
	return 0
}
