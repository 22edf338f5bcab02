package forecast

import (
	"errors"
	"math"
)

// ErrNoValidFolds is returned when every fold of every candidate failed.
var ErrNoValidFolds = errors.New("lambda selection: no valid cross-validation folds")

// LambdaScore is the cross-validated error of one candidate.
type LambdaScore struct {
	Lambda     float64 `json:"lambda"`
	MAE        float64 `json:"mae"`
	ValidFolds int     `json:"valid_folds"`
}

// LambdaSelection is the outcome of the grid search.
type LambdaSelection struct {
	Lambda float64       `json:"lambda"`
	CVMAE  float64       `json:"cv_mae"`
	Scores []LambdaScore `json:"scores"`
}

// LambdaSelector grid-searches ridge penalties with contiguous k-fold CV.
type LambdaSelector struct {
	Candidates []float64
	Folds      int
}

// NewLambdaSelector creates a selector, defaulting to 5 folds.
func NewLambdaSelector(candidates []float64, folds int) *LambdaSelector {
	if folds < 2 {
		folds = 5
	}
	return &LambdaSelector{Candidates: candidates, Folds: folds}
}

// Select returns the candidate with the lowest mean held-out MAE. Ties keep
// the earliest candidate. Folds whose fit fails are skipped.
func (s *LambdaSelector) Select(x [][]float64, y []float64) (*LambdaSelection, error) {
	folds := contiguousFolds(len(x), s.Folds)

	selection := &LambdaSelection{CVMAE: math.Inf(1)}
	for _, lambda := range s.Candidates {
		score := LambdaScore{Lambda: lambda, MAE: math.NaN()}
		sum := 0.0
		for _, f := range folds {
			mae, ok := foldMAE(x, y, f, lambda)
			if !ok {
				continue
			}
			sum += mae
			score.ValidFolds++
		}
		if score.ValidFolds > 0 {
			score.MAE = sum / float64(score.ValidFolds)
			if score.MAE < selection.CVMAE {
				selection.CVMAE = score.MAE
				selection.Lambda = lambda
			}
		}
		selection.Scores = append(selection.Scores, score)
	}

	if math.IsInf(selection.CVMAE, 1) {
		return selection, ErrNoValidFolds
	}
	return selection, nil
}

type fold struct {
	start, end int // held-out rows [start, end)
}

// contiguousFolds splits n rows into k ordered blocks; the last absorbs the remainder.
func contiguousFolds(n, k int) []fold {
	if k > n {
		k = n
	}
	if k < 2 {
		return nil
	}
	size := n / k
	folds := make([]fold, k)
	for i := 0; i < k; i++ {
		folds[i] = fold{start: i * size, end: (i + 1) * size}
	}
	folds[k-1].end = n
	return folds
}

func foldMAE(x [][]float64, y []float64, f fold, lambda float64) (float64, bool) {
	trainX := make([][]float64, 0, len(x)-(f.end-f.start))
	trainY := make([]float64, 0, cap(trainX))
	for i := range x {
		if i >= f.start && i < f.end {
			continue
		}
		trainX = append(trainX, x[i])
		trainY = append(trainY, y[i])
	}

	fit, err := SolveRidge(trainX, trainY, lambda)
	if err != nil {
		return 0, false
	}

	actual := y[f.start:f.end]
	predicted := make([]float64, len(actual))
	for i := range actual {
		predicted[i] = predictRow(fit.Beta, x[f.start+i])
	}
	mae := CalculateMAE(actual, predicted)
	return mae, !math.IsNaN(mae)
}
