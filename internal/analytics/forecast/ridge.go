package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// pivotTolerance is the smallest absolute pivot accepted during inversion.
const pivotTolerance = 1e-10

// RidgeFit is the result of one closed-form ridge solve.
type RidgeFit struct {
	Beta        []float64
	GramInverse [][]float64 // (XᵗX + λI)⁻¹ with the intercept unpenalized
	Lambda      float64
	MAE         float64
	RMSE        float64
	RSquared    float64
	MSE         float64 // RSS/(n-p)
	N           int
	P           int
}

// SolveRidge fits y ≈ Xβ minimizing ||y-Xβ||² + λ||β₁..ₚ||² by the normal
// equations. Column 0 of x is the intercept and is never penalized.
func SolveRidge(x [][]float64, y []float64, lambda float64) (*RidgeFit, error) {
	n := len(x)
	if n == 0 || len(y) != n {
		return nil, &TrainingError{Kind: KindInsufficientDegreesOfFreedom, Have: n, Need: 0}
	}
	p := len(x[0])
	if n <= p {
		return nil, &TrainingError{Kind: KindInsufficientDegreesOfFreedom, Have: n, Need: p}
	}
	if lambda < 0 {
		lambda = 0
	}

	xm := mat.NewDense(n, p, flatten(x, p))
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var gram mat.Dense
	gram.Mul(xm.T(), xm)
	for j := 1; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+lambda)
	}

	inv, err := invertGaussJordan(&gram)
	if err != nil {
		return nil, err
	}

	var xty, beta, fitted mat.VecDense
	xty.MulVec(xm.T(), yv)
	beta.MulVec(inv, &xty)
	fitted.MulVec(xm, &beta)

	actual := yv.RawVector().Data
	predicted := fitted.RawVector().Data
	meanY := floats.Sum(actual) / float64(n)

	rss, tss := 0.0, 0.0
	for i := range actual {
		r := actual[i] - predicted[i]
		rss += r * r
		d := actual[i] - meanY
		tss += d * d
	}

	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	} else if rss < pivotTolerance {
		r2 = 1
	}

	return &RidgeFit{
		Beta:        append([]float64(nil), beta.RawVector().Data...),
		GramInverse: toRows(inv),
		Lambda:      lambda,
		MAE:         CalculateMAE(actual, predicted),
		RMSE:        CalculateRMSE(actual, predicted),
		RSquared:    r2,
		MSE:         rss / float64(n-p),
		N:           n,
		P:           p,
	}, nil
}

// invertGaussJordan inverts a square matrix by Gauss-Jordan elimination with
// partial pivoting. It fails with SingularMatrix at the first pivot whose
// magnitude is below pivotTolerance.
func invertGaussJordan(m mat.Matrix) (*mat.Dense, error) {
	n, _ := m.Dims()
	a := mat.DenseCopyOf(m)
	inv := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		inv.Set(i, i, 1)
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		maxAbs := math.Abs(a.At(col, col))
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a.At(r, col)); v > maxAbs {
				maxAbs = v
				pivotRow = r
			}
		}
		if maxAbs < pivotTolerance || math.IsNaN(maxAbs) {
			return nil, &TrainingError{Kind: KindSingularMatrix, Have: col, Need: n}
		}
		if pivotRow != col {
			swapRows(a, col, pivotRow)
			swapRows(inv, col, pivotRow)
		}

		pivotA := a.RawRowView(col)
		pivotInv := inv.RawRowView(col)
		scale := 1 / pivotA[col]
		floats.Scale(scale, pivotA)
		floats.Scale(scale, pivotInv)

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a.At(r, col)
			if factor == 0 {
				continue
			}
			floats.AddScaled(a.RawRowView(r), -factor, pivotA)
			floats.AddScaled(inv.RawRowView(r), -factor, pivotInv)
		}
	}
	return inv, nil
}

func swapRows(m *mat.Dense, i, j int) {
	ri, rj := m.RawRowView(i), m.RawRowView(j)
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

func flatten(x [][]float64, p int) []float64 {
	data := make([]float64, 0, len(x)*p)
	for _, row := range x {
		data = append(data, row[:p]...)
	}
	return data
}

func toRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		copy(rows[i], m.RawRowView(i))
	}
	return rows
}

// predictRow evaluates β·x.
func predictRow(beta, x []float64) float64 {
	if len(beta) != len(x) {
		return math.NaN()
	}
	return floats.Dot(beta, x)
}
