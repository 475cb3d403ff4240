package gonudg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestJacobiGL(t *testing.T) {
	t.Run("Order1", func(t *testing.T) {
		assert.Equal(t, []float64{-1, 1}, JacobiGL(0, 0, 1))
	})

	t.Run("Order2HasMidpoint", func(t *testing.T) {
		x := JacobiGL(0, 0, 2)
		require.Len(t, x, 3)
		assert.InDelta(t, -1, x[0], 1e-14)
		assert.InDelta(t, 0, x[1], 1e-14)
		assert.InDelta(t, 1, x[2], 1e-14)
	})

	t.Run("EndpointsAndOrdering", func(t *testing.T) {
		for order := 1; order <= 6; order++ {
			x := JacobiGL(0, 0, order)
			require.Len(t, x, order+1)
			assert.InDelta(t, -1, x[0], 1e-14)
			assert.InDelta(t, 1, x[order], 1e-14)
			for i := 1; i < len(x); i++ {
				assert.Greater(t, x[i], x[i-1])
			}
		}
	})
}

func TestJacobiGQ(t *testing.T) {
	// Two-point Gauss-Legendre: nodes ±1/sqrt(3), unit weights.
	x, w := JacobiGQ(0, 0, 1)
	require.Len(t, x, 2)
	assert.InDelta(t, -1/math.Sqrt(3), x[0], 1e-12)
	assert.InDelta(t, 1/math.Sqrt(3), x[1], 1e-12)
	assert.InDelta(t, 1, w[0], 1e-12)
	assert.InDelta(t, 1, w[1], 1e-12)

	t.Run("WeightsSumToMeasure", func(t *testing.T) {
		for n := 1; n <= 5; n++ {
			_, w := JacobiGQ(0, 0, n)
			sum := 0.0
			for _, wi := range w {
				sum += wi
			}
			assert.InDelta(t, 2, sum, 1e-12)
		}
	})
}

func TestJacobiPOrthonormality(t *testing.T) {
	x, w := JacobiGQ(0, 0, 5)
	for m := 0; m <= 3; m++ {
		for n := 0; n <= 3; n++ {
			pm := JacobiP(x, 0, 0, m)
			pn := JacobiP(x, 0, 0, n)
			dot := 0.0
			for i := range x {
				dot += w[i] * pm[i] * pn[i]
			}
			want := 0.0
			if m == n {
				want = 1.0
			}
			assert.InDeltaf(t, want, dot, 1e-12, "inner product of P%d and P%d", m, n)
		}
	}
}

func TestGradJacobiP(t *testing.T) {
	t.Run("ConstantModeHasZeroDerivative", func(t *testing.T) {
		for _, d := range GradJacobiP([]float64{-1, 0, 1}, 0, 0, 0) {
			assert.Zero(t, d)
		}
	})

	t.Run("LinearMode", func(t *testing.T) {
		// P1(x) = sqrt(3/2) x, so its derivative is sqrt(3/2) everywhere.
		want := math.Sqrt(1.5)
		for _, d := range GradJacobiP([]float64{-0.7, 0, 0.3}, 0, 0, 1) {
			assert.InDelta(t, want, d, 1e-12)
		}
	})
}

func TestDmatrix1D(t *testing.T) {
	for order := 1; order <= 5; order++ {
		r := JacobiGL(0, 0, order)
		V := Vandermonde1D(order, r)
		Dr := Dmatrix1D(order, r, V)

		t.Run("DifferentiatesLinears", func(t *testing.T) {
			np := len(r)
			for i := 0; i < np; i++ {
				sum := 0.0
				for j := 0; j < np; j++ {
					sum += Dr.At(i, j) * r[j]
				}
				assert.InDelta(t, 1, sum, 1e-10)
			}
		})

		t.Run("KillsConstants", func(t *testing.T) {
			np := len(r)
			for i := 0; i < np; i++ {
				sum := 0.0
				for j := 0; j < np; j++ {
					sum += Dr.At(i, j)
				}
				assert.InDelta(t, 0, sum, 1e-10)
			}
		})
	}
}

func TestLift1D(t *testing.T) {
	order := 3
	r := JacobiGL(0, 0, order)
	V := Vandermonde1D(order, r)
	lift := Lift1D(order, V)

	rows, cols := lift.Dims()
	assert.Equal(t, order+1, rows)
	assert.Equal(t, 2, cols)

	// LIFT = Minv E, so M LIFT must reproduce the endpoint picker E.
	var minv mat.Dense
	minv.Mul(V, V.T())
	var m mat.Dense
	require.NoError(t, m.Inverse(&minv))

	var e mat.Dense
	e.Mul(&m, lift)
	for i := 0; i < rows; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if (j == 0 && i == 0) || (j == 1 && i == rows-1) {
				want = 1.0
			}
			assert.InDelta(t, want, e.At(i, j), 1e-10)
		}
	}
}
