package gonudg

import (
	"gonum.org/v1/gonum/mat"
)

// Vandermonde1D builds the [Np × Np] Vandermonde matrix
// V[i][j] = P_j(r[i]) for the order-N orthonormal Legendre basis.
func Vandermonde1D(N int, r []float64) *mat.Dense {
	Np := len(r)
	V := mat.NewDense(Np, N+1, nil)
	for j := 0; j <= N; j++ {
		col := JacobiP(r, 0, 0, j)
		for i := 0; i < Np; i++ {
			V.Set(i, j, col[i])
		}
	}
	return V
}

// GradVandermonde1D builds Vr[i][j] = dP_j/dr at r[i].
func GradVandermonde1D(N int, r []float64) *mat.Dense {
	Np := len(r)
	Vr := mat.NewDense(Np, N+1, nil)
	for j := 0; j <= N; j++ {
		col := GradJacobiP(r, 0, 0, j)
		for i := 0; i < Np; i++ {
			Vr.Set(i, j, col[i])
		}
	}
	return Vr
}

// Dmatrix1D builds the nodal differentiation matrix Dr = Vr * V^-1.
func Dmatrix1D(N int, r []float64, V *mat.Dense) *mat.Dense {
	Np := len(r)
	Vr := GradVandermonde1D(N, r)

	var Vinv mat.Dense
	if err := Vinv.Inverse(V); err != nil {
		panic("Vandermonde matrix is singular: " + err.Error())
	}

	Dr := mat.NewDense(Np, Np, nil)
	Dr.Mul(Vr, &Vinv)
	return Dr
}

// Lift1D builds the [Np × 2] lift matrix LIFT = V V^T E, where E picks the
// two endpoint nodes of the reference line.
func Lift1D(N int, V *mat.Dense) *mat.Dense {
	Np := N + 1
	Emat := mat.NewDense(Np, 2, nil)
	Emat.Set(0, 0, 1)
	Emat.Set(Np-1, 1, 1)

	var VT, tmp mat.Dense
	VT.CloneFrom(V.T())
	tmp.Mul(&VT, Emat)

	LIFT := mat.NewDense(Np, 2, nil)
	LIFT.Mul(V, &tmp)
	return LIFT
}
