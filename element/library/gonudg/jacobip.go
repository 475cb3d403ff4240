package gonudg

import (
	"math"
)

// JacobiP evaluates the orthonormalized Jacobi polynomial of type
// (alpha,beta) and order n at the points x.
func JacobiP(x []float64, alpha, beta float64, n int) []float64 {
	Np := len(x)

	gamma0 := Gamma0(alpha, beta)
	P := make([]float64, Np)
	for i := range P {
		P[i] = 1.0 / math.Sqrt(gamma0)
	}
	if n == 0 {
		return P
	}

	gamma1 := Gamma1(alpha, beta)
	Pn := make([]float64, Np)
	for i := range Pn {
		Pn[i] = ((alpha+beta+2)*x[i]/2 + (alpha-beta)/2) / math.Sqrt(gamma1)
	}
	if n == 1 {
		return Pn
	}

	// Three-term recurrence on the orthonormalized polynomials.
	aold := 2.0 / (2.0 + alpha + beta) * math.Sqrt((alpha+1)*(beta+1)/(alpha+beta+3))
	Pold := P
	for i := 1; i < n; i++ {
		h1 := 2*float64(i) + alpha + beta
		fi := float64(i)
		anew := 2.0 / (h1 + 2) * math.Sqrt((fi+1)*(fi+1+alpha+beta)*
			(fi+1+alpha)*(fi+1+beta)/(h1+1)/(h1+3))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2)

		Pnext := make([]float64, Np)
		for j := range Pnext {
			Pnext[j] = 1 / anew * (-aold*Pold[j] + (x[j]-bnew)*Pn[j])
		}
		Pold, Pn = Pn, Pnext
		aold = anew
	}

	return Pn
}

// JacobiPSingle evaluates the Jacobi polynomial at a single point.
func JacobiPSingle(x, alpha, beta float64, n int) float64 {
	return JacobiP([]float64{x}, alpha, beta, n)[0]
}

// GradJacobiP evaluates the derivative of the orthonormalized Jacobi
// polynomial of type (alpha,beta) and order n at the points x, using
// d/dx P_n^{a,b} = sqrt(n(n+a+b+1)) P_{n-1}^{a+1,b+1}.
func GradJacobiP(x []float64, alpha, beta float64, n int) []float64 {
	dP := make([]float64, len(x))
	if n == 0 {
		return dP
	}
	fac := math.Sqrt(float64(n) * (float64(n) + alpha + beta + 1))
	P := JacobiP(x, alpha+1, beta+1, n-1)
	for i := range dP {
		dP[i] = fac * P[i]
	}
	return dP
}
