package element

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mrvortex/hedge/element/library/gonudg"
)

// LineElement is the order-N nodal line element on [-1,1] with
// Gauss-Lobatto nodes and the orthonormal Legendre modal basis.
type LineElement struct {
	order int
	r     []float64
	v     *mat.Dense
	vinv  *mat.Dense
	m     *mat.Dense
	minv  *mat.Dense
	dr    *mat.Dense
	lift  *mat.Dense
}

// NewLineElement builds the reference line element of the given order.
func NewLineElement(order int) *LineElement {
	if order < 1 {
		panic(fmt.Sprintf("line element order must be >= 1, got %d", order))
	}

	r := gonudg.JacobiGL(0, 0, order)
	V := gonudg.Vandermonde1D(order, r)

	var Vinv mat.Dense
	if err := Vinv.Inverse(V); err != nil {
		panic("line element Vandermonde matrix is singular: " + err.Error())
	}

	// M = (V V^T)^-1, Minv = V V^T
	np := order + 1
	minv := mat.NewDense(np, np, nil)
	minv.Mul(V, V.T())
	m := mat.NewDense(np, np, nil)
	if err := m.Inverse(minv); err != nil {
		panic("line element mass matrix inversion failed: " + err.Error())
	}

	return &LineElement{
		order: order,
		r:     r,
		v:     V,
		vinv:  &Vinv,
		m:     m,
		minv:  minv,
		dr:    gonudg.Dmatrix1D(order, r, V),
		lift:  gonudg.Lift1D(order, V),
	}
}

func (e *LineElement) Name() string     { return fmt.Sprintf("Line%d", e.order) }
func (e *LineElement) Order() int       { return e.order }
func (e *LineElement) Np() int          { return e.order + 1 }
func (e *LineElement) NFp() int         { return 1 }
func (e *LineElement) NFaces() int      { return 2 }
func (e *LineElement) Dimensions() int  { return 1 }
func (e *LineElement) R() []float64     { return e.r }
func (e *LineElement) V() mat.Matrix    { return e.v }
func (e *LineElement) Vinv() mat.Matrix { return e.vinv }
func (e *LineElement) M() mat.Matrix    { return e.m }
func (e *LineElement) Minv() mat.Matrix { return e.minv }
func (e *LineElement) Dr() mat.Matrix   { return e.dr }
func (e *LineElement) LIFT() mat.Matrix { return e.lift }
