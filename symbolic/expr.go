// Package symbolic defines the operator-template expression language: the
// immutable tree nodes a model builds to describe a spatial DG operator, and
// the closed operator taxonomy bound into those trees. Equality and hashing
// of every node are structural, so identical sub-trees can be interned and
// memoized regardless of where they were constructed.
package symbolic

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is the closed sum type of expression nodes. All implementations are
// immutable after construction.
type Expr interface {
	// encode appends a canonical structural encoding. Two expressions are
	// equal iff their encodings are equal.
	encode(sb *strings.Builder)
	String() string
	isExpr()
}

// Constant is a literal scalar.
type Constant float64

// Variable names a caller-supplied field array.
type Variable struct {
	Name string
}

// ScalarParameter is a placeholder for a user-supplied scalar value,
// resolved from scalar bindings at execution time.
type ScalarParameter struct {
	Name string
}

// Sum is a flattened n-ary sum.
type Sum struct {
	Terms []Expr
}

// Product is a flattened n-ary product.
type Product struct {
	Factors []Expr
}

// Vector is a fixed-size object array of scalar expressions. Compilation and
// execution treat each component independently; the result mirrors the
// component shape.
type Vector struct {
	Components []Expr
}

// RawOperator is an operator appearing as a factor in a product, before the
// binder has converted the product into an OperatorBinding.
type RawOperator struct {
	Op Operator
}

// OperatorBinding applies an operator to an operand expression. It is the
// sole two-child composite: two bindings are equal iff operator and operand
// are both equal.
type OperatorBinding struct {
	Op      Operator
	Operand Expr
}

// BoundaryPair couples an interior-side expression with an exterior
// (boundary-data) expression under one boundary tag, for use as the operand
// of a boundary flux. The free variables of the two sides must be disjoint.
type BoundaryPair struct {
	Interior Expr
	Boundary Expr
	Tag      string
}

// NormalComponent is one component of the unit outward normal on the faces
// of the given boundary tag.
type NormalComponent struct {
	Tag  string
	Axis int
}

// GeometricFactorKind selects which pointwise geometric quantity a
// GeometricFactor node refers to.
type GeometricFactorKind uint8

const (
	// JacobianFactor is the pointwise volume Jacobian determinant.
	JacobianFactor GeometricFactorKind = iota
	// ForwardMetric is d x_{XYZAxis} / d r_{RSTAxis}.
	ForwardMetric
	// InverseMetric is d r_{RSTAxis} / d x_{XYZAxis}.
	InverseMetric
)

// GeometricFactor is a pointwise geometric quantity of the mesh mapping, on
// the nodal grid or on the quadrature grid named by QuadTag.
type GeometricFactor struct {
	Kind    GeometricFactorKind
	QuadTag string
	XYZAxis int
	RSTAxis int
}

// CommonSubexpression marks a sub-tree that should be evaluated once per
// execution call and reused, under an optional debug name.
type CommonSubexpression struct {
	Child Expr
	Name  string
}

func (Constant) isExpr()            {}
func (*Variable) isExpr()           {}
func (*ScalarParameter) isExpr()    {}
func (*Sum) isExpr()                {}
func (*Product) isExpr()            {}
func (*Vector) isExpr()             {}
func (*RawOperator) isExpr()        {}
func (*OperatorBinding) isExpr()    {}
func (*BoundaryPair) isExpr()       {}
func (*NormalComponent) isExpr()    {}
func (*GeometricFactor) isExpr()    {}
func (*CommonSubexpression) isExpr() {}

func (c Constant) encode(sb *strings.Builder) {
	sb.WriteByte('c')
	sb.WriteString(strconv.FormatFloat(float64(c), 'g', -1, 64))
}

func (v *Variable) encode(sb *strings.Builder) {
	sb.WriteString("v[")
	sb.WriteString(v.Name)
	sb.WriteByte(']')
}

func (s *ScalarParameter) encode(sb *strings.Builder) {
	sb.WriteString("sp[")
	sb.WriteString(s.Name)
	sb.WriteByte(']')
}

func (s *Sum) encode(sb *strings.Builder) {
	sb.WriteString("(+")
	for _, t := range s.Terms {
		sb.WriteByte(' ')
		t.encode(sb)
	}
	sb.WriteByte(')')
}

func (p *Product) encode(sb *strings.Builder) {
	sb.WriteString("(*")
	for _, f := range p.Factors {
		sb.WriteByte(' ')
		f.encode(sb)
	}
	sb.WriteByte(')')
}

func (v *Vector) encode(sb *strings.Builder) {
	sb.WriteString("(vec")
	for _, c := range v.Components {
		sb.WriteByte(' ')
		c.encode(sb)
	}
	sb.WriteByte(')')
}

func (r *RawOperator) encode(sb *strings.Builder) {
	sb.WriteString("(rawop ")
	r.Op.encode(sb)
	sb.WriteByte(')')
}

func (b *OperatorBinding) encode(sb *strings.Builder) {
	sb.WriteString("(bind ")
	b.Op.encode(sb)
	sb.WriteByte(' ')
	b.Operand.encode(sb)
	sb.WriteByte(')')
}

func (b *BoundaryPair) encode(sb *strings.Builder) {
	sb.WriteString("(bpair[")
	sb.WriteString(b.Tag)
	sb.WriteString("] ")
	b.Interior.encode(sb)
	sb.WriteByte(' ')
	b.Boundary.encode(sb)
	sb.WriteByte(')')
}

func (n *NormalComponent) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "normal[%s,%d]", n.Tag, n.Axis)
}

func (g *GeometricFactor) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "geo[%d,%s,%d,%d]", g.Kind, g.QuadTag, g.XYZAxis, g.RSTAxis)
}

func (c *CommonSubexpression) encode(sb *strings.Builder) {
	sb.WriteString("(cse ")
	c.Child.encode(sb)
	sb.WriteByte(')')
}

// Encode returns the canonical structural encoding of e. The encoding is the
// basis for Equal, for interning and for memo-table keys.
func Encode(e Expr) string {
	var sb strings.Builder
	e.encode(&sb)
	return sb.String()
}

// Equal reports structural equality.
func Equal(a, b Expr) bool {
	return Encode(a) == Encode(b)
}

// IsZero reports whether e is the literal zero.
func IsZero(e Expr) bool {
	c, ok := e.(Constant)
	return ok && c == 0
}

// Add builds a flattened sum, dropping literal zeros. An empty result
// collapses to the zero constant, a singleton to its only term.
func Add(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		switch tt := t.(type) {
		case *Sum:
			flat = append(flat, tt.Terms...)
		default:
			if !IsZero(t) {
				flat = append(flat, t)
			}
		}
	}
	switch len(flat) {
	case 0:
		return Constant(0)
	case 1:
		return flat[0]
	}
	return &Sum{Terms: flat}
}

// Sub is Add(a, Mul(-1, b)).
func Sub(a, b Expr) Expr {
	return Add(a, Mul(Constant(-1), b))
}

// Mul builds a flattened product, dropping literal ones. A literal zero
// factor collapses the whole product to zero.
func Mul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	for _, f := range factors {
		switch ff := f.(type) {
		case *Product:
			flat = append(flat, ff.Factors...)
		case Constant:
			if ff == 0 {
				return Constant(0)
			}
			if ff != 1 {
				flat = append(flat, f)
			}
		default:
			flat = append(flat, f)
		}
	}
	switch len(flat) {
	case 0:
		return Constant(1)
	case 1:
		return flat[0]
	}
	return &Product{Factors: flat}
}

// Apply binds op to operand directly, bypassing the binder.
func Apply(op Operator, operand Expr) Expr {
	return &OperatorBinding{Op: op, Operand: operand}
}

// NewVector wraps components into a Vector expression.
func NewVector(components ...Expr) *Vector {
	return &Vector{Components: components}
}

// MakeNormal returns the unit outward normal on the tagged boundary as a
// vector of NormalComponent leaves.
func MakeNormal(tag string, dimensions int) *Vector {
	comps := make([]Expr, dimensions)
	for i := range comps {
		comps[i] = &NormalComponent{Tag: tag, Axis: i}
	}
	return &Vector{Components: comps}
}
