// Package flux defines the restricted coefficient sub-language evaluated at
// element interfaces, and compiles it into compact per-face-node programs.
// The language is intentionally closed: constants, sums, products, negation,
// non-negative integer powers, unit-normal components, penalty terms and
// if-positive selection. Anything else is rejected at compile time so the
// compiled kernel can run in a tight per-face loop.
package flux

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is the closed sum type of flux coefficient expressions.
type Term interface {
	encode(sb *strings.Builder)
	String() string
	isTerm()
}

// Constant is a literal scalar coefficient.
type Constant float64

// FieldComponent references one component of the flux operand by position:
// the interior-side trace when Interior is set, the exterior/neighbor trace
// otherwise.
type FieldComponent struct {
	Index    int
	Interior bool
}

// Normal is one component of the unit outward face normal.
type Normal struct {
	Axis int
}

// PenaltyTerm is the face penalty coefficient raised to Power, with the
// penalty base (order²/h) supplied per face at execution time.
type PenaltyTerm struct {
	Power float64
}

// Sum is a flattened n-ary sum.
type Sum struct {
	Terms []Term
}

// Product is a flattened n-ary product.
type Product struct {
	Factors []Term
}

// Negation negates its operand.
type Negation struct {
	Operand Term
}

// Power raises Base to Exponent. Only exponents that are non-negative
// integers compile; they expand into chained products.
type Power struct {
	Base     Term
	Exponent float64
}

// IfPositive selects Then when Criterion evaluates greater than zero, Else
// otherwise. Used for upwinding.
type IfPositive struct {
	Criterion Term
	Then      Term
	Else      Term
}

func (Constant) isTerm()        {}
func (*FieldComponent) isTerm() {}
func (*Normal) isTerm()         {}
func (*PenaltyTerm) isTerm()    {}
func (*Sum) isTerm()            {}
func (*Product) isTerm()        {}
func (*Negation) isTerm()       {}
func (*Power) isTerm()          {}
func (*IfPositive) isTerm()     {}

func (c Constant) encode(sb *strings.Builder) {
	sb.WriteString(strconv.FormatFloat(float64(c), 'g', -1, 64))
}

func (f *FieldComponent) encode(sb *strings.Builder) {
	if f.Interior {
		fmt.Fprintf(sb, "int[%d]", f.Index)
	} else {
		fmt.Fprintf(sb, "ext[%d]", f.Index)
	}
}

func (n *Normal) encode(sb *strings.Builder)      { fmt.Fprintf(sb, "n[%d]", n.Axis) }
func (p *PenaltyTerm) encode(sb *strings.Builder) { fmt.Fprintf(sb, "penalty(%g)", p.Power) }

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

func (n *Negation) encode(sb *strings.Builder) {
	sb.WriteString("(- ")
	n.Operand.encode(sb)
	sb.WriteByte(')')
}

func (p *Power) encode(sb *strings.Builder) {
	sb.WriteString("(pow ")
	p.Base.encode(sb)
	fmt.Fprintf(sb, " %g)", p.Exponent)
}

func (i *IfPositive) encode(sb *strings.Builder) {
	sb.WriteString("(ifpos ")
	i.Criterion.encode(sb)
	sb.WriteByte(' ')
	i.Then.encode(sb)
	sb.WriteByte(' ')
	i.Else.encode(sb)
	sb.WriteByte(')')
}

func (c Constant) String() string        { return Encode(c) }
func (f *FieldComponent) String() string { return Encode(f) }
func (n *Normal) String() string         { return Encode(n) }
func (p *PenaltyTerm) String() string    { return Encode(p) }
func (s *Sum) String() string            { return Encode(s) }
func (p *Product) String() string        { return Encode(p) }
func (n *Negation) String() string       { return Encode(n) }
func (p *Power) String() string          { return Encode(p) }
func (i *IfPositive) String() string     { return Encode(i) }

// Encode returns the canonical structural encoding of t.
func Encode(t Term) string {
	var sb strings.Builder
	t.encode(&sb)
	return sb.String()
}

// Equal reports structural equality.
func Equal(a, b Term) bool {
	return Encode(a) == Encode(b)
}

// IsZero reports whether t is the literal zero.
func IsZero(t Term) bool {
	c, ok := t.(Constant)
	return ok && c == 0
}

// Int references interior operand component i.
func Int(i int) *FieldComponent { return &FieldComponent{Index: i, Interior: true} }

// Ext references exterior operand component i.
func Ext(i int) *FieldComponent { return &FieldComponent{Index: i, Interior: false} }

// Add builds a flattened sum, dropping literal zeros.
func Add(terms ...Term) Term {
	flat := make([]Term, 0, len(terms))
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

// Sub is Add(a, Neg(b)).
func Sub(a, b Term) Term { return Add(a, Neg(b)) }

// Neg negates t, folding literal constants.
func Neg(t Term) Term {
	if c, ok := t.(Constant); ok {
		return Constant(-c)
	}
	return &Negation{Operand: t}
}

// Mul builds a flattened product. A literal zero factor collapses the whole
// product to zero; literal ones are dropped.
func Mul(factors ...Term) Term {
	flat := make([]Term, 0, len(factors))
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

// Avg is the central average of the interior and exterior traces of
// component i.
func Avg(i int) Term {
	return Mul(Constant(0.5), Add(Int(i), Ext(i)))
}

// Jump is the interior-minus-exterior jump of component i.
func Jump(i int) Term {
	return Sub(Int(i), Ext(i))
}

// Substitute rebuilds t with every node for which repl returns a
// replacement swapped out. Replacement happens top-down; replaced sub-trees
// are not revisited.
func Substitute(t Term, repl func(Term) (Term, bool)) Term {
	if r, ok := repl(t); ok {
		return r
	}
	switch tt := t.(type) {
	case *Sum:
		terms := make([]Term, 0, len(tt.Terms))
		for _, c := range tt.Terms {
			terms = append(terms, Substitute(c, repl))
		}
		return Add(terms...)
	case *Product:
		factors := make([]Term, 0, len(tt.Factors))
		for _, c := range tt.Factors {
			factors = append(factors, Substitute(c, repl))
		}
		return Mul(factors...)
	case *Negation:
		return Neg(Substitute(tt.Operand, repl))
	case *Power:
		return &Power{Base: Substitute(tt.Base, repl), Exponent: tt.Exponent}
	case *IfPositive:
		return &IfPositive{
			Criterion: Substitute(tt.Criterion, repl),
			Then:      Substitute(tt.Then, repl),
			Else:      Substitute(tt.Else, repl),
		}
	default:
		return t
	}
}

// MaxComponent returns the highest referenced interior and exterior
// component indices, or -1 where a side is unreferenced.
func MaxComponent(t Term) (maxInterior, maxExterior int) {
	maxInterior, maxExterior = -1, -1
	walk(t, func(n Term) {
		if fc, ok := n.(*FieldComponent); ok {
			if fc.Interior && fc.Index > maxInterior {
				maxInterior = fc.Index
			}
			if !fc.Interior && fc.Index > maxExterior {
				maxExterior = fc.Index
			}
		}
	})
	return maxInterior, maxExterior
}

// MaxNormalAxis returns the highest normal axis referenced, or -1.
func MaxNormalAxis(t Term) int {
	max := -1
	walk(t, func(n Term) {
		if nn, ok := n.(*Normal); ok && nn.Axis > max {
			max = nn.Axis
		}
	})
	return max
}

func walk(t Term, visit func(Term)) {
	visit(t)
	switch tt := t.(type) {
	case *Sum:
		for _, c := range tt.Terms {
			walk(c, visit)
		}
	case *Product:
		for _, c := range tt.Factors {
			walk(c, visit)
		}
	case *Negation:
		walk(tt.Operand, visit)
	case *Power:
		walk(tt.Base, visit)
	case *IfPositive:
		walk(tt.Criterion, visit)
		walk(tt.Then, visit)
		walk(tt.Else, visit)
	}
}
