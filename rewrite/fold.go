package rewrite

import (
	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

// Fold performs commutative constant folding. Dependency-free subtrees
// collapse to literals, operator bindings over a provably zero operand
// collapse to zero, and boundary fluxes drop the boundary-pair components
// the flux term no longer references.
func Fold(e symbolic.Expr) (symbolic.Expr, error) {
	return foldExpr(e)
}

func foldExpr(e symbolic.Expr) (symbolic.Expr, error) {
	switch ee := e.(type) {
	case *symbolic.Sum:
		terms := make([]symbolic.Expr, 0, len(ee.Terms))
		acc := 0.0
		for _, t := range ee.Terms {
			ft, err := foldExpr(t)
			if err != nil {
				return nil, err
			}
			if c, ok := ft.(symbolic.Constant); ok {
				acc += float64(c)
				continue
			}
			terms = append(terms, ft)
		}
		if acc != 0 {
			terms = append(terms, symbolic.Constant(acc))
		}
		return symbolic.Add(terms...), nil

	case *symbolic.Product:
		factors := make([]symbolic.Expr, 0, len(ee.Factors))
		acc := 1.0
		for _, f := range ee.Factors {
			ff, err := foldExpr(f)
			if err != nil {
				return nil, err
			}
			if c, ok := ff.(symbolic.Constant); ok {
				acc *= float64(c)
				continue
			}
			factors = append(factors, ff)
		}
		if acc == 0 {
			return symbolic.Constant(0), nil
		}
		if acc != 1 {
			factors = append([]symbolic.Expr{symbolic.Constant(acc)}, factors...)
		}
		return symbolic.Mul(factors...), nil

	case *symbolic.Vector:
		comps := make([]symbolic.Expr, 0, len(ee.Components))
		for _, c := range ee.Components {
			fc, err := foldExpr(c)
			if err != nil {
				return nil, err
			}
			comps = append(comps, fc)
		}
		return symbolic.NewVector(comps...), nil

	case *symbolic.BoundaryPair:
		interior, err := foldExpr(ee.Interior)
		if err != nil {
			return nil, err
		}
		boundary, err := foldExpr(ee.Boundary)
		if err != nil {
			return nil, err
		}
		return &symbolic.BoundaryPair{Interior: interior, Boundary: boundary, Tag: ee.Tag}, nil

	case *symbolic.CommonSubexpression:
		child, err := foldExpr(ee.Child)
		if err != nil {
			return nil, err
		}
		if c, ok := child.(symbolic.Constant); ok {
			return c, nil
		}
		return &symbolic.CommonSubexpression{Child: child, Name: ee.Name}, nil

	case *symbolic.OperatorBinding:
		return foldBinding(ee)

	default:
		return e, nil
	}
}

func foldBinding(b *symbolic.OperatorBinding) (symbolic.Expr, error) {
	operand, err := foldExpr(b.Operand)
	if err != nil {
		return nil, err
	}
	if symbolic.IsZero(operand) {
		return symbolic.Constant(0), nil
	}
	if fop, ok := b.Op.(symbolic.FluxBaseOperator); ok {
		if bpair, ok := operand.(*symbolic.BoundaryPair); ok {
			return foldBoundaryFlux(fop, bpair)
		}
		if flux.IsZero(fop.FluxTerm()) {
			return symbolic.Constant(0), nil
		}
	}
	return symbolic.Apply(b.Op, operand), nil
}

// foldBoundaryFlux drops boundary-pair components that folded to zero and
// renumbers the flux term's field references to match the compacted lists.
func foldBoundaryFlux(op symbolic.FluxBaseOperator, bpair *symbolic.BoundaryPair) (symbolic.Expr, error) {
	newInt, intMap := compactComponents(components(bpair.Interior))
	newExt, extMap := compactComponents(components(bpair.Boundary))

	term := flux.Substitute(op.FluxTerm(), func(t flux.Term) (flux.Term, bool) {
		fc, ok := t.(*flux.FieldComponent)
		if !ok {
			return nil, false
		}
		m := extMap
		if fc.Interior {
			m = intMap
		}
		idx, kept := m[fc.Index]
		if !kept {
			return flux.Constant(0), true
		}
		if idx == fc.Index {
			return nil, false
		}
		return &flux.FieldComponent{Index: idx, Interior: fc.Interior}, true
	})

	// Dropping zero fields can zero the whole kernel once the flux term's
	// own algebra simplifies; rebuild through the constructors to find out.
	term = refold(term)
	if flux.IsZero(term) {
		return symbolic.Constant(0), nil
	}

	return symbolic.Apply(op.WithFlux(term), &symbolic.BoundaryPair{
		Interior: symbolic.NewVector(newInt...),
		Boundary: symbolic.NewVector(newExt...),
		Tag:      bpair.Tag,
	}), nil
}

func compactComponents(comps []symbolic.Expr) ([]symbolic.Expr, map[int]int) {
	var kept []symbolic.Expr
	remap := make(map[int]int)
	for i, c := range comps {
		if symbolic.IsZero(c) {
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, c)
	}
	return kept, remap
}

// refold re-runs the flux constructors bottom-up so zero constants
// introduced by substitution propagate through sums and products.
func refold(t flux.Term) flux.Term {
	switch tt := t.(type) {
	case *flux.Sum:
		terms := make([]flux.Term, 0, len(tt.Terms))
		for _, s := range tt.Terms {
			terms = append(terms, refold(s))
		}
		return flux.Add(terms...)
	case *flux.Product:
		factors := make([]flux.Term, 0, len(tt.Factors))
		for _, f := range tt.Factors {
			factors = append(factors, refold(f))
		}
		return flux.Mul(factors...)
	case *flux.Negation:
		return flux.Neg(refold(tt.Operand))
	case *flux.Power:
		base := refold(tt.Base)
		if flux.IsZero(base) && tt.Exponent > 0 {
			return flux.Constant(0)
		}
		return &flux.Power{Base: base, Exponent: tt.Exponent}
	case *flux.IfPositive:
		return &flux.IfPositive{
			Criterion: refold(tt.Criterion),
			Then:      refold(tt.Then),
			Else:      refold(tt.Else),
		}
	default:
		return t
	}
}
