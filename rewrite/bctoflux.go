package rewrite

import (
	"fmt"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

// RewriteBCToFlux substitutes boundary-condition expressions into flux
// kernels. When a boundary pair's exterior side is expressible in terms of
// data already available at the face (the interior trace, the outward
// normal, literal constants), the exterior expression is folded directly
// into the flux term, eliminating a separate boundary-data fetch. Interior
// and exterior sides sharing dependency leaves is ambiguous and fails with
// DependencyConflictError.
func RewriteBCToFlux(e symbolic.Expr) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &bcRewriter{})
}

type bcRewriter struct{}

func (r *bcRewriter) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (r *bcRewriter) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return r.keep(op, operand, rec)
}

func (r *bcRewriter) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return r.keep(op, operand, rec)
}

func (r *bcRewriter) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return r.keep(op, operand, rec)
}

func (r *bcRewriter) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	bpair, isBoundary := operand.(*symbolic.BoundaryPair)
	if !isBoundary {
		return r.keep(op, operand, rec)
	}

	bdryDeps := symbolic.Dependencies(bpair.Boundary, true)
	volDeps := symbolic.Dependencies(bpair.Interior, true)
	if shared := bdryDeps.Intersect(volDeps); len(shared) > 0 {
		names := make([]string, len(shared))
		for i, key := range shared {
			names[i] = bdryDeps[key].String()
		}
		return nil, &symbolic.DependencyConflictError{Tag: bpair.Tag, Shared: names}
	}

	finder := &boundaryExprFinder{tag: bpair.Tag}
	finder.initVolume(bpair.Interior)

	// Find the maximal flux-evaluable form of every boundary component.
	var replacements []flux.Term
	for _, comp := range components(bpair.Boundary) {
		t, err := finder.convert(comp)
		if err != nil {
			return nil, err
		}
		replacements = append(replacements, t)
	}

	newFlux := flux.Substitute(op.FluxTerm(), func(t flux.Term) (flux.Term, bool) {
		fc, ok := t.(*flux.FieldComponent)
		if !ok || fc.Interior {
			return nil, false
		}
		if fc.Index >= len(replacements) {
			return flux.Constant(0), true
		}
		return replacements[fc.Index], true
	})

	if flux.IsZero(newFlux) {
		return symbolic.Constant(0), nil
	}

	volExprs, err := recAll(finder.volList, rec)
	if err != nil {
		return nil, err
	}
	bdryExprs, err := recAll(finder.bdryList, rec)
	if err != nil {
		return nil, err
	}

	return symbolic.Apply(op.WithFlux(newFlux), &symbolic.BoundaryPair{
		Interior: symbolic.NewVector(volExprs...),
		Boundary: symbolic.NewVector(bdryExprs...),
		Tag:      bpair.Tag,
	}), nil
}

// boundaryExprFinder lowers a boundary-side expression into a flux term,
// registering the volume and boundary sub-expressions it must fetch.
type boundaryExprFinder struct {
	tag string

	volList []symbolic.Expr
	volIdx  map[string]int

	bdryList []symbolic.Expr
	bdryIdx  map[string]int
}

func (f *boundaryExprFinder) initVolume(interior symbolic.Expr) {
	f.volIdx = make(map[string]int)
	f.bdryIdx = make(map[string]int)
	for _, c := range components(interior) {
		f.volIdx[symbolic.Encode(c)] = len(f.volList)
		f.volList = append(f.volList, c)
	}
}

func (f *boundaryExprFinder) registerVolume(e symbolic.Expr) int {
	key := symbolic.Encode(e)
	if idx, ok := f.volIdx[key]; ok {
		return idx
	}
	idx := len(f.volList)
	f.volIdx[key] = idx
	f.volList = append(f.volList, e)
	return idx
}

func (f *boundaryExprFinder) registerBoundary(e symbolic.Expr) int {
	key := symbolic.Encode(e)
	if idx, ok := f.bdryIdx[key]; ok {
		return idx
	}
	idx := len(f.bdryList)
	f.bdryIdx[key] = idx
	f.bdryList = append(f.bdryList, e)
	return idx
}

func (f *boundaryExprFinder) convert(e symbolic.Expr) (flux.Term, error) {
	switch ee := e.(type) {
	case symbolic.Constant:
		return flux.Constant(ee), nil
	case *symbolic.Sum:
		terms := make([]flux.Term, 0, len(ee.Terms))
		for _, t := range ee.Terms {
			ct, err := f.convert(t)
			if err != nil {
				return nil, err
			}
			terms = append(terms, ct)
		}
		return flux.Add(terms...), nil
	case *symbolic.Product:
		factors := make([]flux.Term, 0, len(ee.Factors))
		for _, t := range ee.Factors {
			ct, err := f.convert(t)
			if err != nil {
				return nil, err
			}
			factors = append(factors, ct)
		}
		return flux.Mul(factors...), nil
	case *symbolic.NormalComponent:
		if ee.Tag != f.tag {
			return nil, fmt.Errorf("normal component and boundary pair disagree "+
				"about boundary tag: %s vs %s", ee.Tag, f.tag)
		}
		return &flux.Normal{Axis: ee.Axis}, nil
	case *symbolic.CommonSubexpression:
		return f.convert(ee.Child)
	case *symbolic.Variable:
		return flux.Ext(f.registerBoundary(ee)), nil
	case *symbolic.ScalarParameter:
		return flux.Ext(f.registerBoundary(ee)), nil
	case *symbolic.OperatorBinding:
		if b, ok := ee.Op.(*symbolic.BoundarizeOp); ok {
			if b.Tag != f.tag {
				return nil, fmt.Errorf("boundarize operator and boundary pair disagree "+
					"about boundary tag: %s vs %s", b.Tag, f.tag)
			}
			return flux.Int(f.registerVolume(ee.Operand)), nil
		}
		return nil, fmt.Errorf("operator %s found in a boundary term: "+
			"no operator applies directly to boundary data", ee.Op.String())
	default:
		return nil, fmt.Errorf("expression %s is not usable in a boundary term", e.String())
	}
}

// components flattens a Vector into its component list; scalars become a
// singleton list.
func components(e symbolic.Expr) []symbolic.Expr {
	if v, ok := e.(*symbolic.Vector); ok {
		return v.Components
	}
	return []symbolic.Expr{e}
}

func recAll(exprs []symbolic.Expr, rec symbolic.RecFunc) ([]symbolic.Expr, error) {
	out := make([]symbolic.Expr, 0, len(exprs))
	for _, e := range exprs {
		ne, err := rec(e)
		if err != nil {
			return nil, err
		}
		out = append(out, ne)
	}
	return out, nil
}
