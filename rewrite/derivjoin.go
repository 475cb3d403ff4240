package rewrite

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/mrvortex/hedge/symbolic"
)

// JoinDerivatives merges sibling applications of the same differentiation
// operator inside a sum: a*D0(u) + D0(v) + w becomes D0(a*u + v) + w. One
// matrix application per operator instead of one per term.
func JoinDerivatives(e symbolic.Expr) (symbolic.Expr, error) {
	switch ee := e.(type) {
	case *symbolic.Sum:
		return joinSum(ee)
	default:
		return symbolic.RewriteChildren(e, JoinDerivatives)
	}
}

// derivGroup accumulates the operands of one differentiation operator.
type derivGroup struct {
	op       symbolic.DiffBaseOperator
	operands []symbolic.Expr
}

func joinSum(s *symbolic.Sum) (symbolic.Expr, error) {
	// Sorted by operator encoding so the joined output is deterministic
	// regardless of term order in the input sum.
	groups := treemap.NewWith(utils.StringComparator)
	var rest []symbolic.Expr

	for _, t := range s.Terms {
		jt, err := JoinDerivatives(t)
		if err != nil {
			return nil, err
		}
		op, operand, ok := splitDerivativeTerm(jt)
		if !ok {
			rest = append(rest, jt)
			continue
		}
		key := symbolic.EncodeOperator(op)
		if g, found := groups.Get(key); found {
			grp := g.(*derivGroup)
			grp.operands = append(grp.operands, operand)
		} else {
			groups.Put(key, &derivGroup{op: op, operands: []symbolic.Expr{operand}})
		}
	}

	terms := rest
	groups.Each(func(_ interface{}, v interface{}) {
		grp := v.(*derivGroup)
		terms = append(terms, symbolic.Apply(grp.op, symbolic.Add(grp.operands...)))
	})
	return symbolic.Add(terms...), nil
}

// splitDerivativeTerm recognizes D(u) and scalar*D(u) terms, returning the
// differentiation operator and the operand with scalar factors folded in.
func splitDerivativeTerm(t symbolic.Expr) (symbolic.DiffBaseOperator, symbolic.Expr, bool) {
	switch tt := t.(type) {
	case *symbolic.OperatorBinding:
		if op, ok := tt.Op.(symbolic.DiffBaseOperator); ok {
			return op, tt.Operand, true
		}
	case *symbolic.Product:
		var scalars []symbolic.Expr
		var bindings []*symbolic.OperatorBinding
		for _, f := range tt.Factors {
			if isScalarFactor(f) {
				scalars = append(scalars, f)
				continue
			}
			b, ok := f.(*symbolic.OperatorBinding)
			if !ok {
				return nil, nil, false
			}
			bindings = append(bindings, b)
		}
		if len(bindings) != 1 {
			return nil, nil, false
		}
		op, ok := bindings[0].Op.(symbolic.DiffBaseOperator)
		if !ok {
			return nil, nil, false
		}
		return op, symbolic.Mul(append(scalars, bindings[0].Operand)...), true
	}
	return nil, nil, false
}
