// Package rewrite implements the ordered term-rewriting pipeline that turns
// a raw operator-template expression into a compiled, executable tree:
// operator binding, typedict-guided specialization, boundary-condition-into-
// flux rewriting, constant folding, dead-flux elimination, optional
// inverse-mass contraction, derivative joining, dimension checking, and
// flux-kernel compilation. Every pass is a pure tree-to-tree function.
package rewrite

import "github.com/mrvortex/hedge/symbolic"

// Bind converts products whose head factor is a raw operator into explicit
// OperatorBinding nodes. Binding an operator to more than one syntactic
// factor is ambiguous; the binder warns and binds the flattened remainder,
// leaving parenthesization to express author intent.
func Bind(e symbolic.Expr, warnf func(format string, args ...any)) (symbolic.Expr, error) {
	rec := func(x symbolic.Expr) (symbolic.Expr, error) { return Bind(x, warnf) }

	p, ok := e.(*symbolic.Product)
	if !ok {
		return symbolic.RewriteChildren(e, rec)
	}
	if len(p.Factors) == 0 {
		return e, nil
	}

	first := p.Factors[0]
	rest := symbolic.Mul(p.Factors[1:]...)
	if raw, ok := first.(*symbolic.RawOperator); ok {
		if r, isProd := rest.(*symbolic.Product); isProd && len(r.Factors) > 1 {
			warnf("binding %s to more than one operand in a product is ambiguous - "+
				"use the parenthesized form instead", raw.Op.String())
		}
		operand, err := rec(rest)
		if err != nil {
			return nil, err
		}
		return symbolic.Apply(raw.Op, operand), nil
	}

	head, err := rec(first)
	if err != nil {
		return nil, err
	}
	tail, err := rec(rest)
	if err != nil {
		return nil, err
	}
	return symbolic.Mul(head, tail), nil
}
