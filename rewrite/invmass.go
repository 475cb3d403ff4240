package rewrite

import "github.com/mrvortex/hedge/symbolic"

// ContractInverseMass fuses inverse-mass applications into the operators
// they wrap: InvM(M(u)) cancels, InvM(StiffT_k(u)) becomes the fused
// MInvST_k operator, and InvM over a non-lifted flux becomes the lifted
// flux variant. The contraction distributes over sums and pulls scalar
// factors out of products so the fusion opportunities behind them stay
// visible.
func ContractInverseMass(e symbolic.Expr) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &invMassContractor{})
}

type invMassContractor struct{}

func (c *invMassContractor) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (c *invMassContractor) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	if _, ok := op.(symbolic.InverseMassOp); !ok {
		return c.keep(op, operand, rec)
	}
	return c.contract(operand, rec)
}

func (c *invMassContractor) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *invMassContractor) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *invMassContractor) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

// contract rewrites InvM(e). Anything that cannot be fused is rewrapped in
// an explicit inverse-mass binding.
func (c *invMassContractor) contract(e symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	rewrap := func() (symbolic.Expr, error) {
		inner, err := rec(e)
		if err != nil {
			return nil, err
		}
		return symbolic.Apply(symbolic.InverseMassOp{}, inner), nil
	}

	switch ee := e.(type) {
	case *symbolic.OperatorBinding:
		switch inner := ee.Op.(type) {
		case symbolic.MassOp:
			return rec(ee.Operand)
		case *symbolic.StiffnessTOp:
			operand, err := rec(ee.Operand)
			if err != nil {
				return nil, err
			}
			return symbolic.Apply(&symbolic.MInvSTOp{Axis: inner.Axis}, operand), nil
		case *symbolic.FluxOp:
			if inner.Lift {
				return rewrap()
			}
			operand, err := rec(ee.Operand)
			if err != nil {
				return nil, err
			}
			return symbolic.Apply(&symbolic.FluxOp{Flux: inner.Flux, Lift: true}, operand), nil
		case *symbolic.BoundaryFluxOp:
			if inner.Lift {
				return rewrap()
			}
			operand, err := rec(ee.Operand)
			if err != nil {
				return nil, err
			}
			lifted := &symbolic.BoundaryFluxOp{Flux: inner.Flux, Tag: inner.Tag, Lift: true}
			return symbolic.Apply(lifted, operand), nil
		default:
			return rewrap()
		}

	case *symbolic.Sum:
		terms := make([]symbolic.Expr, 0, len(ee.Terms))
		for _, t := range ee.Terms {
			ct, err := c.contract(t, rec)
			if err != nil {
				return nil, err
			}
			terms = append(terms, ct)
		}
		return symbolic.Add(terms...), nil

	case *symbolic.Product:
		// InvM commutes with scalar factors. Only a lone non-scalar factor
		// can be contracted into; two or more stay wrapped.
		var scalars []symbolic.Expr
		var rest []symbolic.Expr
		for _, f := range ee.Factors {
			if isScalarFactor(f) {
				scalars = append(scalars, f)
			} else {
				rest = append(rest, f)
			}
		}
		if len(rest) != 1 || len(scalars) == 0 {
			return rewrap()
		}
		inner, err := c.contract(rest[0], rec)
		if err != nil {
			return nil, err
		}
		return symbolic.Mul(append(scalars, inner)...), nil

	default:
		return rewrap()
	}
}

func isScalarFactor(e symbolic.Expr) bool {
	switch e.(type) {
	case symbolic.Constant, *symbolic.ScalarParameter:
		return true
	}
	return false
}
