package rewrite

import "github.com/mrvortex/hedge/symbolic"

// RemoveQuadUpsamplers strips quadrature upsampling bindings according to
// the configured per-tag minimum degrees: a tag with no configured minimum
// degree falls back to nodal evaluation with a warning (a configuration
// gap, not a semantic error); a configured degree of zero strips the
// upsampler silently; any positive degree keeps it.
func RemoveQuadUpsamplers(e symbolic.Expr, minDegrees map[string]int, warnf func(format string, args ...any)) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &upsamplerRemover{minDegrees: minDegrees, warnf: warnf})
}

type upsamplerRemover struct {
	minDegrees map[string]int
	warnf      func(format string, args ...any)
}

func (u *upsamplerRemover) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (u *upsamplerRemover) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return u.keep(op, operand, rec)
}

func (u *upsamplerRemover) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return u.keep(op, operand, rec)
}

func (u *upsamplerRemover) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return u.keep(op, operand, rec)
}

func (u *upsamplerRemover) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	up, isUpsampler := op.(*symbolic.QuadUpsampleOp)
	if !isUpsampler {
		return u.keep(op, operand, rec)
	}
	minDegree, configured := u.minDegrees[up.QuadTag]
	if !configured {
		u.warnf("no minimum degree for quadrature tag %q specified - "+
			"falling back to nodal evaluation", up.QuadTag)
		return rec(operand)
	}
	if minDegree == 0 {
		return rec(operand)
	}
	return u.keep(op, operand, rec)
}
