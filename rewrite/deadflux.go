package rewrite

import (
	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/symbolic"
)

// KillDeadFlux replaces boundary fluxes over tags with no faces on the
// given mesh by literal zero. On partitioned meshes whole tag regions can
// land on other ranks; the surviving ranks must not pay for them.
func KillDeadFlux(e symbolic.Expr, m *mesh.Mesh) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &deadFluxKiller{m: m})
}

type deadFluxKiller struct {
	m *mesh.Mesh
}

func (k *deadFluxKiller) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (k *deadFluxKiller) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return k.keep(op, operand, rec)
}

func (k *deadFluxKiller) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return k.keep(op, operand, rec)
}

func (k *deadFluxKiller) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return k.keep(op, operand, rec)
}

func (k *deadFluxKiller) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	if bop, ok := op.(symbolic.BoundaryFluxBaseOperator); ok {
		if k.m.BoundaryFaceCount(bop.BoundaryTag()) == 0 {
			return symbolic.Constant(0), nil
		}
	}
	return k.keep(op, operand, rec)
}
