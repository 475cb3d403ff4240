package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

func TestContractInverseMass(t *testing.T) {
	u := &symbolic.Variable{Name: "u"}
	invM := func(e symbolic.Expr) symbolic.Expr { return symbolic.Apply(symbolic.InverseMassOp{}, e) }

	t.Run("CancelsMass", func(t *testing.T) {
		got, err := ContractInverseMass(invM(symbolic.Apply(symbolic.MassOp{}, u)))
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(u, got))
	})

	t.Run("FusesStiffnessT", func(t *testing.T) {
		got, err := ContractInverseMass(invM(symbolic.Apply(&symbolic.StiffnessTOp{Axis: 0}, u)))
		require.NoError(t, err)
		want := symbolic.Apply(&symbolic.MInvSTOp{Axis: 0}, u)
		assert.True(t, symbolic.Equal(want, got))
	})

	t.Run("LiftsInteriorFlux", func(t *testing.T) {
		got, err := ContractInverseMass(invM(symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, u)))
		require.NoError(t, err)
		b := got.(*symbolic.OperatorBinding)
		fop := b.Op.(*symbolic.FluxOp)
		assert.True(t, fop.Lift)
	})

	t.Run("LiftsBoundaryFlux", func(t *testing.T) {
		g := &symbolic.Variable{Name: "g"}
		inner := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Ext(0), Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: g, Tag: "left"},
		)
		got, err := ContractInverseMass(invM(inner))
		require.NoError(t, err)
		b := got.(*symbolic.OperatorBinding)
		fop := b.Op.(*symbolic.BoundaryFluxOp)
		assert.True(t, fop.Lift)
		assert.Equal(t, "left", fop.Tag)
	})

	t.Run("DistributesOverSums", func(t *testing.T) {
		e := invM(symbolic.Add(
			symbolic.Apply(&symbolic.StiffnessTOp{Axis: 0}, u),
			symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, u),
		))
		got, err := ContractInverseMass(e)
		require.NoError(t, err)
		s, ok := got.(*symbolic.Sum)
		require.True(t, ok)
		require.Len(t, s.Terms, 2)
		_, isMInvST := s.Terms[0].(*symbolic.OperatorBinding).Op.(*symbolic.MInvSTOp)
		assert.True(t, isMInvST)
	})

	t.Run("PullsScalarFactorsThrough", func(t *testing.T) {
		c := &symbolic.ScalarParameter{Name: "c"}
		e := invM(symbolic.Mul(c, symbolic.Apply(&symbolic.StiffnessTOp{Axis: 0}, u)))
		got, err := ContractInverseMass(e)
		require.NoError(t, err)
		want := symbolic.Mul(c, symbolic.Apply(&symbolic.MInvSTOp{Axis: 0}, u))
		assert.True(t, symbolic.Equal(want, got))
	})

	t.Run("RewrapsUncontractible", func(t *testing.T) {
		e := invM(u)
		got, err := ContractInverseMass(e)
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(e, got))
	})

	t.Run("AlreadyLiftedFluxRewraps", func(t *testing.T) {
		e := invM(symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0), Lift: true}, u))
		got, err := ContractInverseMass(e)
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(e, got))
	})
}
