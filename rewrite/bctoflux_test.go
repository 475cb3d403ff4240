package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

func TestRewriteBCToFlux(t *testing.T) {
	u := &symbolic.Variable{Name: "u"}
	g := &symbolic.Variable{Name: "g"}
	central := flux.Mul(flux.Avg(0), &flux.Normal{Axis: 0})

	t.Run("SubstitutesBoundaryExpression", func(t *testing.T) {
		// Exterior state 2g - u|_left, with u fetched through the interior
		// trace and g through boundary data.
		bc := symbolic.Sub(
			symbolic.Mul(symbolic.Constant(2), g),
			symbolic.Apply(&symbolic.BoundarizeOp{Tag: "left"}, u),
		)
		e := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: central, Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: bc, Tag: "left"},
		)

		got, err := RewriteBCToFlux(e)
		require.NoError(t, err)

		b := got.(*symbolic.OperatorBinding)
		op := b.Op.(*symbolic.BoundaryFluxOp)
		bpair := b.Operand.(*symbolic.BoundaryPair)

		wantInt := symbolic.NewVector(u)
		wantBdry := symbolic.NewVector(g)
		assert.True(t, symbolic.Equal(wantInt, bpair.Interior))
		assert.True(t, symbolic.Equal(wantBdry, bpair.Boundary))

		// 0.5*(u_in + (2g - u_in))*n = g*n, checked behaviorally.
		prog, err := flux.Compile(op.Flux)
		require.NoError(t, err)
		out := prog.Eval(&flux.PointValues{
			Interior: []float64{3},
			Exterior: []float64{2},
			Normal:   []float64{-1},
		})
		assert.InDelta(t, -2, out, 1e-14)
	})

	t.Run("NormalComponentsLowerToFluxNormals", func(t *testing.T) {
		bc := symbolic.Mul(g, &symbolic.NormalComponent{Tag: "left", Axis: 0})
		e := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Ext(0), Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: bc, Tag: "left"},
		)
		got, err := RewriteBCToFlux(e)
		require.NoError(t, err)

		op := got.(*symbolic.OperatorBinding).Op.(*symbolic.BoundaryFluxOp)
		prog, err := flux.Compile(op.Flux)
		require.NoError(t, err)
		out := prog.Eval(&flux.PointValues{
			Interior: []float64{0},
			Exterior: []float64{5},
			Normal:   []float64{-1},
		})
		assert.InDelta(t, -5, out, 1e-14)
	})

	t.Run("SharedDependenciesConflict", func(t *testing.T) {
		e := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: central, Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: symbolic.Mul(u, g), Tag: "left"},
		)
		_, err := RewriteBCToFlux(e)
		var conflict *symbolic.DependencyConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "left", conflict.Tag)
		assert.Equal(t, []string{"u"}, conflict.Shared)
	})

	t.Run("TagMismatchFails", func(t *testing.T) {
		bc := &symbolic.NormalComponent{Tag: "right", Axis: 0}
		e := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Ext(0), Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: bc, Tag: "left"},
		)
		_, err := RewriteBCToFlux(e)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disagree")
	})

	t.Run("ZeroBoundaryFluxFolds", func(t *testing.T) {
		// The flux reads only Ext(0); a zero boundary expression zeroes it.
		e := symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Mul(flux.Ext(0), &flux.Normal{Axis: 0}), Tag: "left"},
			&symbolic.BoundaryPair{Interior: u, Boundary: symbolic.Constant(0), Tag: "left"},
		)
		got, err := RewriteBCToFlux(e)
		require.NoError(t, err)
		assert.True(t, symbolic.IsZero(got))
	})

	t.Run("InteriorFluxUntouched", func(t *testing.T) {
		e := symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, u)
		got, err := RewriteBCToFlux(e)
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(e, got))
	})
}
