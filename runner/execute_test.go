package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/rewrite"
	"github.com/mrvortex/hedge/symbolic"
)

func compile(t *testing.T, e symbolic.Expr, m *mesh.Mesh, opts rewrite.Options) *rewrite.CompiledTree {
	t.Helper()
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	tree, err := rewrite.Compile(e, symbolic.NewTypeDict(), m, opts)
	require.NoError(t, err)
	return tree
}

func run(t *testing.T, tree *rewrite.CompiledTree, m *mesh.Mesh, b *Bindings, cfg Config) [][]float64 {
	t.Helper()
	out, err := Execute(context.Background(), tree, m, b, cfg)
	require.NoError(t, err)
	return out
}

func ones(n int) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = 1
	}
	return f
}

func TestMassIntegratesElementMeasures(t *testing.T) {
	const (
		K     = 4
		order = 3
	)
	m := mesh.NewLineMesh(K, order, 0, 2)
	u := &symbolic.Variable{Name: "u"}

	for _, contract := range []bool{false, true} {
		tree := compile(t, symbolic.Apply(symbolic.MassOp{}, u), m, rewrite.Options{ContractInverseMass: contract})
		out := run(t, tree, m, &Bindings{Fields: map[string][]float64{"u": ones(m.NumNodes)}}, Config{})
		require.Len(t, out, 1)

		total := 0.0
		for _, v := range out[0] {
			total += v
		}
		assert.InDeltaf(t, 2, total, 1e-10, "sum of M*1 is the domain length (contraction %v)", contract)
	}
}

func TestInverseMassCancelsMass(t *testing.T) {
	m := mesh.NewLineMesh(3, 2, -1, 1)
	x := mesh.LineNodes(3, 2, -1, 1)
	u := &symbolic.Variable{Name: "u"}
	e := symbolic.Apply(symbolic.InverseMassOp{}, symbolic.Apply(symbolic.MassOp{}, u))

	for _, contract := range []bool{false, true} {
		tree := compile(t, e, m, rewrite.Options{ContractInverseMass: contract})
		out := run(t, tree, m, &Bindings{Fields: map[string][]float64{"u": x}}, Config{})
		require.Len(t, out, 1)
		for i := range x {
			assert.InDeltaf(t, x[i], out[0][i], 1e-9, "node %d, contraction %v", i, contract)
		}
	}
}

func TestDerivativeOfCoordinateField(t *testing.T) {
	const (
		K     = 5
		order = 4
	)
	m := mesh.NewLineMesh(K, order, 0, 1)
	x := mesh.LineNodes(K, order, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	tree := compile(t, symbolic.Apply(&symbolic.DiffOp{Axis: 0}, u), m, rewrite.Options{})

	out := run(t, tree, m, &Bindings{Fields: map[string][]float64{"u": x}}, Config{Workers: 2})
	for i, v := range out[0] {
		assert.InDeltaf(t, 1, v, 1e-8, "d(x)/dx at node %d", i)
	}
}

func TestJoinedDerivativesAgree(t *testing.T) {
	m := mesh.NewLineMesh(4, 2, 0, 1)
	x := mesh.LineNodes(4, 2, 0, 1)
	a := &symbolic.Variable{Name: "a"}
	b := &symbolic.Variable{Name: "b"}
	d0 := &symbolic.DiffOp{Axis: 0}

	split := symbolic.Add(symbolic.Apply(d0, a), symbolic.Apply(d0, b))
	joined := symbolic.Apply(d0, symbolic.Add(a, b))

	fa := x
	fb := make([]float64, len(x))
	for i, xi := range x {
		fb[i] = xi * xi
	}
	bind := &Bindings{Fields: map[string][]float64{"a": fa, "b": fb}}

	outSplit := run(t, compile(t, split, m, rewrite.Options{}), m, bind, Config{})
	outJoined := run(t, compile(t, joined, m, rewrite.Options{}), m, bind, Config{})
	for i := range outSplit[0] {
		assert.InDelta(t, outJoined[0][i], outSplit[0][i], 1e-9)
	}
}

func TestJumpFluxOfContinuousFieldVanishes(t *testing.T) {
	m := mesh.NewLineMesh(4, 3, 0, 1)
	x := mesh.LineNodes(4, 3, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	tree := compile(t, symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, u), m, rewrite.Options{})

	out := run(t, tree, m, &Bindings{Fields: map[string][]float64{"u": x}}, Config{})
	for i, v := range out[0] {
		assert.InDeltaf(t, 0, v, 1e-12, "node %d", i)
	}
}

func TestBoundaryFluxBCSubstitutionEquivalence(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	x := mesh.LineNodes(2, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	g := &symbolic.Variable{Name: "g"}
	central := flux.Mul(flux.Avg(0), &flux.Normal{Axis: 0})

	// Tree A: exterior state 2g written symbolically, substituted into the
	// kernel at compile time. Tree B: exterior state supplied as data.
	treeA := compile(t, symbolic.Apply(
		&symbolic.BoundaryFluxOp{Flux: central, Tag: mesh.LineLeftTag},
		&symbolic.BoundaryPair{
			Interior: u,
			Boundary: symbolic.Mul(symbolic.Constant(2), g),
			Tag:      mesh.LineLeftTag,
		},
	), m, rewrite.Options{})
	treeB := compile(t, symbolic.Apply(
		&symbolic.BoundaryFluxOp{Flux: central, Tag: mesh.LineLeftTag},
		&symbolic.BoundaryPair{Interior: u, Boundary: g, Tag: mesh.LineLeftTag},
	), m, rewrite.Options{})

	gData := []float64{0.7}
	doubled := []float64{1.4}

	outA := run(t, treeA, m, &Bindings{
		Fields:   map[string][]float64{"u": x},
		Boundary: map[string]map[string][]float64{mesh.LineLeftTag: {"g": gData}},
	}, Config{})
	outB := run(t, treeB, m, &Bindings{
		Fields:   map[string][]float64{"u": x},
		Boundary: map[string]map[string][]float64{mesh.LineLeftTag: {"g": doubled}},
	}, Config{})

	for i := range outA[0] {
		assert.InDelta(t, outB[0][i], outA[0][i], 1e-12)
	}
}

func TestVectorRootsAndScalarParameters(t *testing.T) {
	m := mesh.NewLineMesh(2, 2, 0, 1)
	x := mesh.LineNodes(2, 2, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	c := &symbolic.ScalarParameter{Name: "c"}

	root := symbolic.NewVector(
		symbolic.Mul(c, u),
		symbolic.Add(u, symbolic.Constant(1)),
	)
	tree := compile(t, root, m, rewrite.Options{})

	out := run(t, tree, m, &Bindings{
		Fields:  map[string][]float64{"u": x},
		Scalars: map[string]float64{"c": -2},
	}, Config{})
	require.Len(t, out, 2)
	for i, xi := range x {
		assert.InDelta(t, -2*xi, out[0][i], 1e-12)
		assert.InDelta(t, xi+1, out[1][i], 1e-12)
	}
}

func TestCommonSubexpressionMemoization(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	x := mesh.LineNodes(2, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	shared := &symbolic.CommonSubexpression{Child: symbolic.Apply(symbolic.MassOp{}, u), Name: "mu"}
	tree := compile(t, symbolic.Add(shared, shared), m, rewrite.Options{})

	single := compile(t, symbolic.Apply(symbolic.MassOp{}, u), m, rewrite.Options{})
	bind := &Bindings{Fields: map[string][]float64{"u": x}}

	out := run(t, tree, m, bind, Config{})
	ref := run(t, single, m, bind, Config{})
	for i := range out[0] {
		assert.InDelta(t, 2*ref[0][i], out[0][i], 1e-12)
	}
}

func TestElementwiseMax(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	tree := compile(t, symbolic.Apply(symbolic.ElementwiseMaxOp{}, u), m, rewrite.Options{})

	out := run(t, tree, m, &Bindings{
		Fields: map[string][]float64{"u": {3, -1, 0, 7}},
	}, Config{})
	assert.Equal(t, []float64{3, 3, 7, 7}, out[0])
}

func TestBoundarizeRestrictsToBoundaryNodes(t *testing.T) {
	m := mesh.NewLineMesh(3, 1, 0, 1)
	x := mesh.LineNodes(3, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	tree := compile(t, symbolic.Apply(&symbolic.BoundarizeOp{Tag: mesh.LineRightTag}, u), m, rewrite.Options{})

	out := run(t, tree, m, &Bindings{Fields: map[string][]float64{"u": x}}, Config{})
	require.Len(t, out[0], 1)
	assert.InDelta(t, 1, out[0][0], 1e-12)
}

func TestExecutionErrors(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}

	t.Run("UnboundVariable", func(t *testing.T) {
		tree := compile(t, u, m, rewrite.Options{})
		_, err := Execute(context.Background(), tree, m, &Bindings{}, Config{})
		var uerr *symbolic.UnboundVariableError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "u", uerr.Name)
	})

	t.Run("WrongFieldLength", func(t *testing.T) {
		tree := compile(t, u, m, rewrite.Options{})
		_, err := Execute(context.Background(), tree, m, &Bindings{
			Fields: map[string][]float64{"u": {1, 2}},
		}, Config{})
		var serr *symbolic.ShapeMismatchError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("MissingBoundaryData", func(t *testing.T) {
		g := &symbolic.Variable{Name: "g"}
		tree := compile(t, symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Ext(0), Tag: mesh.LineLeftTag},
			&symbolic.BoundaryPair{Interior: u, Boundary: g, Tag: mesh.LineLeftTag},
		), m, rewrite.Options{})
		_, err := Execute(context.Background(), tree, m, &Bindings{
			Fields: map[string][]float64{"u": make([]float64, m.NumNodes)},
		}, Config{})
		var uerr *symbolic.UnboundVariableError
		require.ErrorAs(t, err, &uerr)
	})
}

func TestLiftedBoundaryFlux(t *testing.T) {
	// InvM(BFlux) compiles to a lifted boundary flux under contraction and
	// must agree with applying the inverse mass explicitly.
	m := mesh.NewLineMesh(2, 2, 0, 1)
	x := mesh.LineNodes(2, 2, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	g := &symbolic.Variable{Name: "g"}
	bflux := symbolic.Apply(
		&symbolic.BoundaryFluxOp{Flux: flux.Sub(flux.Int(0), flux.Ext(0)), Tag: mesh.LineLeftTag},
		&symbolic.BoundaryPair{Interior: u, Boundary: g, Tag: mesh.LineLeftTag},
	)
	e := symbolic.Apply(symbolic.InverseMassOp{}, bflux)

	bind := &Bindings{
		Fields:   map[string][]float64{"u": x},
		Boundary: map[string]map[string][]float64{mesh.LineLeftTag: {"g": {2.5}}},
	}

	plain := run(t, compile(t, e, m, rewrite.Options{}), m, bind, Config{})
	fused := run(t, compile(t, e, m, rewrite.Options{ContractInverseMass: true}), m, bind, Config{})
	for i := range plain[0] {
		assert.InDelta(t, plain[0][i], fused[0][i], 1e-9)
	}
}

func TestWaveVectorTemplate(t *testing.T) {
	// First-order wave system template: each component couples a volume
	// derivative of one field with a jump flux of the other. The vector
	// compile must agree with compiling each component on its own.
	m := mesh.NewLineMesh(3, 2, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	v := &symbolic.Variable{Name: "v"}
	d0 := &symbolic.DiffOp{Axis: 0}

	comp0 := symbolic.Add(symbolic.Apply(d0, v), symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, u))
	comp1 := symbolic.Add(symbolic.Apply(d0, u), symbolic.Apply(&symbolic.FluxOp{Flux: flux.Jump(0)}, v))

	fu := mesh.LineNodes(3, 2, 0, 1)
	fv := make([]float64, len(fu))
	for i, xi := range fu {
		fv[i] = 1 - xi
	}
	bind := &Bindings{Fields: map[string][]float64{"u": fu, "v": fv}}

	vecOut := run(t, compile(t, symbolic.NewVector(comp0, comp1), m, rewrite.Options{}), m, bind, Config{})
	require.Len(t, vecOut, 2)
	ref0 := run(t, compile(t, comp0, m, rewrite.Options{}), m, bind, Config{})
	ref1 := run(t, compile(t, comp1, m, rewrite.Options{}), m, bind, Config{})

	for i := range vecOut[0] {
		assert.InDelta(t, ref0[0][i], vecOut[0][i], 1e-12)
		assert.InDelta(t, ref1[0][i], vecOut[1][i], 1e-12)
	}
}

// Trees assembled by hand never went through the compile-time dimension
// pass; execution must surface the same typed error instead of indexing
// out of range inside a worker goroutine.
func TestExecuteRechecksAxes(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	u := &symbolic.Variable{Name: "u"}
	bind := &Bindings{Fields: map[string][]float64{"u": ones(m.NumNodes)}}

	t.Run("DerivativeAxis", func(t *testing.T) {
		tree := &rewrite.CompiledTree{
			Root:       symbolic.Apply(&symbolic.DiffOp{Axis: 1}, u),
			Types:      symbolic.NewTypeDict(),
			Dimensions: m.Dimensions,
		}
		_, err := Execute(context.Background(), tree, m, bind, Config{})
		var derr *symbolic.DimensionError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, 1, derr.Axis)
		assert.Equal(t, 1, derr.Dimensions)
	})

	t.Run("FluxNormalAxis", func(t *testing.T) {
		term := flux.Mul(flux.Avg(0), &flux.Normal{Axis: 2})
		prog, err := flux.Compile(term)
		require.NoError(t, err)
		tree := &rewrite.CompiledTree{
			Root:       symbolic.Apply(&symbolic.FluxOp{Flux: term, Program: prog}, u),
			Types:      symbolic.NewTypeDict(),
			Dimensions: m.Dimensions,
		}
		_, err = Execute(context.Background(), tree, m, bind, Config{})
		var derr *symbolic.DimensionError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, 2, derr.Axis)
	})
}

func TestZeroFaceBoundaryFluxExecutesToZero(t *testing.T) {
	m := mesh.NewLineMesh(2, 1, 0, 1)
	m.Boundaries["ghost"] = &mesh.Boundary{Tag: "ghost", RemoteRank: -1}

	term := flux.Sub(flux.Int(0), flux.Ext(0))
	prog, err := flux.Compile(term)
	require.NoError(t, err)

	u := &symbolic.Variable{Name: "u"}
	g := &symbolic.Variable{Name: "g"}
	tree := &rewrite.CompiledTree{
		Root: symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: term, Tag: "ghost", Program: prog},
			&symbolic.BoundaryPair{Interior: u, Boundary: g, Tag: "ghost"},
		),
		Types:      symbolic.NewTypeDict(),
		Dimensions: m.Dimensions,
	}

	out, err := Execute(context.Background(), tree, m, &Bindings{
		Fields: map[string][]float64{"u": ones(m.NumNodes)},
	}, Config{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, make([]float64, m.NumNodes), out[0])
}
