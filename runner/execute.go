// Package runner executes compiled operator trees against bound field data
// on a concrete mesh. Evaluation walks the tree once per call with a memo
// table, so shared sub-expressions and repeated bindings compute once.
// Element-group work runs data-parallel; face loops stay serial because a
// directed face writes only into its owning element.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/rewrite"
	"github.com/mrvortex/hedge/symbolic"
)

// Execute evaluates a compiled tree. A Vector root yields one output array
// per component; any other root yields a single array. Outputs are always
// freshly allocated.
func Execute(ctx context.Context, tree *rewrite.CompiledTree, m *mesh.Mesh, b *Bindings, cfg Config) ([][]float64, error) {
	ev := &evaluator{m: m, b: b, cfg: cfg, memo: make(map[string]value)}

	roots := []symbolic.Expr{tree.Root}
	if v, ok := tree.Root.(*symbolic.Vector); ok {
		roots = v.Components
	}

	outs := make([][]float64, len(roots))
	for i, r := range roots {
		v, err := ev.eval(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("evaluating component %d: %w", i, err)
		}
		outs[i] = v.materialize(m.NumNodes)
	}
	return outs, nil
}

// value is either a scalar or a field array. Boundarize produces fields
// shorter than the volume; mixing lengths in arithmetic is a shape error.
type value struct {
	field  []float64
	scalar float64
}

func scalarValue(s float64) value  { return value{scalar: s} }
func fieldValue(f []float64) value { return value{field: f} }
func (v value) isScalar() bool     { return v.field == nil }

// materialize returns a fresh array, broadcasting scalars to length n.
// Fields keep their own length; Boundarize results are shorter than the
// volume and stay that way.
func (v value) materialize(n int) []float64 {
	if v.isScalar() {
		out := make([]float64, n)
		for i := range out {
			out[i] = v.scalar
		}
		return out
	}
	out := make([]float64, len(v.field))
	copy(out, v.field)
	return out
}

type evaluator struct {
	m    *mesh.Mesh
	b    *Bindings
	cfg  Config
	memo map[string]value
}

func (ev *evaluator) eval(ctx context.Context, e symbolic.Expr) (value, error) {
	switch ee := e.(type) {
	case symbolic.Constant:
		return scalarValue(float64(ee)), nil

	case *symbolic.ScalarParameter:
		s, err := ev.b.Scalar(ee.Name)
		if err != nil {
			return value{}, err
		}
		return scalarValue(s), nil

	case *symbolic.Variable:
		f, err := ev.b.Field(ee.Name, ev.m)
		if err != nil {
			return value{}, err
		}
		return fieldValue(f), nil

	case *symbolic.Sum:
		return ev.evalSum(ctx, ee.Terms)

	case *symbolic.Product:
		return ev.evalProduct(ctx, ee.Factors)

	case *symbolic.CommonSubexpression:
		key := symbolic.Encode(ee.Child)
		if v, ok := ev.memo[key]; ok {
			return v, nil
		}
		v, err := ev.eval(ctx, ee.Child)
		if err != nil {
			return value{}, err
		}
		ev.memo[key] = v
		return v, nil

	case *symbolic.OperatorBinding:
		return ev.evalBinding(ctx, ee)

	case *symbolic.GeometricFactor:
		return ev.evalGeometricFactor(ee)

	case *symbolic.Vector:
		return value{}, fmt.Errorf("vector expression in scalar position: %s", ee.String())
	case *symbolic.BoundaryPair:
		return value{}, fmt.Errorf("boundary pair outside a boundary flux: %s", ee.String())
	case *symbolic.RawOperator:
		return value{}, fmt.Errorf("unbound operator %s: tree was not run through the binder", ee.Op.String())
	case *symbolic.NormalComponent:
		return value{}, fmt.Errorf("normal component outside a flux term: %s", ee.String())
	default:
		return value{}, fmt.Errorf("unexpected expression node %s", e.String())
	}
}

func (ev *evaluator) evalSum(ctx context.Context, terms []symbolic.Expr) (value, error) {
	acc := 0.0
	var field []float64
	for _, t := range terms {
		v, err := ev.eval(ctx, t)
		if err != nil {
			return value{}, err
		}
		if v.isScalar() {
			acc += v.scalar
			continue
		}
		if field == nil {
			field = make([]float64, len(v.field))
			copy(field, v.field)
			continue
		}
		if len(v.field) != len(field) {
			return value{}, &symbolic.ShapeMismatchError{Context: "sum", Want: len(field), Got: len(v.field)}
		}
		floats.Add(field, v.field)
	}
	if field == nil {
		return scalarValue(acc), nil
	}
	if acc != 0 {
		floats.AddConst(acc, field)
	}
	return fieldValue(field), nil
}

func (ev *evaluator) evalProduct(ctx context.Context, factors []symbolic.Expr) (value, error) {
	acc := 1.0
	var field []float64
	for _, f := range factors {
		v, err := ev.eval(ctx, f)
		if err != nil {
			return value{}, err
		}
		if v.isScalar() {
			acc *= v.scalar
			continue
		}
		if field == nil {
			field = make([]float64, len(v.field))
			copy(field, v.field)
			continue
		}
		if len(v.field) != len(field) {
			return value{}, &symbolic.ShapeMismatchError{Context: "product", Want: len(field), Got: len(v.field)}
		}
		floats.Mul(field, v.field)
	}
	if field == nil {
		return scalarValue(acc), nil
	}
	if acc != 1 {
		floats.Scale(acc, field)
	}
	return fieldValue(field), nil
}

// evalVolumeField evaluates e and broadcasts scalars onto the volume grid.
func (ev *evaluator) evalVolumeField(ctx context.Context, e symbolic.Expr) ([]float64, error) {
	v, err := ev.eval(ctx, e)
	if err != nil {
		return nil, err
	}
	if !v.isScalar() && len(v.field) != ev.m.NumNodes {
		return nil, &symbolic.ShapeMismatchError{
			Context: "volume operand",
			Want:    ev.m.NumNodes,
			Got:     len(v.field),
		}
	}
	return v.materialize(ev.m.NumNodes), nil
}

func (ev *evaluator) evalBinding(ctx context.Context, b *symbolic.OperatorBinding) (value, error) {
	key := symbolic.Encode(b)
	if v, ok := ev.memo[key]; ok {
		return v, nil
	}

	var (
		v   value
		err error
	)
	switch op := b.Op.(type) {
	case symbolic.DiffBaseOperator:
		v, err = ev.applyDiff(ctx, op, b.Operand)
	case symbolic.FluxBaseOperator:
		v, err = ev.applyFlux(ctx, op, b.Operand)
	default:
		if b.Op.Category() == symbolic.MassBase {
			v, err = ev.applyMass(ctx, b.Op, b.Operand)
		} else {
			v, err = ev.applyTransport(ctx, b.Op, b.Operand)
		}
	}
	if err != nil {
		return value{}, err
	}
	ev.memo[key] = v
	return v, nil
}

// perGroup runs fn once per element group, in parallel up to cfg.Workers.
func (ev *evaluator) perGroup(ctx context.Context, fn func(g *mesh.ElementGroup) error) error {
	eg, _ := errgroup.WithContext(ctx)
	if ev.cfg.Workers > 0 {
		eg.SetLimit(ev.cfg.Workers)
	}
	for _, g := range ev.m.Groups {
		eg.Go(func() error { return fn(g) })
	}
	return eg.Wait()
}

func (ev *evaluator) applyMass(ctx context.Context, op symbolic.Operator, operand symbolic.Expr) (value, error) {
	u, err := ev.evalVolumeField(ctx, operand)
	if err != nil {
		return value{}, err
	}
	inverse := false
	if _, ok := op.(symbolic.InverseMassOp); ok {
		inverse = true
	}

	out := ev.m.VolumeZeros()
	err = ev.perGroup(ctx, func(g *mesh.ElementGroup) error {
		matrix := g.Mass
		if inverse {
			matrix = g.InvMass
		}
		for e := 0; e < g.Count; e++ {
			lo, hi := g.NodeRange(e)
			dst := mat.NewVecDense(g.Np, out[lo:hi])
			dst.MulVec(matrix, mat.NewVecDense(g.Np, u[lo:hi]))
			scale := g.Jacobian[e]
			if inverse {
				scale = 1 / scale
			}
			floats.Scale(scale, out[lo:hi])
		}
		return nil
	})
	if err != nil {
		return value{}, err
	}
	return fieldValue(out), nil
}

func (ev *evaluator) applyDiff(ctx context.Context, op symbolic.DiffBaseOperator, operand symbolic.Expr) (value, error) {
	u, err := ev.evalVolumeField(ctx, operand)
	if err != nil {
		return value{}, err
	}

	var pick func(g *mesh.ElementGroup, rst int) *mat.Dense
	withJacobian := false
	switch op.(type) {
	case *symbolic.DiffOp:
		pick = func(g *mesh.ElementGroup, rst int) *mat.Dense { return g.Diff[rst] }
	case *symbolic.StiffnessTOp, *symbolic.QuadStiffnessTOp:
		pick = func(g *mesh.ElementGroup, rst int) *mat.Dense { return g.StiffT[rst] }
		withJacobian = true
	case *symbolic.MInvSTOp:
		pick = func(g *mesh.ElementGroup, rst int) *mat.Dense { return g.MInvST[rst] }
	default:
		return value{}, fmt.Errorf("unhandled differentiation operator %s", op.String())
	}

	// Re-check the axis here: a tree assembled outside the rewrite pipeline
	// never went through its dimension pass.
	axis := op.SpatialAxis()
	if axis >= ev.m.Dimensions {
		return value{}, &symbolic.DimensionError{Axis: axis, Dimensions: ev.m.Dimensions, Node: op.String()}
	}
	out := ev.m.VolumeZeros()
	err = ev.perGroup(ctx, func(g *mesh.ElementGroup) error {
		ref := make([]float64, g.Np)
		for rst := range g.Metric {
			matrix := pick(g, rst)
			for e := 0; e < g.Count; e++ {
				lo, hi := g.NodeRange(e)
				dst := mat.NewVecDense(g.Np, ref)
				dst.MulVec(matrix, mat.NewVecDense(g.Np, u[lo:hi]))
				coeff := g.Metric[rst][axis][e]
				if withJacobian {
					coeff *= g.Jacobian[e]
				}
				floats.AddScaled(out[lo:hi], coeff, ref)
			}
		}
		return nil
	})
	if err != nil {
		return value{}, err
	}
	return fieldValue(out), nil
}

func (ev *evaluator) applyTransport(ctx context.Context, op symbolic.Operator, operand symbolic.Expr) (value, error) {
	switch oo := op.(type) {
	case *symbolic.BoundarizeOp:
		bd := ev.m.Boundary(oo.Tag)
		if bd == nil {
			return value{}, &symbolic.UnresolvedBoundaryTagError{Tag: oo.Tag, Reason: "mesh has no such boundary"}
		}
		u, err := ev.evalVolumeField(ctx, operand)
		if err != nil {
			return value{}, err
		}
		out := make([]float64, bd.NumNodes())
		for i, vi := range bd.VolumeIndices {
			out[i] = u[vi]
		}
		return fieldValue(out), nil

	case symbolic.ElementwiseMaxOp:
		u, err := ev.evalVolumeField(ctx, operand)
		if err != nil {
			return value{}, err
		}
		out := ev.m.VolumeZeros()
		err = ev.perGroup(ctx, func(g *mesh.ElementGroup) error {
			for e := 0; e < g.Count; e++ {
				lo, hi := g.NodeRange(e)
				mx := floats.Max(u[lo:hi])
				for i := lo; i < hi; i++ {
					out[i] = mx
				}
			}
			return nil
		})
		if err != nil {
			return value{}, err
		}
		return fieldValue(out), nil

	case *symbolic.QuadUpsampleOp:
		// Quadrature grids coincide with nodal grids in this engine; the
		// upsample is a copy.
		u, err := ev.evalVolumeField(ctx, operand)
		if err != nil {
			return value{}, err
		}
		return fieldValue(u), nil

	default:
		return value{}, fmt.Errorf("unhandled transport operator %s", op.String())
	}
}

func (ev *evaluator) evalGeometricFactor(g *symbolic.GeometricFactor) (value, error) {
	out := ev.m.VolumeZeros()
	for _, grp := range ev.m.Groups {
		for e := 0; e < grp.Count; e++ {
			lo, hi := grp.NodeRange(e)
			var c float64
			switch g.Kind {
			case symbolic.JacobianFactor:
				c = grp.Jacobian[e]
			case symbolic.InverseMetric:
				if g.RSTAxis >= len(grp.Metric) || g.XYZAxis >= len(grp.Metric[g.RSTAxis]) {
					return value{}, &symbolic.DimensionError{
						Axis:       g.XYZAxis,
						Dimensions: len(grp.Metric),
						Node:       g.String(),
					}
				}
				c = grp.Metric[g.RSTAxis][g.XYZAxis][e]
			default:
				return value{}, fmt.Errorf("geometric factor %s not available on this mesh", g.String())
			}
			for i := lo; i < hi; i++ {
				out[i] = c
			}
		}
	}
	return fieldValue(out), nil
}
