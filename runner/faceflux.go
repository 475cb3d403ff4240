package runner

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/symbolic"
)

func (ev *evaluator) applyFlux(ctx context.Context, op symbolic.FluxBaseOperator, operand symbolic.Expr) (value, error) {
	prog := op.Kernel()
	if prog == nil {
		return value{}, fmt.Errorf("flux operator %s carries no compiled kernel", op.String())
	}
	if axis := prog.MaxNormalAxis(); axis >= ev.m.Dimensions {
		return value{}, &symbolic.DimensionError{Axis: axis, Dimensions: ev.m.Dimensions, Node: op.String()}
	}
	if bop, ok := op.(symbolic.BoundaryFluxBaseOperator); ok {
		return ev.applyBoundaryFlux(ctx, bop, prog, operand)
	}
	return ev.applyInteriorFlux(ctx, op, prog, operand)
}

func (ev *evaluator) applyInteriorFlux(ctx context.Context, op symbolic.FluxBaseOperator, prog *flux.Program, operand symbolic.Expr) (value, error) {
	fields, err := ev.evalOperandFields(ctx, operand)
	if err != nil {
		return value{}, err
	}

	out := ev.m.VolumeZeros()
	pv := flux.PointValues{
		Interior: make([]float64, len(fields)),
		Exterior: make([]float64, len(fields)),
	}
	for _, fg := range ev.m.FaceGroups {
		faceVals := make([]float64, fg.NFp)
		elemAcc := make([]float64, 0)
		for i := range fg.Faces {
			f := &fg.Faces[i]
			for p := 0; p < fg.NFp; p++ {
				for c := range fields {
					pv.Interior[c] = fields[c][f.ElementNodes[p]]
					pv.Exterior[c] = fields[c][f.NeighborNodes[p]]
				}
				pv.Normal = f.Normal
				pv.Penalty = f.Penalty
				faceVals[p] = prog.Eval(&pv)
			}
			elemAcc = ev.accumulateFace(out, f.Group, f.Element, f.FaceIndex, f.SurfaceJacobian, faceVals, elemAcc)
		}
	}

	if op.IsLift() {
		ev.liftInPlace(out)
	}
	return fieldValue(out), nil
}

func (ev *evaluator) applyBoundaryFlux(ctx context.Context, op symbolic.BoundaryFluxBaseOperator, prog *flux.Program, operand symbolic.Expr) (value, error) {
	bpair, ok := operand.(*symbolic.BoundaryPair)
	if !ok {
		return value{}, fmt.Errorf("boundary flux %s needs a boundary pair operand, got %s",
			op.String(), operand.String())
	}
	if bpair.Tag != op.BoundaryTag() {
		return value{}, fmt.Errorf("boundary flux tag %q does not match operand tag %q",
			op.BoundaryTag(), bpair.Tag)
	}

	bd := ev.m.Boundary(bpair.Tag)
	if bd.FaceCount() == 0 {
		// Nothing to integrate over. Partitioned meshes routinely compile
		// trees mentioning tags that live entirely on other ranks.
		return fieldValue(ev.m.VolumeZeros()), nil
	}

	intFields, err := ev.evalOperandFields(ctx, bpair.Interior)
	if err != nil {
		return value{}, err
	}

	var remote map[string][]float64
	if bd.RemoteRank >= 0 {
		if remote, err = ev.exchange(ctx, bd); err != nil {
			return value{}, err
		}
	}

	var bdryVals []value
	for _, comp := range operandComponents(bpair.Boundary) {
		v, err := ev.evalBoundaryExpr(ctx, comp, bd, remote)
		if err != nil {
			return value{}, err
		}
		bdryVals = append(bdryVals, v)
	}

	out := ev.m.VolumeZeros()
	pv := flux.PointValues{
		Interior: make([]float64, len(intFields)),
		Exterior: make([]float64, len(bdryVals)),
	}
	elemAcc := make([]float64, 0)
	for i := range bd.Faces {
		f := &bd.Faces[i]
		nfp := len(f.ElementNodes)
		faceVals := make([]float64, nfp)
		for p := 0; p < nfp; p++ {
			for c := range intFields {
				pv.Interior[c] = intFields[c][f.ElementNodes[p]]
			}
			for c, bv := range bdryVals {
				if bv.isScalar() {
					pv.Exterior[c] = bv.scalar
				} else {
					pv.Exterior[c] = bv.field[f.BoundaryNodes[p]]
				}
			}
			pv.Normal = f.Normal
			pv.Penalty = f.Penalty
			faceVals[p] = prog.Eval(&pv)
		}
		elemAcc = ev.accumulateFace(out, f.Group, f.Element, f.FaceIndex, f.SurfaceJacobian, faceVals, elemAcc)
	}

	if op.IsLift() {
		ev.liftInPlace(out)
	}
	return fieldValue(out), nil
}

// evalOperandFields evaluates a flux operand as a list of volume fields.
func (ev *evaluator) evalOperandFields(ctx context.Context, operand symbolic.Expr) ([][]float64, error) {
	comps := operandComponents(operand)
	fields := make([][]float64, 0, len(comps))
	for _, c := range comps {
		f, err := ev.evalVolumeField(ctx, c)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// evalBoundaryExpr evaluates one boundary-side component on the boundary
// node set of bd. For rank boundaries the variables resolve from the
// exchanged data instead of the local boundary bindings.
func (ev *evaluator) evalBoundaryExpr(ctx context.Context, e symbolic.Expr, bd *mesh.Boundary, remote map[string][]float64) (value, error) {
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
		var f []float64
		if remote != nil {
			f = remote[ee.Name]
		} else if tagged, ok := ev.b.Boundary[bd.Tag]; ok {
			f = tagged[ee.Name]
		}
		if f == nil {
			return value{}, &symbolic.UnboundVariableError{Name: ee.Name}
		}
		if len(f) != bd.NumNodes() {
			return value{}, &symbolic.ShapeMismatchError{
				Context: fmt.Sprintf("boundary field %s on tag %q", ee.Name, bd.Tag),
				Want:    bd.NumNodes(),
				Got:     len(f),
			}
		}
		return fieldValue(f), nil

	case *symbolic.Sum:
		acc := scalarValue(0)
		for _, t := range ee.Terms {
			v, err := ev.evalBoundaryExpr(ctx, t, bd, remote)
			if err != nil {
				return value{}, err
			}
			if acc, err = combine(acc, v, bd.NumNodes(), floats.Add, func(a, b float64) float64 { return a + b }); err != nil {
				return value{}, err
			}
		}
		return acc, nil

	case *symbolic.Product:
		acc := scalarValue(1)
		for _, f := range ee.Factors {
			v, err := ev.evalBoundaryExpr(ctx, f, bd, remote)
			if err != nil {
				return value{}, err
			}
			if acc, err = combine(acc, v, bd.NumNodes(), floats.Mul, func(a, b float64) float64 { return a * b }); err != nil {
				return value{}, err
			}
		}
		return acc, nil

	case *symbolic.CommonSubexpression:
		return ev.evalBoundaryExpr(ctx, ee.Child, bd, remote)

	case *symbolic.OperatorBinding:
		bop, ok := ee.Op.(*symbolic.BoundarizeOp)
		if !ok || bop.Tag != bd.Tag {
			return value{}, fmt.Errorf("operator %s in boundary data of tag %q", ee.Op.String(), bd.Tag)
		}
		u, err := ev.evalVolumeField(ctx, ee.Operand)
		if err != nil {
			return value{}, err
		}
		out := make([]float64, bd.NumNodes())
		for i, vi := range bd.VolumeIndices {
			out[i] = u[vi]
		}
		return fieldValue(out), nil

	default:
		return value{}, fmt.Errorf("expression %s is not evaluable as boundary data", e.String())
	}
}

// combine folds v into acc elementwise, broadcasting scalars to length n.
func combine(acc, v value, n int, fieldOp func(dst, s []float64), scalarOp func(a, b float64) float64) (value, error) {
	if acc.isScalar() && v.isScalar() {
		return scalarValue(scalarOp(acc.scalar, v.scalar)), nil
	}
	a := acc.materialize(n)
	if len(a) != n {
		return value{}, &symbolic.ShapeMismatchError{Context: "boundary expression", Want: n, Got: len(a)}
	}
	b := v.materialize(n)
	if len(b) != n {
		return value{}, &symbolic.ShapeMismatchError{Context: "boundary expression", Want: n, Got: len(b)}
	}
	fieldOp(a, b)
	return fieldValue(a), nil
}

// exchange performs the blocking neighbor exchange for a rank boundary,
// sending this rank's volume fields restricted to the boundary nodes.
func (ev *evaluator) exchange(ctx context.Context, bd *mesh.Boundary) (map[string][]float64, error) {
	if ev.cfg.Exchanger == nil {
		return nil, &symbolic.UnresolvedBoundaryTagError{
			Tag:    bd.Tag,
			Reason: fmt.Sprintf("rank boundary to rank %d but no exchanger configured", bd.RemoteRank),
		}
	}
	send := make(map[string][]float64, len(ev.b.Fields))
	for name, f := range ev.b.Fields {
		picked := make([]float64, bd.NumNodes())
		for i, vi := range bd.VolumeIndices {
			picked[i] = f[vi]
		}
		send[name] = picked
	}
	recv, err := ev.cfg.Exchanger.Exchange(ctx, bd.Tag, send)
	if err != nil {
		return nil, fmt.Errorf("exchanging boundary %q: %w", bd.Tag, err)
	}
	return recv, nil
}

// accumulateFace adds surfJac * FaceMass[face] * faceVals into the owning
// element's rows of out. scratch is reused across calls.
func (ev *evaluator) accumulateFace(out []float64, group, elem, face int, surfJac float64, faceVals, scratch []float64) []float64 {
	g := ev.m.Groups[group]
	if cap(scratch) < g.Np {
		scratch = make([]float64, g.Np)
	}
	scratch = scratch[:g.Np]
	dst := mat.NewVecDense(g.Np, scratch)
	dst.MulVec(g.FaceMass[face], mat.NewVecDense(len(faceVals), faceVals))
	lo, hi := g.NodeRange(elem)
	floats.AddScaled(out[lo:hi], surfJac, scratch)
	return scratch
}

// liftInPlace applies the inverse mass, with its Jacobian, to every element
// of a freshly accumulated flux field.
func (ev *evaluator) liftInPlace(out []float64) {
	for _, g := range ev.m.Groups {
		tmp := make([]float64, g.Np)
		for e := 0; e < g.Count; e++ {
			lo, hi := g.NodeRange(e)
			dst := mat.NewVecDense(g.Np, tmp)
			dst.MulVec(g.InvMass, mat.NewVecDense(g.Np, out[lo:hi]))
			scale := 1 / g.Jacobian[e]
			for i := 0; i < g.Np; i++ {
				out[lo+i] = tmp[i] * scale
			}
		}
	}
}

// operandComponents flattens a Vector operand into its component list.
func operandComponents(e symbolic.Expr) []symbolic.Expr {
	if v, ok := e.(*symbolic.Vector); ok {
		return v.Components
	}
	return []symbolic.Expr{e}
}
