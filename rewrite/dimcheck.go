package rewrite

import (
	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

// CheckDimensions verifies that every differentiation axis and every normal
// component, in operators and inside flux terms alike, fits the mesh's
// spatial dimensionality. Runs after all structural rewrites so nothing can
// reintroduce an out-of-range axis behind its back.
func CheckDimensions(e symbolic.Expr, dims int) error {
	if err := checkNormals(e, dims); err != nil {
		return err
	}
	_, err := symbolic.RewriteBindings(e, &dimChecker{dims: dims})
	return err
}

func checkNormals(e symbolic.Expr, dims int) error {
	if n, ok := e.(*symbolic.NormalComponent); ok && n.Axis >= dims {
		return &symbolic.DimensionError{Axis: n.Axis, Dimensions: dims, Node: n.String()}
	}
	_, err := symbolic.RewriteChildren(e, func(c symbolic.Expr) (symbolic.Expr, error) {
		return c, checkNormals(c, dims)
	})
	return err
}

type dimChecker struct {
	dims int
}

func (c *dimChecker) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (c *dimChecker) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *dimChecker) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	if op.SpatialAxis() >= c.dims {
		return nil, &symbolic.DimensionError{
			Axis:       op.SpatialAxis(),
			Dimensions: c.dims,
			Node:       op.String(),
		}
	}
	return c.keep(op, operand, rec)
}

func (c *dimChecker) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	if axis := flux.MaxNormalAxis(op.FluxTerm()); axis >= c.dims {
		return nil, &symbolic.DimensionError{
			Axis:       axis,
			Dimensions: c.dims,
			Node:       op.String(),
		}
	}
	return c.keep(op, operand, rec)
}

func (c *dimChecker) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}
