package symbolic

import (
	"fmt"
	"strings"
)

// DependencyConflictError reports a boundary pair whose interior and
// boundary sides share dependency leaves, making interior/boundary usage
// ambiguous.
type DependencyConflictError struct {
	Tag    string
	Shared []string
}

func (e *DependencyConflictError) Error() string {
	return fmt.Sprintf("boundary pair %q: quantities used as both boundary and volume data: %s",
		e.Tag, strings.Join(e.Shared, ", "))
}

// DimensionError reports a differentiation or normal-component axis at or
// beyond the mesh's spatial dimensionality.
type DimensionError struct {
	Axis       int
	Dimensions int
	Node       string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: axis %d out of range for a %d-dimensional mesh",
		e.Node, e.Axis, e.Dimensions)
}

// UnresolvedBoundaryTagError reports a boundary tag the mesh (or the
// execution environment) cannot resolve.
type UnresolvedBoundaryTagError struct {
	Tag    string
	Reason string
}

func (e *UnresolvedBoundaryTagError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unresolved boundary tag %q", e.Tag)
	}
	return fmt.Sprintf("unresolved boundary tag %q: %s", e.Tag, e.Reason)
}

// UnboundVariableError reports a variable or scalar parameter with no entry
// in the execution bindings.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable %q", e.Name)
}

// ShapeMismatchError reports an operator applied to an operand of the wrong
// rank or length.
type ShapeMismatchError struct {
	Context string
	Want    int
	Got     int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch, want length %d, got %d",
		e.Context, e.Want, e.Got)
}
