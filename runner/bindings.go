package runner

import (
	"context"

	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/symbolic"
)

// Bindings supplies the data a compiled tree reads during one execution
// call. Field arrays are volume-node length; boundary arrays are keyed by
// tag and sized to the tag's boundary-node count.
type Bindings struct {
	// Fields maps variable names to volume field arrays.
	Fields map[string][]float64
	// Scalars maps scalar parameter names to values.
	Scalars map[string]float64
	// Boundary maps boundary tag to per-variable boundary data arrays.
	Boundary map[string]map[string][]float64
}

// Field returns the bound volume array for name, checked against the mesh's
// node count.
func (b *Bindings) Field(name string, m *mesh.Mesh) ([]float64, error) {
	f, ok := b.Fields[name]
	if !ok {
		return nil, &symbolic.UnboundVariableError{Name: name}
	}
	if len(f) != m.NumNodes {
		return nil, &symbolic.ShapeMismatchError{
			Context: "field " + name,
			Want:    m.NumNodes,
			Got:     len(f),
		}
	}
	return f, nil
}

// Scalar returns the bound value for a scalar parameter.
func (b *Bindings) Scalar(name string) (float64, error) {
	s, ok := b.Scalars[name]
	if !ok {
		return 0, &symbolic.UnboundVariableError{Name: name}
	}
	return s, nil
}

// Exchanger provides exterior data for rank boundaries. Exchange blocks
// until the neighbor's data for the tag is available; interior carries this
// rank's volume fields restricted to the tag's boundary nodes, and the
// returned map resolves the boundary-side variables of the tag's fluxes.
type Exchanger interface {
	Exchange(ctx context.Context, tag string, interior map[string][]float64) (map[string][]float64, error)
}

// Config controls one execution call.
type Config struct {
	// Workers bounds the number of element groups processed concurrently.
	// Zero or negative means no bound.
	Workers int
	// Exchanger serves rank-boundary tags. May be nil on unpartitioned
	// meshes; executing a remote tag without one fails.
	Exchanger Exchanger
}
