package symbolic

// Representation tags how a sub-expression's values are sampled.
type Representation uint8

const (
	// NodalRepr is the basis's native interpolation-point sampling.
	NodalRepr Representation = iota
	// QuadratureRepr is a higher-resolution quadrature-grid sampling.
	QuadratureRepr
	// BoundaryRepr marks values living on a tagged boundary's nodes.
	BoundaryRepr
)

// TypeTag is the inferred representation of one sub-expression.
type TypeTag struct {
	Repr        Representation
	QuadTag     string // set for QuadratureRepr
	BoundaryTag string // set for BoundaryRepr
}

// TypeDict maps sub-expressions to inferred representation tags. It is
// produced once by an external type-inference pass and read-only during
// specialization. Lookups are structural: an entry registered for one
// expression applies to every structurally equal occurrence.
type TypeDict struct {
	m map[string]TypeTag
}

// NewTypeDict returns an empty dictionary.
func NewTypeDict() *TypeDict {
	return &TypeDict{m: make(map[string]TypeTag)}
}

// Set registers the tag of e.
func (td *TypeDict) Set(e Expr, t TypeTag) {
	td.m[Encode(e)] = t
}

// Lookup returns the tag of e. Expressions without entries (boundary pairs,
// untyped literals) report ok=false and are treated as nodal.
func (td *TypeDict) Lookup(e Expr) (TypeTag, bool) {
	if td == nil || td.m == nil {
		return TypeTag{}, false
	}
	t, ok := td.m[Encode(e)]
	return t, ok
}
