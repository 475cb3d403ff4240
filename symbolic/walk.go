package symbolic

// RecFunc recurses the surrounding rewrite into a sub-expression. Handlers
// decide where to recurse; the walker never descends into an operand on its
// own before dispatching.
type RecFunc func(Expr) (Expr, error)

// BindingHandler is implemented by passes that rewrite operator bindings.
// One handler per reducer category: omitting a category fails to satisfy
// the interface at compile time, so no pass can silently ignore a class of
// operators.
type BindingHandler interface {
	MassBase(op Operator, operand Expr, rec RecFunc) (Expr, error)
	DiffBase(op DiffBaseOperator, operand Expr, rec RecFunc) (Expr, error)
	FluxBase(op FluxBaseOperator, operand Expr, rec RecFunc) (Expr, error)
	Transport(op Operator, operand Expr, rec RecFunc) (Expr, error)
}

// RewriteBindings walks e, rebuilding every non-binding node identically
// and dispatching every OperatorBinding to the category handler of h.
func RewriteBindings(e Expr, h BindingHandler) (Expr, error) {
	rec := func(x Expr) (Expr, error) { return RewriteBindings(x, h) }
	if b, ok := e.(*OperatorBinding); ok {
		switch op := b.Op.(type) {
		case DiffBaseOperator:
			return h.DiffBase(op, b.Operand, rec)
		case FluxBaseOperator:
			return h.FluxBase(op, b.Operand, rec)
		default:
			if b.Op.Category() == MassBase {
				return h.MassBase(b.Op, b.Operand, rec)
			}
			return h.Transport(b.Op, b.Operand, rec)
		}
	}
	return RewriteChildren(e, rec)
}

// RewriteChildren rebuilds e with rec applied to each child, leaving leaves
// untouched. Sums and products re-flatten through the Add/Mul constructors.
func RewriteChildren(e Expr, rec RecFunc) (Expr, error) {
	switch ee := e.(type) {
	case *Sum:
		terms := make([]Expr, 0, len(ee.Terms))
		for _, t := range ee.Terms {
			nt, err := rec(t)
			if err != nil {
				return nil, err
			}
			terms = append(terms, nt)
		}
		return Add(terms...), nil
	case *Product:
		factors := make([]Expr, 0, len(ee.Factors))
		for _, f := range ee.Factors {
			nf, err := rec(f)
			if err != nil {
				return nil, err
			}
			factors = append(factors, nf)
		}
		return Mul(factors...), nil
	case *Vector:
		comps := make([]Expr, 0, len(ee.Components))
		for _, c := range ee.Components {
			nc, err := rec(c)
			if err != nil {
				return nil, err
			}
			comps = append(comps, nc)
		}
		return &Vector{Components: comps}, nil
	case *OperatorBinding:
		operand, err := rec(ee.Operand)
		if err != nil {
			return nil, err
		}
		return &OperatorBinding{Op: ee.Op, Operand: operand}, nil
	case *BoundaryPair:
		interior, err := rec(ee.Interior)
		if err != nil {
			return nil, err
		}
		boundary, err := rec(ee.Boundary)
		if err != nil {
			return nil, err
		}
		return &BoundaryPair{Interior: interior, Boundary: boundary, Tag: ee.Tag}, nil
	case *CommonSubexpression:
		child, err := rec(ee.Child)
		if err != nil {
			return nil, err
		}
		return &CommonSubexpression{Child: child, Name: ee.Name}, nil
	default:
		return e, nil
	}
}
