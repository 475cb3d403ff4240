package symbolic

// Handle identifies an interned expression within one Arena.
type Handle int

// Arena interns expressions by structural encoding: each distinct sub-tree
// is stored once and later occurrences reuse its handle, so passes and the
// execution engine can compare and memoize by handle instead of re-walking
// trees. An Arena is not safe for concurrent use; each compilation or
// execution call owns its own.
type Arena struct {
	byKey map[string]Handle
	exprs []Expr
	keys  []string
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{byKey: make(map[string]Handle)}
}

// Intern returns the handle of e, storing it on first sight.
func (a *Arena) Intern(e Expr) Handle {
	key := Encode(e)
	if h, ok := a.byKey[key]; ok {
		return h
	}
	h := Handle(len(a.exprs))
	a.byKey[key] = h
	a.exprs = append(a.exprs, e)
	a.keys = append(a.keys, key)
	return h
}

// At returns the expression stored under h.
func (a *Arena) At(h Handle) Expr { return a.exprs[h] }

// Key returns the structural encoding stored under h.
func (a *Arena) Key(h Handle) string { return a.keys[h] }

// Len returns the number of distinct interned expressions.
func (a *Arena) Len() int { return len(a.exprs) }
