package symbolic

import "sort"

// DepSet is a set of dependency leaves keyed by structural encoding.
type DepSet map[string]Expr

// Intersect returns the encodings present in both sets, sorted.
func (d DepSet) Intersect(other DepSet) []string {
	var shared []string
	for k := range d {
		if _, ok := other[k]; ok {
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)
	return shared
}

// Empty reports whether the set has no members.
func (d DepSet) Empty() bool { return len(d) == 0 }

func (d DepSet) add(e Expr) { d[Encode(e)] = e }

// Dependencies collects the dependency leaves of e: variables, scalar
// parameters and, when includeBindings is set, whole operator bindings
// (treated as opaque data sources the way the boundary-to-flux rewriter
// needs them).
func Dependencies(e Expr, includeBindings bool) DepSet {
	deps := make(DepSet)
	collectDeps(e, includeBindings, deps)
	return deps
}

func collectDeps(e Expr, includeBindings bool, deps DepSet) {
	switch ee := e.(type) {
	case Constant, *NormalComponent, *GeometricFactor, *RawOperator:
		// no dependencies
	case *Variable:
		deps.add(ee)
	case *ScalarParameter:
		deps.add(ee)
	case *Sum:
		for _, t := range ee.Terms {
			collectDeps(t, includeBindings, deps)
		}
	case *Product:
		for _, f := range ee.Factors {
			collectDeps(f, includeBindings, deps)
		}
	case *Vector:
		for _, c := range ee.Components {
			collectDeps(c, includeBindings, deps)
		}
	case *OperatorBinding:
		if includeBindings {
			deps.add(ee)
		} else {
			collectDeps(ee.Operand, includeBindings, deps)
		}
	case *BoundaryPair:
		collectDeps(ee.Interior, includeBindings, deps)
		collectDeps(ee.Boundary, includeBindings, deps)
	case *CommonSubexpression:
		collectDeps(ee.Child, includeBindings, deps)
	}
}

// HasFreeVariables reports whether e depends on any variable or scalar
// parameter. Expressions without free variables are foldable to literals.
func HasFreeVariables(e Expr) bool {
	return !Dependencies(e, false).Empty()
}
