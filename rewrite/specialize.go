package rewrite

import (
	"fmt"

	"github.com/mrvortex/hedge/symbolic"
)

// Specialize substitutes quadrature-grid operator variants for generic ones,
// guided by the externally produced TypeDict: Mass and StiffnessT bound to a
// quadrature-represented operand become their quadrature-tagged siblings,
// and flux operators select their {interior, boundary} × {nodal, quadrature}
// variant from the shared representation tag of their operands.
func Specialize(e symbolic.Expr, types *symbolic.TypeDict) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &specializer{types: types})
}

type specializer struct {
	types *symbolic.TypeDict
}

func (s *specializer) quadTag(e symbolic.Expr) (string, bool) {
	t, ok := s.types.Lookup(e)
	if !ok || t.Repr != symbolic.QuadratureRepr {
		return "", false
	}
	return t.QuadTag, true
}

func (s *specializer) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	tag, quad := s.quadTag(operand)
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	if _, isMass := op.(symbolic.MassOp); isMass && quad {
		return symbolic.Apply(&symbolic.QuadMassOp{QuadTag: tag}, operand), nil
	}
	return symbolic.Apply(op, operand), nil
}

func (s *specializer) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	tag, quad := s.quadTag(operand)
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	if st, isStiffT := op.(*symbolic.StiffnessTOp); isStiffT && quad {
		return symbolic.Apply(&symbolic.QuadStiffnessTOp{Axis: st.Axis, QuadTag: tag}, operand), nil
	}
	return symbolic.Apply(op, operand), nil
}

func (s *specializer) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	// Determine the shared representation tag over all flux operands.
	// Representation mismatches between operands are rejected by the
	// external type inference pass and are not re-validated here.
	var quadTag string
	quad := false
	note := func(e symbolic.Expr) {
		if tag, isQuad := s.quadTag(e); isQuad {
			quadTag, quad = tag, true
		}
	}
	noteAll := func(e symbolic.Expr) {
		if v, isVec := e.(*symbolic.Vector); isVec {
			for _, c := range v.Components {
				note(c)
			}
		} else {
			note(e)
		}
	}

	bpair, isBoundary := operand.(*symbolic.BoundaryPair)
	if isBoundary {
		noteAll(bpair.Interior)
		noteAll(bpair.Boundary)
	} else {
		noteAll(operand)
	}

	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}

	base, isGeneric := op.(*symbolic.FluxOp)
	if !isGeneric {
		// Already specialized; keep as is.
		return symbolic.Apply(op, operand), nil
	}

	switch {
	case isBoundary && quad:
		return symbolic.Apply(&symbolic.QuadBoundaryFluxOp{
			Flux: base.Flux, QuadTag: quadTag, Tag: bpair.Tag,
		}, operand), nil
	case isBoundary:
		return symbolic.Apply(&symbolic.BoundaryFluxOp{
			Flux: base.Flux, Tag: bpair.Tag, Lift: base.Lift,
		}, operand), nil
	case quad:
		return symbolic.Apply(&symbolic.QuadFluxOp{
			Flux: base.Flux, QuadTag: quadTag,
		}, operand), nil
	default:
		return symbolic.Apply(base, operand), nil
	}
}

func (s *specializer) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	if b, isBoundarize := op.(*symbolic.BoundarizeOp); isBoundarize {
		if _, quad := s.quadTag(operand); quad {
			return nil, fmt.Errorf("%s cannot be applied to a quadrature-represented operand - "+
				"upsample after boundarizing, not before", b.String())
		}
	}
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}
