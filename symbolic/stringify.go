package symbolic

import (
	"fmt"
	"strconv"
	"strings"
)

// Stringification follows the compact notation of the operator template
// language: <StiffT0>(v[u]), BPair(a, b, tag), Normal<tag>[0].

func (c Constant) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64)
}

func (v *Variable) String() string        { return v.Name }
func (s *ScalarParameter) String() string { return fmt.Sprintf("ScalarPar[%s]", s.Name) }

func (s *Sum) String() string {
	parts := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (p *Product) String() string {
	parts := make([]string, len(p.Factors))
	for i, f := range p.Factors {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, "*") + ")"
}

func (v *Vector) String() string {
	parts := make([]string, len(v.Components))
	for i, c := range v.Components {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (r *RawOperator) String() string { return r.Op.String() }

func (b *OperatorBinding) String() string {
	return fmt.Sprintf("<%s>(%s)", b.Op.String(), b.Operand.String())
}

func (b *BoundaryPair) String() string {
	return fmt.Sprintf("BPair(%s, %s, %q)", b.Interior.String(), b.Boundary.String(), b.Tag)
}

func (n *NormalComponent) String() string {
	return fmt.Sprintf("Normal<%s>[%d]", n.Tag, n.Axis)
}

func (g *GeometricFactor) String() string {
	switch g.Kind {
	case JacobianFactor:
		return fmt.Sprintf("Jac[%s]", g.QuadTag)
	case ForwardMetric:
		return fmt.Sprintf("dx%d/dr%d[%s]", g.XYZAxis, g.RSTAxis, g.QuadTag)
	default:
		return fmt.Sprintf("dr%d/dx%d[%s]", g.RSTAxis, g.XYZAxis, g.QuadTag)
	}
}

func (c *CommonSubexpression) String() string {
	if c.Name != "" {
		return fmt.Sprintf("CSE[%s](%s)", c.Name, c.Child.String())
	}
	return fmt.Sprintf("CSE(%s)", c.Child.String())
}

func (MassOp) String() string              { return "M" }
func (InverseMassOp) String() string       { return "InvM" }
func (o *QuadMassOp) String() string       { return fmt.Sprintf("Q[%s]M", o.QuadTag) }
func (o *DiffOp) String() string           { return fmt.Sprintf("Diff%d", o.Axis) }
func (o *StiffnessTOp) String() string     { return fmt.Sprintf("StiffT%d", o.Axis) }
func (o *QuadStiffnessTOp) String() string { return fmt.Sprintf("Q[%s]StiffT%d", o.QuadTag, o.Axis) }
func (o *MInvSTOp) String() string         { return fmt.Sprintf("MInvST%d", o.Axis) }

func (o *FluxOp) String() string {
	return fmt.Sprintf("%s(%s)", fluxText(o.Lift), o.Flux.String())
}

func (o *BoundaryFluxOp) String() string {
	return fmt.Sprintf("B[%s]%s(%s)", o.Tag, fluxText(o.Lift), o.Flux.String())
}

func (o *QuadFluxOp) String() string {
	return fmt.Sprintf("Q[%s]Flux(%s)", o.QuadTag, o.Flux.String())
}

func (o *QuadBoundaryFluxOp) String() string {
	return fmt.Sprintf("Q[%s]B[%s]Flux(%s)", o.QuadTag, o.Tag, o.Flux.String())
}

func (o *BoundarizeOp) String() string    { return fmt.Sprintf("Boundarize<tag=%s>", o.Tag) }
func (ElementwiseMaxOp) String() string   { return "ElWMax" }
func (o *QuadUpsampleOp) String() string  { return fmt.Sprintf("ToQuad[%s]", o.QuadTag) }
