package symbolic

import (
	"fmt"
	"strings"

	"github.com/mrvortex/hedge/flux"
)

// OpCategory groups operators into the reducer categories that tree-walking
// passes dispatch on. A pass implements one handler per category instead of
// one per operator.
type OpCategory uint8

const (
	// MassBase covers Mass, InverseMass and QuadratureMass.
	MassBase OpCategory = iota
	// DiffBase covers Differentiation, StiffnessTransposed, the quadrature
	// stiffness variant and the mass-fused MInvST operator.
	DiffBase
	// FluxBase covers the four flux operators.
	FluxBase
	// Transport covers Boundarize, ElementwiseMax and QuadratureUpsample.
	Transport
)

// Operator is an immutable descriptor of a per-element or per-face
// transform. The variant set is closed; equality is by variant plus
// parameters (compiled flux kernels do not participate in equality).
type Operator interface {
	Category() OpCategory
	encode(sb *strings.Builder)
	String() string
	isOperator()
}

// DiffBaseOperator is implemented by every differentiation-base operator.
type DiffBaseOperator interface {
	Operator
	SpatialAxis() int
}

// FluxBaseOperator is implemented by every flux operator. The symbolic flux
// term is carried through the rewrite pipeline; the compiled kernel is
// attached by the final flux-compilation pass.
type FluxBaseOperator interface {
	Operator
	FluxTerm() flux.Term
	Kernel() *flux.Program
	// WithFlux returns a copy with a replaced flux term and no kernel.
	WithFlux(t flux.Term) FluxBaseOperator
	// WithKernel returns a copy carrying the compiled kernel.
	WithKernel(p *flux.Program) FluxBaseOperator
	IsLift() bool
}

// BoundaryFluxBaseOperator is the subset of flux operators integrating over
// a tagged boundary instead of interior faces.
type BoundaryFluxBaseOperator interface {
	FluxBaseOperator
	BoundaryTag() string
}

// MassOp is the per-element mass matrix.
type MassOp struct{}

// InverseMassOp is the per-element inverse mass matrix.
type InverseMassOp struct{}

// QuadMassOp is the mass operator acting on a quadrature-grid operand.
type QuadMassOp struct {
	QuadTag string
}

// DiffOp differentiates along spatial axis Axis.
type DiffOp struct {
	Axis int
}

// StiffnessTOp is the transposed stiffness operator along Axis.
type StiffnessTOp struct {
	Axis int
}

// QuadStiffnessTOp is the transposed stiffness operator acting on a
// quadrature-grid operand.
type QuadStiffnessTOp struct {
	Axis    int
	QuadTag string
}

// MInvSTOp is the inverse-mass-fused transposed stiffness operator produced
// by the inverse-mass contractor.
type MInvSTOp struct {
	Axis int
}

// FluxOp integrates a compiled flux kernel over all interior faces.
type FluxOp struct {
	Flux    flux.Term
	Lift    bool
	Program *flux.Program
}

// BoundaryFluxOp integrates a flux kernel over the faces of one boundary tag.
type BoundaryFluxOp struct {
	Flux    flux.Term
	Tag     string
	Lift    bool
	Program *flux.Program
}

// QuadFluxOp is the interior flux on a quadrature face grid.
type QuadFluxOp struct {
	Flux    flux.Term
	QuadTag string
	Program *flux.Program
}

// QuadBoundaryFluxOp is the boundary flux on a quadrature face grid.
type QuadBoundaryFluxOp struct {
	Flux    flux.Term
	QuadTag string
	Tag     string
	Program *flux.Program
}

// BoundarizeOp restricts a volume field to the node set of one boundary tag.
type BoundarizeOp struct {
	Tag string
}

// ElementwiseMaxOp broadcasts the per-element maximum over each element.
type ElementwiseMaxOp struct{}

// QuadUpsampleOp interpolates a nodal field onto the quadrature grid named
// by QuadTag.
type QuadUpsampleOp struct {
	QuadTag string
}

func (MassOp) isOperator()             {}
func (InverseMassOp) isOperator()      {}
func (*QuadMassOp) isOperator()        {}
func (*DiffOp) isOperator()            {}
func (*StiffnessTOp) isOperator()      {}
func (*QuadStiffnessTOp) isOperator()  {}
func (*MInvSTOp) isOperator()          {}
func (*FluxOp) isOperator()            {}
func (*BoundaryFluxOp) isOperator()    {}
func (*QuadFluxOp) isOperator()        {}
func (*QuadBoundaryFluxOp) isOperator() {}
func (*BoundarizeOp) isOperator()      {}
func (ElementwiseMaxOp) isOperator()   {}
func (*QuadUpsampleOp) isOperator()    {}

func (MassOp) Category() OpCategory              { return MassBase }
func (InverseMassOp) Category() OpCategory       { return MassBase }
func (*QuadMassOp) Category() OpCategory         { return MassBase }
func (*DiffOp) Category() OpCategory             { return DiffBase }
func (*StiffnessTOp) Category() OpCategory       { return DiffBase }
func (*QuadStiffnessTOp) Category() OpCategory   { return DiffBase }
func (*MInvSTOp) Category() OpCategory           { return DiffBase }
func (*FluxOp) Category() OpCategory             { return FluxBase }
func (*BoundaryFluxOp) Category() OpCategory     { return FluxBase }
func (*QuadFluxOp) Category() OpCategory         { return FluxBase }
func (*QuadBoundaryFluxOp) Category() OpCategory { return FluxBase }
func (*BoundarizeOp) Category() OpCategory       { return Transport }
func (ElementwiseMaxOp) Category() OpCategory    { return Transport }
func (*QuadUpsampleOp) Category() OpCategory     { return Transport }

func (o *DiffOp) SpatialAxis() int           { return o.Axis }
func (o *StiffnessTOp) SpatialAxis() int     { return o.Axis }
func (o *QuadStiffnessTOp) SpatialAxis() int { return o.Axis }
func (o *MInvSTOp) SpatialAxis() int         { return o.Axis }

func (o *FluxOp) FluxTerm() flux.Term             { return o.Flux }
func (o *BoundaryFluxOp) FluxTerm() flux.Term     { return o.Flux }
func (o *QuadFluxOp) FluxTerm() flux.Term         { return o.Flux }
func (o *QuadBoundaryFluxOp) FluxTerm() flux.Term { return o.Flux }

func (o *FluxOp) Kernel() *flux.Program             { return o.Program }
func (o *BoundaryFluxOp) Kernel() *flux.Program     { return o.Program }
func (o *QuadFluxOp) Kernel() *flux.Program         { return o.Program }
func (o *QuadBoundaryFluxOp) Kernel() *flux.Program { return o.Program }

func (o *FluxOp) IsLift() bool             { return o.Lift }
func (o *BoundaryFluxOp) IsLift() bool     { return o.Lift }
func (o *QuadFluxOp) IsLift() bool         { return false }
func (o *QuadBoundaryFluxOp) IsLift() bool { return false }

func (o *FluxOp) WithFlux(t flux.Term) FluxBaseOperator {
	return &FluxOp{Flux: t, Lift: o.Lift}
}

func (o *BoundaryFluxOp) WithFlux(t flux.Term) FluxBaseOperator {
	return &BoundaryFluxOp{Flux: t, Tag: o.Tag, Lift: o.Lift}
}

func (o *QuadFluxOp) WithFlux(t flux.Term) FluxBaseOperator {
	return &QuadFluxOp{Flux: t, QuadTag: o.QuadTag}
}

func (o *QuadBoundaryFluxOp) WithFlux(t flux.Term) FluxBaseOperator {
	return &QuadBoundaryFluxOp{Flux: t, QuadTag: o.QuadTag, Tag: o.Tag}
}

func (o *FluxOp) WithKernel(p *flux.Program) FluxBaseOperator {
	return &FluxOp{Flux: o.Flux, Lift: o.Lift, Program: p}
}

func (o *BoundaryFluxOp) WithKernel(p *flux.Program) FluxBaseOperator {
	return &BoundaryFluxOp{Flux: o.Flux, Tag: o.Tag, Lift: o.Lift, Program: p}
}

func (o *QuadFluxOp) WithKernel(p *flux.Program) FluxBaseOperator {
	return &QuadFluxOp{Flux: o.Flux, QuadTag: o.QuadTag, Program: p}
}

func (o *QuadBoundaryFluxOp) WithKernel(p *flux.Program) FluxBaseOperator {
	return &QuadBoundaryFluxOp{Flux: o.Flux, QuadTag: o.QuadTag, Tag: o.Tag, Program: p}
}

func (o *BoundaryFluxOp) BoundaryTag() string     { return o.Tag }
func (o *QuadBoundaryFluxOp) BoundaryTag() string { return o.Tag }

func (MassOp) encode(sb *strings.Builder)        { sb.WriteString("M") }
func (InverseMassOp) encode(sb *strings.Builder) { sb.WriteString("InvM") }
func (o *QuadMassOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "Q[%s]M", o.QuadTag)
}
func (o *DiffOp) encode(sb *strings.Builder)       { fmt.Fprintf(sb, "Diff%d", o.Axis) }
func (o *StiffnessTOp) encode(sb *strings.Builder) { fmt.Fprintf(sb, "StiffT%d", o.Axis) }
func (o *QuadStiffnessTOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "Q[%s]StiffT%d", o.QuadTag, o.Axis)
}
func (o *MInvSTOp) encode(sb *strings.Builder) { fmt.Fprintf(sb, "MInvST%d", o.Axis) }

func fluxText(lift bool) string {
	if lift {
		return "Lift"
	}
	return "Flux"
}

func (o *FluxOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "%s(%s)", fluxText(o.Lift), flux.Encode(o.Flux))
}
func (o *BoundaryFluxOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "B[%s]%s(%s)", o.Tag, fluxText(o.Lift), flux.Encode(o.Flux))
}
func (o *QuadFluxOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "Q[%s]Flux(%s)", o.QuadTag, flux.Encode(o.Flux))
}
func (o *QuadBoundaryFluxOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "Q[%s]B[%s]Flux(%s)", o.QuadTag, o.Tag, flux.Encode(o.Flux))
}
func (o *BoundarizeOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "Boundarize<tag=%s>", o.Tag)
}
func (ElementwiseMaxOp) encode(sb *strings.Builder) { sb.WriteString("ElWMax") }
func (o *QuadUpsampleOp) encode(sb *strings.Builder) {
	fmt.Fprintf(sb, "ToQuad[%s]", o.QuadTag)
}

// EncodeOperator returns the canonical encoding of op, the basis for
// operator equality.
func EncodeOperator(op Operator) string {
	var sb strings.Builder
	op.encode(&sb)
	return sb.String()
}

// OperatorsEqual reports equality by variant plus parameters.
func OperatorsEqual(a, b Operator) bool {
	return EncodeOperator(a) == EncodeOperator(b)
}
