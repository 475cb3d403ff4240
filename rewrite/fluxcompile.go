package rewrite

import (
	"fmt"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/symbolic"
)

// CompileFluxKernels attaches a compiled per-face-node program to every
// flux operator in the tree. Final pass; after it no flux operator carries
// a nil kernel.
func CompileFluxKernels(e symbolic.Expr) (symbolic.Expr, error) {
	return symbolic.RewriteBindings(e, &fluxCompiler{})
}

type fluxCompiler struct{}

func (c *fluxCompiler) keep(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	return symbolic.Apply(op, operand), nil
}

func (c *fluxCompiler) MassBase(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *fluxCompiler) DiffBase(op symbolic.DiffBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *fluxCompiler) Transport(op symbolic.Operator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	return c.keep(op, operand, rec)
}

func (c *fluxCompiler) FluxBase(op symbolic.FluxBaseOperator, operand symbolic.Expr, rec symbolic.RecFunc) (symbolic.Expr, error) {
	operand, err := rec(operand)
	if err != nil {
		return nil, err
	}
	if op.Kernel() != nil {
		return symbolic.Apply(op, operand), nil
	}
	prog, err := flux.Compile(op.FluxTerm())
	if err != nil {
		return nil, fmt.Errorf("compiling flux kernel for %s: %w", op.String(), err)
	}
	return symbolic.Apply(op.WithKernel(prog), operand), nil
}
