package flux

import (
	"fmt"
	"math"

	"fortio.org/safecast"
)

// UnsupportedExpressionError reports a node outside the closed flux
// coefficient language, or an illegal power exponent.
type UnsupportedExpressionError struct {
	Node   string
	Reason string
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("unsupported flux expression %s: %s", e.Node, e.Reason)
}

type opcode uint8

const (
	opConst opcode = iota
	opInterior
	opExterior
	opNormal
	opPenalty
	opAdd
	opMul
	opNeg
	opIfPos
)

type instruction struct {
	op    opcode
	index int     // component or axis for opInterior/opExterior/opNormal
	value float64 // literal for opConst, power for opPenalty
}

// Program is a compiled flux kernel: a flat postfix instruction sequence
// evaluated once per face-node pair. Immutable once compiled.
type Program struct {
	code       []instruction
	stackDepth int
}

// PointValues carries the per-face-node inputs of a kernel evaluation: the
// interior and exterior operand traces at this node, the unit outward
// normal of the face, and the face penalty base.
type PointValues struct {
	Interior []float64
	Exterior []float64
	Normal   []float64
	Penalty  float64
}

// Compile lowers t into a Program. Nodes outside the closed sub-language
// and powers with negative or non-integer exponents return
// UnsupportedExpressionError.
func Compile(t Term) (*Program, error) {
	p := &Program{}
	if err := p.emit(t); err != nil {
		return nil, err
	}
	p.stackDepth = p.measureStack()
	return p, nil
}

func (p *Program) emit(t Term) error {
	switch tt := t.(type) {
	case Constant:
		p.code = append(p.code, instruction{op: opConst, value: float64(tt)})
	case *FieldComponent:
		op := opExterior
		if tt.Interior {
			op = opInterior
		}
		p.code = append(p.code, instruction{op: op, index: tt.Index})
	case *Normal:
		p.code = append(p.code, instruction{op: opNormal, index: tt.Axis})
	case *PenaltyTerm:
		p.code = append(p.code, instruction{op: opPenalty, value: tt.Power})
	case *Sum:
		for i, c := range tt.Terms {
			if err := p.emit(c); err != nil {
				return err
			}
			if i > 0 {
				p.code = append(p.code, instruction{op: opAdd})
			}
		}
		if len(tt.Terms) == 0 {
			p.code = append(p.code, instruction{op: opConst, value: 0})
		}
	case *Product:
		for i, c := range tt.Factors {
			if err := p.emit(c); err != nil {
				return err
			}
			if i > 0 {
				p.code = append(p.code, instruction{op: opMul})
			}
		}
		if len(tt.Factors) == 0 {
			p.code = append(p.code, instruction{op: opConst, value: 1})
		}
	case *Negation:
		if err := p.emit(tt.Operand); err != nil {
			return err
		}
		p.code = append(p.code, instruction{op: opNeg})
	case *Power:
		exp, err := safecast.Convert[int](tt.Exponent)
		if err != nil || exp < 0 {
			return &UnsupportedExpressionError{
				Node:   Encode(t),
				Reason: fmt.Sprintf("power exponent must be a non-negative integer, got %g", tt.Exponent),
			}
		}
		if exp == 0 {
			p.code = append(p.code, instruction{op: opConst, value: 1})
			return nil
		}
		// x^e expands to e-1 chained multiplications.
		if err := p.emit(tt.Base); err != nil {
			return err
		}
		for i := 1; i < exp; i++ {
			if err := p.emit(tt.Base); err != nil {
				return err
			}
			p.code = append(p.code, instruction{op: opMul})
		}
	case *IfPositive:
		if err := p.emit(tt.Criterion); err != nil {
			return err
		}
		if err := p.emit(tt.Then); err != nil {
			return err
		}
		if err := p.emit(tt.Else); err != nil {
			return err
		}
		p.code = append(p.code, instruction{op: opIfPos})
	default:
		return &UnsupportedExpressionError{
			Node:   Encode(t),
			Reason: "node kind outside the flux coefficient language",
		}
	}
	return nil
}

func (p *Program) measureStack() int {
	depth, max := 0, 0
	for _, in := range p.code {
		switch in.op {
		case opAdd, opMul:
			depth--
		case opIfPos:
			depth -= 2
		case opNeg:
			// depth unchanged
		default:
			depth++
		}
		if depth > max {
			max = depth
		}
	}
	return max
}

// Eval runs the program against one face-node pair.
func (p *Program) Eval(pv *PointValues) float64 {
	stack := make([]float64, 0, p.stackDepth)
	for _, in := range p.code {
		switch in.op {
		case opConst:
			stack = append(stack, in.value)
		case opInterior:
			stack = append(stack, pv.Interior[in.index])
		case opExterior:
			stack = append(stack, pv.Exterior[in.index])
		case opNormal:
			stack = append(stack, pv.Normal[in.index])
		case opPenalty:
			stack = append(stack, math.Pow(pv.Penalty, in.value))
		case opAdd:
			n := len(stack)
			stack[n-2] += stack[n-1]
			stack = stack[:n-1]
		case opMul:
			n := len(stack)
			stack[n-2] *= stack[n-1]
			stack = stack[:n-1]
		case opNeg:
			stack[len(stack)-1] = -stack[len(stack)-1]
		case opIfPos:
			n := len(stack)
			crit, then, els := stack[n-3], stack[n-2], stack[n-1]
			if crit > 0 {
				stack[n-3] = then
			} else {
				stack[n-3] = els
			}
			stack = stack[:n-2]
		}
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[0]
}

// Len returns the instruction count, a proxy for kernel cost.
func (p *Program) Len() int { return len(p.code) }

// MaxNormalAxis returns the largest normal axis the program reads, or -1
// when it reads none.
func (p *Program) MaxNormalAxis() int {
	axis := -1
	for _, in := range p.code {
		if in.op == opNormal && in.index > axis {
			axis = in.index
		}
	}
	return axis
}
