package alu

import (
	"fmt"
	"strings"
)

// Op represents an ALU instruction operation.
type Op int

// Instruction operations. Binary operations sit between the markers.
const (
	INP = Op(iota)

	binary_op_begin
	ADD
	MUL
	DIV
	MOD
	EQL
	binary_op_end
)

var ops = [...]string{
	INP: "inp",
	ADD: "add",
	MUL: "mul",
	DIV: "div",
	MOD: "mod",
	EQL: "eql",
}

// String returns the string representation of the operation.
func (op Op) String() string {
	if op >= 0 && op < Op(len(ops)) && ops[op] != "" {
		return ops[op]
	}
	return fmt.Sprintf("Op<%d>", op)
}

// IsBinary returns true if op takes a destination and a source operand.
func (op Op) IsBinary() bool {
	return op > binary_op_begin && op < binary_op_end
}

// ParseOp returns the operation for an opcode mnemonic.
func ParseOp(s string) (Op, error) {
	for i, name := range ops {
		if name != "" && strings.EqualFold(name, s) {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownOpcode, s)
}

// Apply computes op over two concrete values. Division truncates toward zero
// and equality yields 1 or 0. Returns ErrDivideByZero for a zero divisor.
func (op Op) Apply(lhs, rhs int64) (int64, error) {
	switch op {
	case ADD:
		return lhs + rhs, nil
	case MUL:
		return lhs * rhs, nil
	case DIV:
		if rhs == 0 {
			return 0, ErrDivideByZero
		}
		return lhs / rhs, nil
	case MOD:
		if rhs == 0 {
			return 0, ErrDivideByZero
		}
		return lhs % rhs, nil
	case EQL:
		if lhs == rhs {
			return 1, nil
		}
		return 0, nil
	default:
		panic(fmt.Sprintf("alu: not a binary op: %s", op))
	}
}
