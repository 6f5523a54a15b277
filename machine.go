package alu

import (
	"errors"
	"fmt"
)

// Machine executes instructions directly against concrete register values.
// Unlike the Builder it performs no simplification, so it serves as a
// reference for what a program actually computes.
type Machine struct {
	registers []string
}

// NewMachine returns a new instance of Machine with the given registers.
// Uses DefaultRegisters if none given.
func NewMachine(registers ...string) *Machine {
	if len(registers) == 0 {
		registers = DefaultRegisters
	}
	return &Machine{registers: registers}
}

// Run executes instrs, reading one digit per input instruction, and returns
// the final register values.
func (m *Machine) Run(instrs []Instruction, digits []int) (map[string]int64, error) {
	regs := make(map[string]int64, len(m.registers))
	for _, name := range m.registers {
		regs[name] = 0
	}

	next := 0
	for _, ins := range instrs {
		if _, ok := regs[ins.Dst]; !ok {
			return nil, &ParseError{Line: ins.Line, Text: ins.String(), Err: fmt.Errorf("%w: %s", ErrUndeclaredRegister, ins.Dst)}
		}

		if ins.Op == INP {
			if next >= len(digits) {
				return nil, &ParseError{Line: ins.Line, Text: ins.String(), Err: errors.New("input exhausted")}
			} else if !isDigit(int64(digits[next])) {
				return nil, &ParseError{Line: ins.Line, Text: ins.String(), Err: fmt.Errorf("digit out of range: %d", digits[next])}
			}
			regs[ins.Dst] = int64(digits[next])
			next++
			continue
		}

		src := ins.Src.Literal
		if !ins.Src.IsLiteral() {
			v, ok := regs[ins.Src.Register]
			if !ok {
				return nil, &ParseError{Line: ins.Line, Text: ins.String(), Err: fmt.Errorf("%w: %s", ErrUndeclaredRegister, ins.Src.Register)}
			}
			src = v
		}

		v, err := ins.Op.Apply(regs[ins.Dst], src)
		if err != nil {
			return nil, &ParseError{Line: ins.Line, Text: ins.String(), Err: fmt.Errorf("%w: %w", ErrInvalidProgram, err)}
		}
		regs[ins.Dst] = v
	}
	return regs, nil
}
