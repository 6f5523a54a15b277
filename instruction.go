package alu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Operand represents the source operand of a binary instruction: either a
// register name or an immediate literal.
type Operand struct {
	Register string
	Literal  int64
}

// IsLiteral returns true if the operand is an immediate value.
func (o Operand) IsLiteral() bool { return o.Register == "" }

// String returns the string representation of the operand.
func (o Operand) String() string {
	if o.IsLiteral() {
		return strconv.FormatInt(o.Literal, 10)
	}
	return o.Register
}

// Instruction represents a single line of an ALU program.
type Instruction struct {
	Op  Op
	Dst string
	Src Operand // binary only

	Line int // source line, if known
}

// String returns the string representation of the instruction.
func (ins Instruction) String() string {
	if ins.Op.IsBinary() {
		return fmt.Sprintf("%s %s %s", ins.Op, ins.Dst, ins.Src)
	}
	return fmt.Sprintf("%s %s", ins.Op, ins.Dst)
}

// ParseInstruction parses a single instruction in "op dst [src]" form.
func ParseInstruction(s string) (Instruction, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Instruction{}, &ParseError{Text: s, Err: errors.New("empty instruction")}
	}

	op, err := ParseOp(fields[0])
	if err != nil {
		return Instruction{}, &ParseError{Text: s, Err: err}
	}

	ins := Instruction{Op: op}
	switch {
	case op == INP && len(fields) != 2:
		return Instruction{}, &ParseError{Text: s, Err: fmt.Errorf("%s expects 1 operand, got %d", op, len(fields)-1)}
	case op.IsBinary() && len(fields) != 3:
		return Instruction{}, &ParseError{Text: s, Err: fmt.Errorf("%s expects 2 operands, got %d", op, len(fields)-1)}
	}

	ins.Dst = fields[1]
	if !isRegisterName(ins.Dst) {
		return Instruction{}, &ParseError{Text: s, Err: fmt.Errorf("invalid destination register: %s", ins.Dst)}
	}

	if op.IsBinary() {
		if v, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			ins.Src = Operand{Literal: v}
		} else if isRegisterName(fields[2]) {
			ins.Src = Operand{Register: fields[2]}
		} else {
			return Instruction{}, &ParseError{Text: s, Err: fmt.Errorf("invalid operand: %s", fields[2])}
		}
	}
	return ins, nil
}

// ParseProgram reads one instruction per line. Blank lines and text following
// '#' or ';' are ignored.
func ParseProgram(r io.Reader) ([]Instruction, error) {
	var a []Instruction
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		text := scanner.Text()
		if i := strings.IndexAny(text, "#;"); i >= 0 {
			text = text[:i]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		ins, err := ParseInstruction(text)
		if err != nil {
			if e, ok := err.(*ParseError); ok {
				e.Line, e.Text = lineNo, strings.TrimSpace(text)
			}
			return nil, err
		}
		ins.Line = lineNo
		a = append(a, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// isRegisterName returns true if s is a letter followed by letters or digits.
func isRegisterName(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		isLetter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
		if i == 0 && !isLetter {
			return false
		} else if !isLetter && !(ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}
