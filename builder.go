package alu

import (
	"fmt"

	"go.uber.org/zap"
)

// Builder consumes instructions in order and builds the DAG of operations.
// Each register is bound to the node holding its latest value; nodes are
// simplified before they are created.
type Builder struct {
	dag  *DAG
	regs *Registers

	Logger *zap.Logger
}

// NewBuilder returns a new instance of Builder with the given registers
// declared and bound to a constant zero. Uses DefaultRegisters if none given.
func NewBuilder(registers ...string) *Builder {
	if len(registers) == 0 {
		registers = DefaultRegisters
	}

	dag := NewDAG()
	zero := dag.Constant(0)
	return &Builder{
		dag:    dag,
		regs:   NewRegisters(zero, registers...),
		Logger: zap.NewNop(),
	}
}

// DAG returns the underlying node store.
func (b *Builder) DAG() *DAG { return b.dag }

// Registers returns the current register bindings. The returned table is
// immutable and unaffected by later instructions.
func (b *Builder) Registers() *Registers { return b.regs }

// Program returns the program built so far.
func (b *Builder) Program() *Program {
	return &Program{DAG: b.dag, Registers: b.regs}
}

// Ingest applies a single instruction.
func (b *Builder) Ingest(ins Instruction) error {
	if _, ok := b.regs.Lookup(ins.Dst); !ok {
		return b.errorf(ins, "%w: %s", ErrUndeclaredRegister, ins.Dst)
	}

	if ins.Op == INP {
		node, err := b.dag.Input()
		if err != nil {
			return b.errorf(ins, "%w", err)
		}
		b.bind(ins, node)
		return nil
	} else if !ins.Op.IsBinary() {
		return b.errorf(ins, "%w: %s", ErrUnknownOpcode, ins.Op)
	}

	// Resolve source before creating anything so a bad reference leaves the
	// DAG untouched.
	var src int
	if ins.Src.IsLiteral() {
		src = b.dag.Constant(ins.Src.Literal)
	} else {
		var ok bool
		if src, ok = b.regs.Lookup(ins.Src.Register); !ok {
			return b.errorf(ins, "%w: %s", ErrUndeclaredRegister, ins.Src.Register)
		}
	}

	dst, _ := b.regs.Lookup(ins.Dst)
	node, err := b.newBinaryNode(ins.Op, dst, src)
	if err != nil {
		return b.errorf(ins, "%w: %w", ErrInvalidProgram, err)
	}
	b.bind(ins, node)
	return nil
}

func (b *Builder) bind(ins Instruction, node int) {
	b.regs = b.regs.Bind(ins.Dst, node)
	b.Logger.Debug("ingest",
		zap.Stringer("instr", ins),
		zap.Int("node", node),
		zap.Int("nodes", b.dag.Len()),
	)
}

func (b *Builder) errorf(ins Instruction, format string, args ...interface{}) error {
	return &ParseError{Line: ins.Line, Text: ins.String(), Err: fmt.Errorf(format, args...)}
}

// newBinaryNode returns the node representing op applied to lhs & rhs. This
// may be an existing node, a folded constant or a new binary node.
func (b *Builder) newBinaryNode(op Op, lhs, rhs int) (int, error) {
	switch op {
	case ADD:
		return b.newAddNode(lhs, rhs), nil
	case MUL:
		return b.newMulNode(lhs, rhs), nil
	case DIV:
		return b.newDivNode(lhs, rhs)
	case MOD:
		return b.newModNode(lhs, rhs)
	case EQL:
		return b.newEqlNode(lhs, rhs), nil
	default:
		panic("unreachable")
	}
}

// newAddNode returns the node representing the sum of lhs & rhs.
func (b *Builder) newAddNode(lhs, rhs int) int {
	l, r := b.dag.Node(lhs), b.dag.Node(rhs)

	if r.IsConstantValue(0) {
		return lhs
	} else if l.IsConstantValue(0) {
		return rhs
	} else if l.IsConstant() && r.IsConstant() {
		return b.dag.Constant(l.Value + r.Value)
	}
	return b.dag.Binary(ADD, lhs, rhs)
}

// newMulNode returns the node representing the product of lhs & rhs.
func (b *Builder) newMulNode(lhs, rhs int) int {
	l, r := b.dag.Node(lhs), b.dag.Node(rhs)

	// Multiplication by zero collapses the whole expression.
	if r.IsConstantValue(0) {
		return rhs
	} else if l.IsConstantValue(0) {
		return lhs
	}

	if r.IsConstantValue(1) {
		return lhs
	} else if l.IsConstantValue(1) {
		return rhs
	} else if l.IsConstant() && r.IsConstant() {
		return b.dag.Constant(l.Value * r.Value)
	}
	return b.dag.Binary(MUL, lhs, rhs)
}

// newDivNode returns the node representing lhs divided by rhs.
func (b *Builder) newDivNode(lhs, rhs int) (int, error) {
	l, r := b.dag.Node(lhs), b.dag.Node(rhs)

	if r.IsConstantValue(0) {
		return 0, ErrDivideByZero
	} else if r.IsConstantValue(1) {
		return lhs, nil
	} else if l.IsConstant() && r.IsConstant() {
		v, err := DIV.Apply(l.Value, r.Value)
		if err != nil {
			return 0, err
		}
		return b.dag.Constant(v), nil
	}
	return b.dag.Binary(DIV, lhs, rhs), nil
}

// newModNode returns the node representing the remainder of lhs divided by rhs.
// A modulo by a literal one is dropped as a no-op; the register keeps its node.
func (b *Builder) newModNode(lhs, rhs int) (int, error) {
	l, r := b.dag.Node(lhs), b.dag.Node(rhs)

	if r.IsConstantValue(0) {
		return 0, ErrDivideByZero
	} else if r.IsConstantValue(1) {
		return lhs, nil
	} else if l.IsConstant() && r.IsConstant() {
		v, err := MOD.Apply(l.Value, r.Value)
		if err != nil {
			return 0, err
		}
		return b.dag.Constant(v), nil
	}
	return b.dag.Binary(MOD, lhs, rhs), nil
}

// newEqlNode returns the node representing the equality of lhs & rhs.
func (b *Builder) newEqlNode(lhs, rhs int) int {
	l, r := b.dag.Node(lhs), b.dag.Node(rhs)

	if l.IsConstant() && r.IsConstant() {
		v, _ := EQL.Apply(l.Value, r.Value)
		return b.dag.Constant(v)
	} else if lhs == rhs {
		return b.dag.Constant(1)
	}

	// Inputs are always digits so comparing against anything else is false.
	if l.IsInput() && r.IsConstant() && !isDigit(r.Value) {
		return b.dag.Constant(0)
	} else if r.IsInput() && l.IsConstant() && !isDigit(l.Value) {
		return b.dag.Constant(0)
	}
	return b.dag.Binary(EQL, lhs, rhs)
}

// Program represents a built ALU program.
type Program struct {
	DAG       *DAG
	Registers *Registers
}

// Build ingests every instruction and returns the resulting program.
func Build(instrs []Instruction, registers ...string) (*Program, error) {
	b := NewBuilder(registers...)
	for _, ins := range instrs {
		if err := b.Ingest(ins); err != nil {
			return nil, err
		}
	}
	return b.Program(), nil
}

// Output returns the node currently bound to the named register.
func (p *Program) Output(name string) (int, error) {
	node, ok := p.Registers.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUndeclaredRegister, name)
	}
	return node, nil
}
