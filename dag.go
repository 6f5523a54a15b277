package alu

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// NodeKind represents the type of a DAG node.
type NodeKind int

const (
	ConstantNode = NodeKind(iota + 1)
	InputNode
	BinaryNode
)

// String returns the string representation of the kind.
func (k NodeKind) String() string {
	switch k {
	case ConstantNode:
		return "const"
	case InputNode:
		return "input"
	case BinaryNode:
		return "binary"
	default:
		return fmt.Sprintf("NodeKind<%d>", k)
	}
}

// Node represents an immutable element of the DAG. Operand references always
// point to nodes created earlier.
type Node struct {
	Kind  NodeKind
	Value int64 // constant value
	Slot  int   // input slot
	Op    Op    // binary operation
	LHS   int   // binary left operand
	RHS   int   // binary right operand
}

// IsConstant returns true if n is a constant node.
func (n Node) IsConstant() bool { return n.Kind == ConstantNode }

// IsConstantValue returns true if n is a constant node holding v.
func (n Node) IsConstantValue(v int64) bool {
	return n.Kind == ConstantNode && n.Value == v
}

// IsInput returns true if n is an input node.
func (n Node) IsInput() bool { return n.Kind == InputNode }

// DAG is an append-only arena of nodes referenced by index. Index order is a
// valid bottom-up evaluation order.
type DAG struct {
	nodes []Node
	slots int
}

// NewDAG returns a new, empty instance of DAG.
func NewDAG() *DAG {
	return &DAG{}
}

// Len returns the number of nodes.
func (d *DAG) Len() int { return len(d.nodes) }

// Slots returns the number of input slots allocated.
func (d *DAG) Slots() int { return d.slots }

// Node returns the node at index i.
func (d *DAG) Node(i int) Node {
	return d.nodes[i]
}

// Nodes returns a copy of all nodes in index order.
func (d *DAG) Nodes() []Node {
	other := make([]Node, len(d.nodes))
	copy(other, d.nodes)
	return other
}

// Constant appends a constant node and returns its index.
func (d *DAG) Constant(v int64) int {
	return d.append(Node{Kind: ConstantNode, Value: v})
}

// Input allocates the next input slot, appends its node and returns the index.
func (d *DAG) Input() (int, error) {
	if d.slots >= MaxSlots {
		return 0, ErrTooManyInputs
	}
	slot := d.slots
	d.slots++
	return d.append(Node{Kind: InputNode, Slot: slot}), nil
}

// Binary appends a binary operation node and returns its index.
func (d *DAG) Binary(op Op, lhs, rhs int) int {
	assert(op.IsBinary(), "binary node: invalid op: %s", op)
	return d.append(Node{Kind: BinaryNode, Op: op, LHS: lhs, RHS: rhs})
}

func (d *DAG) append(n Node) int {
	if n.Kind == BinaryNode {
		assert(n.LHS >= 0 && n.LHS < len(d.nodes), "dag: lhs reference out of order: %d", n.LHS)
		assert(n.RHS >= 0 && n.RHS < len(d.nodes), "dag: rhs reference out of order: %d", n.RHS)
	}
	d.nodes = append(d.nodes, n)
	return len(d.nodes) - 1
}

// Reachable returns the indexes of all nodes reachable from root, ascending.
func (d *DAG) Reachable(root int) []int {
	seen := make([]bool, root+1)
	seen[root] = true
	for i := root; i >= 0; i-- {
		if !seen[i] {
			continue
		} else if n := d.nodes[i]; n.Kind == BinaryNode {
			seen[n.LHS], seen[n.RHS] = true, true
		}
	}

	a := make([]int, 0, len(seen))
	for i, ok := range seen {
		if ok {
			a = append(a, i)
		}
	}
	return a
}

// Format returns node i as a nested expression. Shared subexpressions are
// repeated, so output grows with the number of paths, not nodes.
func (d *DAG) Format(i int) string {
	var buf bytes.Buffer
	d.format(&buf, i)
	return buf.String()
}

func (d *DAG) format(buf *bytes.Buffer, i int) {
	switch n := d.nodes[i]; n.Kind {
	case ConstantNode:
		fmt.Fprintf(buf, "%d", n.Value)
	case InputNode:
		fmt.Fprintf(buf, "d%d", n.Slot)
	case BinaryNode:
		fmt.Fprintf(buf, "(%s ", n.Op)
		d.format(buf, n.LHS)
		buf.WriteByte(' ')
		d.format(buf, n.RHS)
		buf.WriteByte(')')
	}
}

// Dump writes a linear listing of every node reachable from root.
func (d *DAG) Dump(w io.Writer, root int) error {
	bw := bufio.NewWriter(w)
	for _, i := range d.Reachable(root) {
		switch n := d.nodes[i]; n.Kind {
		case ConstantNode:
			fmt.Fprintf(bw, "%%%d = const %d\n", i, n.Value)
		case InputNode:
			fmt.Fprintf(bw, "%%%d = inp d%d\n", i, n.Slot)
		case BinaryNode:
			fmt.Fprintf(bw, "%%%d = %s %%%d %%%d\n", i, n.Op, n.LHS, n.RHS)
		}
	}
	return bw.Flush()
}
