package alu

import (
	"fmt"
)

// Evaluate replays the DAG concretely with a full assignment of digits and
// returns the value of node index. Only nodes reachable from index are
// evaluated, in index order.
func Evaluate(dag *DAG, digits []int, index int) (int64, error) {
	if index < 0 || index >= dag.Len() {
		return 0, fmt.Errorf("evaluate: node out of range: %d", index)
	} else if len(digits) < dag.Slots() {
		return 0, fmt.Errorf("evaluate: expected %d digits, got %d", dag.Slots(), len(digits))
	}

	values := make([]int64, index+1)
	for _, i := range dag.Reachable(index) {
		switch n := dag.Node(i); n.Kind {
		case ConstantNode:
			values[i] = n.Value
		case InputNode:
			d := digits[n.Slot]
			if !isDigit(int64(d)) {
				return 0, fmt.Errorf("evaluate: slot %d: digit out of range: %d", n.Slot, d)
			}
			values[i] = int64(d)
		case BinaryNode:
			v, err := n.Op.Apply(values[n.LHS], values[n.RHS])
			if err != nil {
				return 0, fmt.Errorf("evaluate: node %d: %w: %w", i, ErrInvalidProgram, err)
			}
			values[i] = v
		}
	}
	return values[index], nil
}

// Verify checks that answer drives root to target. A mismatch indicates a
// defect in simplification or merging and is reported as ErrVerification.
func Verify(dag *DAG, answer *Answer, root int, target int64) error {
	v, err := Evaluate(dag, answer.Digits, root)
	if err != nil {
		return err
	} else if v != target {
		return fmt.Errorf("%w: %s evaluates to %d, expected %d", ErrVerification, answer, v, target)
	}
	return nil
}
