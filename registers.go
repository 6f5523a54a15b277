package alu

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Registers is a persistent mapping of register name to the index of the node
// currently bound to it. Binding returns a new table and leaves the receiver
// untouched, so every intermediate state of a program can be retained.
type Registers struct {
	m *immutable.SortedMap
}

// NewRegisters returns a table with each name bound to node.
func NewRegisters(node int, names ...string) *Registers {
	m := immutable.NewSortedMap(&stringComparer{})
	for _, name := range names {
		m = m.Set(name, node)
	}
	return &Registers{m: m}
}

// Len returns the number of declared registers.
func (r *Registers) Len() int { return r.m.Len() }

// Lookup returns the node bound to name.
func (r *Registers) Lookup(name string) (int, bool) {
	v, ok := r.m.Get(name)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// Bind returns a new table with name bound to node.
// Panic if the register is not declared.
func (r *Registers) Bind(name string, node int) *Registers {
	_, ok := r.m.Get(name)
	assert(ok, "bind: undeclared register: %s", name)
	return &Registers{m: r.m.Set(name, node)}
}

// Names returns the declared register names, sorted.
func (r *Registers) Names() []string {
	a := make([]string, 0, r.m.Len())
	for itr := r.m.Iterator(); !itr.Done(); {
		k, _ := itr.Next()
		a = append(a, k.(string))
	}
	return a
}

// String returns the string representation of the bindings.
func (r *Registers) String() string {
	var buf bytes.Buffer
	buf.WriteRune('[')
	for i, name := range r.Names() {
		if i > 0 {
			buf.WriteRune(' ')
		}
		node, _ := r.Lookup(name)
		fmt.Fprintf(&buf, "%s=%%%d", name, node)
	}
	buf.WriteRune(']')
	return buf.String()
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	if i, j := a.(string), b.(string); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
