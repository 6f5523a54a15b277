package alu

import (
	"bytes"
	"fmt"
	"math/bits"
	"strings"
)

// Assignment is a partial mapping of input slot to digit. It is a comparable
// value type and may be used as a map key.
//
// Digits are packed four bits per slot, sixteen slots per word, with lower
// slots in higher nibbles. Comparing the words in order therefore compares
// the digit sequences lexicographically, slot 0 first.
type Assignment struct {
	mask   uint64 // constrained slots
	digits [MaxSlots / 16]uint64
}

// NewAssignment returns an assignment constraining slot i to digits[i].
// Zero entries are left unconstrained.
func NewAssignment(digits ...int) Assignment {
	var a Assignment
	for slot, digit := range digits {
		if digit != 0 {
			a = a.Set(slot, digit)
		}
	}
	return a
}

// Set returns a copy of a with slot constrained to digit.
// Panic if slot or digit is out of range.
func (a Assignment) Set(slot, digit int) Assignment {
	assert(slot >= 0 && slot < MaxSlots, "assignment: slot out of range: %d", slot)
	assert(isDigit(int64(digit)), "assignment: digit out of range: %d", digit)

	w, shift := slotPos(slot)
	a.digits[w] &^= 0xF << shift
	a.digits[w] |= uint64(digit) << shift
	a.mask |= 1 << uint(slot)
	return a
}

// Get returns the digit for slot, if constrained.
func (a Assignment) Get(slot int) (digit int, ok bool) {
	if slot < 0 || slot >= MaxSlots || a.mask&(1<<uint(slot)) == 0 {
		return 0, false
	}
	w, shift := slotPos(slot)
	return int((a.digits[w] >> shift) & 0xF), true
}

// Constrained returns true if slot has a digit.
func (a Assignment) Constrained(slot int) bool {
	return slot >= 0 && slot < MaxSlots && a.mask&(1<<uint(slot)) != 0
}

// Equal returns true if a and other constrain the same slots to the same digits.
func (a Assignment) Equal(other Assignment) bool { return a == other }

// Mask returns the set of constrained slots as a bitmask.
func (a Assignment) Mask() uint64 { return a.mask }

// Len returns the number of constrained slots.
func (a Assignment) Len() int { return bits.OnesCount64(a.mask) }

// Merge returns the union of a and other. Returns false if they disagree on
// any slot both constrain.
func (a Assignment) Merge(other Assignment) (Assignment, bool) {
	if common := a.mask & other.mask; common != 0 {
		for w := range a.digits {
			if m := uint16(common >> (16 * uint(w))); m != 0 {
				nm := nibbleMask(m)
				if a.digits[w]&nm != other.digits[w]&nm {
					return Assignment{}, false
				}
			}
		}
	}

	a.mask |= other.mask
	for w := range a.digits {
		a.digits[w] |= other.digits[w]
	}
	return a, true
}

// Project returns a copy of a with only the slots in mask retained.
func (a Assignment) Project(mask uint64) Assignment {
	a.mask &= mask
	for w := range a.digits {
		a.digits[w] &= nibbleMask(uint16(a.mask >> (16 * uint(w))))
	}
	return a
}

// Digits returns the first n slots as a digit sequence. Unconstrained slots
// are filled with fill.
func (a Assignment) Digits(n int, fill int) []int {
	assert(n >= 0 && n <= MaxSlots, "assignment: slot count out of range: %d", n)
	digits := make([]int, n)
	for i := range digits {
		if d, ok := a.Get(i); ok {
			digits[i] = d
		} else {
			digits[i] = fill
		}
	}
	return digits
}

// effective returns the packed digits with unconstrained slots set to fill.
func (a Assignment) effective(fill int) [MaxSlots / 16]uint64 {
	pattern := uint64(fill) * 0x1111111111111111
	var other [MaxSlots / 16]uint64
	for w := range a.digits {
		nm := nibbleMask(uint16(a.mask >> (16 * uint(w))))
		other[w] = (a.digits[w] & nm) | (pattern &^ nm)
	}
	return other
}

// String returns the string representation of the assignment, e.g. "{0:5 3:7}".
func (a Assignment) String() string {
	var buf bytes.Buffer
	buf.WriteRune('{')
	for slot, first := 0, true; slot < MaxSlots; slot++ {
		if d, ok := a.Get(slot); ok {
			if !first {
				buf.WriteRune(' ')
			}
			fmt.Fprintf(&buf, "%d:%d", slot, d)
			first = false
		}
	}
	buf.WriteRune('}')
	return buf.String()
}

// slotPos returns the word and bit offset of a slot's nibble.
func slotPos(slot int) (w int, shift uint) {
	return slot / 16, uint(15-slot%16) * 4
}

// nibbleMask expands a 16-slot bitmask into the matching nibble mask.
func nibbleMask(m uint16) uint64 {
	return uint64(nibbleSpread[uint8(m)])<<32 | uint64(nibbleSpread[uint8(m>>8)])
}

// nibbleSpread maps 8 slot bits to a 32-bit nibble mask, first slot highest.
var nibbleSpread = func() (t [256]uint32) {
	for b := range t {
		for k := uint(0); k < 8; k++ {
			if b&(1<<k) != 0 {
				t[b] |= 0xF << ((7 - k) * 4)
			}
		}
	}
	return t
}()

// Policy is a total preorder over partially constrained assignments used to
// decide which of two candidates with the same value survives.
type Policy interface {
	// Compare returns a positive number if a is preferred over b, a negative
	// number if b is preferred over a, and zero if they are equally good.
	Compare(a, b Assignment) int

	// Digit returns the preferred digit for an unconstrained slot.
	Digit() int

	String() string
}

// Selection policies.
var (
	// Maximize prefers the lexicographically largest digit sequence.
	Maximize Policy = &lexPolicy{name: "max", fill: MaxDigit, sign: 1}

	// Minimize prefers the lexicographically smallest digit sequence.
	Minimize Policy = &lexPolicy{name: "min", fill: MinDigit, sign: -1}
)

// ParsePolicy returns the policy with the given name ("max" or "min").
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "max", "maximize", "largest":
		return Maximize, nil
	case "min", "minimize", "smallest":
		return Minimize, nil
	default:
		return nil, fmt.Errorf("alu: unknown policy: %q", s)
	}
}

// lexPolicy orders assignments lexicographically, slot 0 first. Unconstrained
// slots compare as the policy's preferred digit.
type lexPolicy struct {
	name string
	fill int
	sign int
}

func (p *lexPolicy) Compare(a, b Assignment) int {
	x, y := a.effective(p.fill), b.effective(p.fill)
	for w := range x {
		if x[w] > y[w] {
			return p.sign
		} else if x[w] < y[w] {
			return -p.sign
		}
	}
	return 0
}

func (p *lexPolicy) Digit() int { return p.fill }

func (p *lexPolicy) String() string { return p.name }
