package alu

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Candidate represents one way of reaching Value at a node.
type Candidate struct {
	Value      int64
	Assignment Assignment
}

// SolutionSet holds the surviving candidates of a single node, sorted by value.
// Candidates sharing a value are ordered best first under the policy that
// produced the set.
type SolutionSet struct {
	candidates []Candidate
}

// newSolutionSet returns a set over a, sorting a in place.
func newSolutionSet(a []Candidate, policy Policy) *SolutionSet {
	sort.Slice(a, func(i, j int) bool {
		if a[i].Value != a[j].Value {
			return a[i].Value < a[j].Value
		}
		return policy.Compare(a[i].Assignment, a[j].Assignment) > 0
	})
	return &SolutionSet{candidates: a}
}

// Len returns the number of candidates.
func (ss *SolutionSet) Len() int { return len(ss.candidates) }

// Candidates returns a copy of the candidates.
func (ss *SolutionSet) Candidates() []Candidate {
	other := make([]Candidate, len(ss.candidates))
	copy(other, ss.candidates)
	return other
}

// Values returns the distinct reachable values, ascending.
func (ss *SolutionSet) Values() []int64 {
	var a []int64
	for i, c := range ss.candidates {
		if i == 0 || c.Value != ss.candidates[i-1].Value {
			a = append(a, c.Value)
		}
	}
	return a
}

// Lookup returns the preferred candidate reaching value.
func (ss *SolutionSet) Lookup(value int64) (Candidate, bool) {
	i := sort.Search(len(ss.candidates), func(i int) bool { return ss.candidates[i].Value >= value })
	if i < len(ss.candidates) && ss.candidates[i].Value == value {
		return ss.candidates[i], true
	}
	return Candidate{}, false
}

// Answer represents a full assignment selected for a target value.
type Answer struct {
	Digits []int  // one digit per input slot, in allocation order
	Value  int64  // value achieved at the root
	Policy string // policy that selected the digits
}

// String returns the digits as a single number, e.g. "13579246899999".
func (a *Answer) String() string {
	var buf strings.Builder
	for _, d := range a.Digits {
		buf.WriteString(strconv.Itoa(d))
	}
	return buf.String()
}

// ParseDigits parses a digit string such as "13579246899999".
func ParseDigits(s string) ([]int, error) {
	digits := make([]int, 0, len(s))
	for _, ch := range strings.TrimSpace(s) {
		if ch < '0'+MinDigit || ch > '0'+MaxDigit {
			return nil, &ParseError{Text: s, Err: fmt.Errorf("invalid digit %q", ch)}
		}
		digits = append(digits, int(ch-'0'))
	}
	return digits, nil
}
