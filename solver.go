package alu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Solver computes, for each node of a DAG, the set of values the node can
// take together with the input assignments reaching them.
//
// Nodes are solved bottom-up, one dependency level at a time. Two candidates
// of a node compete only if they reach the same value and agree on every
// slot that is still visible outside the node; the loser under the policy is
// discarded. A slot is hidden at a node when every path from the root to the
// slot's input passes through that node, so nothing above can tell two
// candidates apart by that slot.
type Solver struct {
	dag    *DAG
	policy Policy

	mu    sync.Mutex
	cache map[int]*SolutionSet // root solution sets
	stats Stats

	// Maximum surviving candidates allowed per node. Zero means no limit.
	MaxCandidates int

	// Number of nodes solved concurrently. Values below two solve on the
	// calling goroutine.
	Workers int

	Logger  *zap.Logger
	Metrics *Metrics
}

// NewSolver returns a new instance of Solver.
func NewSolver(dag *DAG, policy Policy) *Solver {
	return &Solver{
		dag:    dag,
		policy: policy,
		cache:  make(map[int]*SolutionSet),
		Logger: zap.NewNop(),
	}
}

// Policy returns the selection policy.
func (s *Solver) Policy() Policy { return s.policy }

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Stats represents cumulative solver statistics.
type Stats struct {
	SolveN     int
	Nodes      int
	Merges     int64
	Candidates int64
	Pruned     int64
	Conflicts  int64
	Excluded   int64
	MaxSetSize int
	SolveTime  time.Duration
}

// Solve returns the solution set of root. Results are cached so repeated
// queries against the same root are free.
func (s *Solver) Solve(ctx context.Context, root int) (*SolutionSet, error) {
	assert(root >= 0 && root < s.dag.Len(), "solve: root out of range: %d", root)

	s.mu.Lock()
	ss := s.cache[root]
	s.mu.Unlock()
	if ss != nil {
		return ss, nil
	}

	t := time.Now()
	ss, err := s.solve(ctx, root)
	elapsed := time.Since(t)

	s.mu.Lock()
	s.stats.SolveN++
	s.stats.SolveTime += elapsed
	if err == nil {
		s.cache[root] = ss
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.SolveTime.Observe(elapsed.Seconds())
	}
	s.Logger.Info("solved",
		zap.Int("root", root),
		zap.Int("values", ss.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return ss, nil
}

// Select returns the policy-preferred full assignment for which root
// evaluates to target. Slots the root does not depend on are filled with the
// policy's preferred digit. Returns ErrUnsatisfiable if target is unreachable.
func (s *Solver) Select(ctx context.Context, root int, target int64) (*Answer, error) {
	ss, err := s.Solve(ctx, root)
	if err != nil {
		return nil, err
	}

	c, ok := ss.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("target %d: %w", target, ErrUnsatisfiable)
	}
	return &Answer{
		Digits: c.Assignment.Digits(s.dag.Slots(), s.policy.Digit()),
		Value:  c.Value,
		Policy: s.policy.String(),
	}, nil
}

func (s *Solver) solve(ctx context.Context, root int) (*SolutionSet, error) {
	p := newPlan(s.dag, root)
	sets := make([]*SolutionSet, root+1)

	for level, nodes := range p.levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results := make([]nodeStats, len(nodes))
		if s.Workers < 2 {
			for j, i := range nodes {
				ss, err := s.solveNode(ctx, i, sets, p, &results[j])
				if err != nil {
					return nil, err
				}
				sets[i] = ss
			}
		} else {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.Workers)
			for j, i := range nodes {
				j, i := j, i
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					ss, err := s.solveNode(gctx, i, sets, p, &results[j])
					if err != nil {
						return err
					}
					sets[i] = ss
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
		}

		maxSetSize := 0
		s.mu.Lock()
		for j, i := range nodes {
			s.record(results[j], sets[i].Len())
			if n := sets[i].Len(); n > maxSetSize {
				maxSetSize = n
			}
		}
		s.mu.Unlock()

		// Drop sets whose last consumer has now been solved.
		for _, i := range p.release[level] {
			if i != root {
				sets[i] = nil
			}
		}

		s.Logger.Debug("level solved",
			zap.Int("level", level),
			zap.Int("nodes", len(nodes)),
			zap.Int("max_set_size", maxSetSize),
		)
	}
	return sets[root], nil
}

// record folds per-node counters into the solver stats and metrics.
// Caller must hold s.mu.
func (s *Solver) record(ns nodeStats, size int) {
	s.stats.Nodes++
	s.stats.Merges += ns.merges
	s.stats.Candidates += ns.candidates
	s.stats.Pruned += ns.pruned
	s.stats.Conflicts += ns.conflicts
	s.stats.Excluded += ns.excluded
	if size > s.stats.MaxSetSize {
		s.stats.MaxSetSize = size
	}

	if m := s.Metrics; m != nil {
		m.Nodes.Inc()
		m.Candidates.WithLabelValues(OutcomeKept).Add(float64(size))
		m.Candidates.WithLabelValues(OutcomePruned).Add(float64(ns.pruned))
		m.Candidates.WithLabelValues(OutcomeConflict).Add(float64(ns.conflicts))
		m.Candidates.WithLabelValues(OutcomeExcluded).Add(float64(ns.excluded))
		m.SetSize.Observe(float64(size))
	}
}

// nodeStats counts what happened while solving a single node.
type nodeStats struct {
	merges     int64 // operand pairs merged
	candidates int64 // merged pairs that produced a value
	pruned     int64 // dominated by another candidate
	conflicts  int64 // pairs skipped for disagreeing on a shared slot
	excluded   int64 // pairs that divided by zero
}

// candidateKey groups candidates that may dominate each other.
type candidateKey struct {
	value   int64
	visible Assignment
}

// solveNode computes the solution set of node i from its operands' sets.
func (s *Solver) solveNode(ctx context.Context, i int, sets []*SolutionSet, p *plan, ns *nodeStats) (*SolutionSet, error) {
	n := s.dag.Node(i)
	switch n.Kind {
	case ConstantNode:
		ns.candidates = 1
		return newSolutionSet([]Candidate{{Value: n.Value}}, s.policy), nil

	case InputNode:
		a := make([]Candidate, 0, MaxDigit-MinDigit+1)
		for d := MinDigit; d <= MaxDigit; d++ {
			a = append(a, Candidate{Value: int64(d), Assignment: Assignment{}.Set(n.Slot, d)})
		}
		ns.candidates = int64(len(a))
		return newSolutionSet(a, s.policy), nil

	case BinaryNode:
		lhs, rhs := sets[n.LHS], sets[n.RHS]
		assert(lhs != nil && rhs != nil, "solve: operand set released early: node=%d", i)

		// Every candidate constrains all slots below its node, so two
		// candidates merge exactly when they agree on the common slots.
		common := p.below[n.LHS] & p.below[n.RHS]
		buckets := make(map[Assignment][]Candidate)
		for _, r := range rhs.candidates {
			k := r.Assignment.Project(common)
			buckets[k] = append(buckets[k], r)
		}

		exposed := p.exposed[i]
		best := make(map[candidateKey]Assignment)
		for _, l := range lhs.candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			bucket := buckets[l.Assignment.Project(common)]
			ns.conflicts += int64(len(rhs.candidates) - len(bucket))
			for _, r := range bucket {
				a, ok := l.Assignment.Merge(r.Assignment)
				assert(ok, "solve: conflicting merge: node=%d", i)
				ns.merges++

				v, err := n.Op.Apply(l.Value, r.Value)
				if err != nil {
					ns.excluded++
					continue
				}
				ns.candidates++

				key := candidateKey{value: v, visible: a.Project(exposed)}
				if prev, ok := best[key]; ok {
					ns.pruned++
					if s.policy.Compare(prev, a) >= 0 {
						continue
					}
				} else if s.MaxCandidates > 0 && len(best) >= s.MaxCandidates {
					return nil, fmt.Errorf("node %d: %w: more than %d candidates", i, ErrCandidateLimit, s.MaxCandidates)
				}
				best[key] = a
			}
		}

		a := make([]Candidate, 0, len(best))
		for key, assignment := range best {
			a = append(a, Candidate{Value: key.value, Assignment: assignment})
		}
		return newSolutionSet(a, s.policy), nil

	default:
		panic(fmt.Sprintf("solve: invalid node kind: %s", n.Kind))
	}
}

// plan describes the bottom-up schedule for solving a single root.
type plan struct {
	levels  [][]int  // reachable nodes grouped by dependency level
	release [][]int  // nodes last consumed at each level
	below   []uint64 // slots each node depends on
	exposed []uint64 // slots still visible outside each node
}

// newPlan computes the level schedule and slot visibility for root.
func newPlan(dag *DAG, root int) *plan {
	reachable := dag.Reachable(root)

	level := make([]int, root+1)
	lastUse := make([]int, root+1)
	below := make([]uint64, root+1) // slots in each node's subtree
	parents := make([][]int, root+1)
	depth := 0
	for _, i := range reachable {
		lastUse[i] = -1
		switch n := dag.Node(i); n.Kind {
		case InputNode:
			below[i] = 1 << uint(n.Slot)
		case BinaryNode:
			level[i] = 1 + max(level[n.LHS], level[n.RHS])
			below[i] = below[n.LHS] | below[n.RHS]
			parents[n.LHS] = append(parents[n.LHS], i)
			parents[n.RHS] = append(parents[n.RHS], i)
		}
		if level[i] > depth {
			depth = level[i]
		}
	}

	p := &plan{
		levels:  make([][]int, depth+1),
		release: make([][]int, depth+1),
		below:   below,
		exposed: make([]uint64, root+1),
	}
	for _, i := range reachable {
		p.levels[level[i]] = append(p.levels[level[i]], i)
		for _, parent := range parents[i] {
			if level[parent] > lastUse[i] {
				lastUse[i] = level[parent]
			}
		}
		if lastUse[i] >= 0 {
			p.release[lastUse[i]] = append(p.release[lastUse[i]], i)
		}
	}

	// Immediate dominators with the root as entry. Every parent has a higher
	// index than its child, so walking down from the root visits parents
	// first and walking up the dominator tree always increases the index.
	idom := make([]int, root+1)
	idom[root] = root
	for k := len(reachable) - 2; k >= 0; k-- {
		i := reachable[k]
		d := parents[i][0]
		for _, parent := range parents[i][1:] {
			d = intersect(idom, d, parent)
		}
		idom[i] = d
	}

	// A slot is hidden at every dominator of its input node.
	hidden := make([]uint64, root+1)
	for _, i := range reachable {
		n := dag.Node(i)
		if !n.IsInput() {
			continue
		}
		for m := i; ; m = idom[m] {
			hidden[m] |= 1 << uint(n.Slot)
			if m == root {
				break
			}
		}
	}
	for _, i := range reachable {
		p.exposed[i] = below[i] &^ hidden[i]
	}
	return p
}

// intersect returns the nearest common dominator of a and b.
func intersect(idom []int, a, b int) int {
	for a != b {
		for a < b {
			a = idom[a]
		}
		for b < a {
			b = idom[b]
		}
	}
	return a
}
