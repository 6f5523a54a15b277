package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/alu"
	"github.com/benbjohnson/alu/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// SolveCommand represents a command for finding the preferred input digits
// that drive the output register to a target value.
type SolveCommand struct {
	m       *Main
	flags   configFlags
	metrics bool
}

// NewSolveCommand returns a new instance of SolveCommand.
func NewSolveCommand(m *Main) *SolveCommand {
	return &SolveCommand{m: m}
}

// Command returns the cobra command for "alu solve".
func (c *SolveCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [program]",
		Short: "Find the best input digits producing a target value",
		Long: `Solve builds the program and prints the largest (--policy max) or
smallest (--policy min) digit sequence for which the output register
equals --target. Every answer is replayed against the program before it
is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), cmd.Flags(), args)
		},
	}
	c.flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&c.metrics, "metrics", false, "print solver metrics after the answer")
	return cmd
}

// Run executes the "solve" subcommand.
func (c *SolveCommand) Run(ctx context.Context, fs *pflag.FlagSet, args []string) error {
	config, err := c.flags.load(fs, args)
	if err != nil {
		return err
	}

	cache, err := openCache(config, c.m.Logger)
	if err != nil {
		return err
	} else if cache != nil {
		defer cache.Close()
	}

	var reg *prometheus.Registry
	if c.metrics {
		reg = prometheus.NewRegistry()
	}

	answer, err := c.m.Solve(ctx, config, cache, reg)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.m.Stdout, answer)

	if reg != nil {
		return writeMetrics(c.m.Stdout, reg)
	}
	return nil
}

// Solve reads the program named by config and returns its verified answer.
// The cache is optional; it is consulted first and updated after a solve.
// Solver metrics are registered with reg if it is not nil.
func (m *Main) Solve(ctx context.Context, config Config, cache *badger.Cache, reg prometheus.Registerer) (*alu.Answer, error) {
	text, err := os.ReadFile(config.Program)
	if err != nil {
		return nil, err
	}

	policy, err := alu.ParsePolicy(config.Policy)
	if err != nil {
		return nil, err
	}

	prog, err := m.build(config, text)
	if err != nil {
		return nil, err
	}
	root, err := prog.Output(config.Output)
	if err != nil {
		return nil, err
	}

	key := badger.Key{
		Program:   text,
		Registers: config.Registers,
		Output:    config.Output,
		Policy:    policy.String(),
		Target:    config.Target,
	}
	if cache != nil {
		answer, err := cache.Get(key)
		if err == nil {
			if err := alu.Verify(prog.DAG, answer, root, config.Target); err == nil {
				m.logAnswer(answer, "cache")
				return answer, nil
			}
			m.Logger.Warn("discarding cached answer", zap.Stringer("digits", answer), zap.Error(err))
		} else if !errors.Is(err, badger.ErrNotFound) {
			return nil, err
		}
	}

	solver := alu.NewSolver(prog.DAG, policy)
	solver.MaxCandidates = config.MaxCandidates
	solver.Workers = config.Workers
	solver.Logger = m.Logger
	if reg != nil {
		solver.Metrics = alu.NewMetrics(reg)
	}

	answer, err := solver.Select(ctx, root, config.Target)
	if err != nil {
		return nil, err
	} else if err := alu.Verify(prog.DAG, answer, root, config.Target); err != nil {
		return nil, err
	}

	stats := solver.Stats()
	m.logAnswer(answer, "solver",
		zap.Int("nodes", stats.Nodes),
		zap.Int64("merges", stats.Merges),
		zap.Int64("candidates", stats.Candidates),
		zap.Int64("pruned", stats.Pruned),
		zap.Int64("conflicts", stats.Conflicts),
		zap.Int("max_set_size", stats.MaxSetSize),
		zap.Duration("elapsed", stats.SolveTime),
	)

	if cache != nil {
		if err := cache.Put(key, answer); err != nil {
			return nil, err
		}
	}
	return answer, nil
}

// build parses text and builds it with the configured registers.
func (m *Main) build(config Config, text []byte) (*alu.Program, error) {
	instrs, err := alu.ParseProgram(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.Program, err)
	}

	b := alu.NewBuilder(config.Registers...)
	b.Logger = m.Logger
	for _, ins := range instrs {
		if err := b.Ingest(ins); err != nil {
			return nil, fmt.Errorf("%s: %w", config.Program, err)
		}
	}
	m.Logger.Debug("program built",
		zap.String("program", config.Program),
		zap.Int("instructions", len(instrs)),
		zap.Int("nodes", b.DAG().Len()),
		zap.Int("slots", b.DAG().Slots()),
	)
	return b.Program(), nil
}

// logAnswer records every answer handed out along with the value it achieves.
func (m *Main) logAnswer(answer *alu.Answer, source string, fields ...zap.Field) {
	m.Logger.Info("answer", append([]zap.Field{
		zap.Stringer("digits", answer),
		zap.Int64("value", answer.Value),
		zap.String("policy", answer.Policy),
		zap.String("source", source),
	}, fields...)...)
}

// openCache opens the answer cache named by config. Returns nil if caching
// is disabled.
func openCache(config Config, logger *zap.Logger) (*badger.Cache, error) {
	if config.CacheDir == "" {
		return nil, nil
	}
	cfg := badger.DefaultConfig(config.CacheDir)
	cfg.Logger = logger.Named("badger")
	return badger.Open(cfg)
}

// writeMetrics writes every gathered metric in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
