package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewMain(os.Stdout, os.Stderr).Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program and the state shared by its commands.
type Main struct {
	Stdout io.Writer
	Stderr io.Writer

	// Enables debug logging.
	Verbose bool

	// Built on first use unless set by the caller.
	Logger *zap.Logger
}

// NewMain returns a new instance of Main.
func NewMain(stdout, stderr io.Writer) *Main {
	return &Main{Stdout: stdout, Stderr: stderr}
}

// Run executes the command named by args.
func (m *Main) Run(ctx context.Context, args []string) error {
	cmd := m.Command()
	cmd.SetArgs(args)
	cmd.SetOut(m.Stdout)
	cmd.SetErr(m.Stderr)
	return cmd.ExecuteContext(ctx)
}

// Command returns the root of the command tree.
func (m *Main) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alu",
		Short: "Find model numbers accepted by an ALU program",
		Long: `alu reads a program for the four-register ALU, builds a simplified
expression DAG of its output register and searches it for the largest or
smallest sequence of input digits that produces a target value.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return m.openLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = m.Logger.Sync()
		},
	}
	cmd.PersistentFlags().BoolVarP(&m.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		NewSolveCommand(m).Command(),
		NewRunCommand(m).Command(),
		NewPrintCommand(m).Command(),
		NewWatchCommand(m).Command(),
	)
	return cmd
}

// openLogger builds the production logger, tagged with a run id.
func (m *Main) openLogger() error {
	if m.Logger != nil {
		return nil
	}

	config := zap.NewProductionConfig()
	if m.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	m.Logger = logger.With(zap.String("run_id", uuid.NewString()))
	return nil
}
