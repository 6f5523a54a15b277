package main

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

// PrintCommand represents a command for printing the built expression of a
// register.
type PrintCommand struct {
	m     *Main
	flags configFlags
	expr  bool
	raw   bool
}

// NewPrintCommand returns a new instance of PrintCommand.
func NewPrintCommand(m *Main) *PrintCommand {
	return &PrintCommand{m: m}
}

// Command returns the cobra command for "alu print".
func (c *PrintCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print [program]",
		Short: "Print the simplified expression of the output register",
		Long: `Print builds the program and writes one line per node reachable from
the output register. With --expr the expression is printed as a single
nested form instead, and --raw dumps the node structs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := c.flags.load(cmd.Flags(), args)
			if err != nil {
				return err
			}
			return c.Run(cmd.Context(), config)
		},
	}
	c.flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&c.expr, "expr", false, "print as a nested expression")
	cmd.Flags().BoolVar(&c.raw, "raw", false, "dump raw nodes")
	return cmd
}

// Run executes the "print" subcommand.
func (c *PrintCommand) Run(ctx context.Context, config Config) error {
	text, err := os.ReadFile(config.Program)
	if err != nil {
		return err
	}

	prog, err := c.m.build(config, text)
	if err != nil {
		return err
	}
	root, err := prog.Output(config.Output)
	if err != nil {
		return err
	}

	switch {
	case c.raw:
		cfg := spew.ConfigState{Indent: "\t", DisablePointerAddresses: true, SortKeys: true}
		for _, i := range prog.DAG.Reachable(root) {
			fmt.Fprintf(c.m.Stdout, "%%%d ", i)
			cfg.Fdump(c.m.Stdout, prog.DAG.Node(i))
		}
		return nil
	case c.expr:
		_, err := fmt.Fprintln(c.m.Stdout, prog.DAG.Format(root))
		return err
	default:
		return prog.DAG.Dump(c.m.Stdout, root)
	}
}
