package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/benbjohnson/alu"
	"github.com/spf13/cobra"
)

// RunCommand represents a command for executing a program on concrete digits.
type RunCommand struct {
	m         *Main
	registers []string
}

// NewRunCommand returns a new instance of RunCommand.
func NewRunCommand(m *Main) *RunCommand {
	return &RunCommand{m: m}
}

// Command returns the cobra command for "alu run".
func (c *RunCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run program digits",
		Short: "Execute a program on a digit sequence and print the registers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), args[0], args[1])
		},
	}
	cmd.Flags().StringSliceVar(&c.registers, "registers", slices.Clone(alu.DefaultRegisters), "declared registers")
	return cmd
}

// Run executes the "run" subcommand.
func (c *RunCommand) Run(ctx context.Context, filename, s string) error {
	digits, err := alu.ParseDigits(s)
	if err != nil {
		return err
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	instrs, err := alu.ParseProgram(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	regs, err := alu.NewMachine(c.registers...).Run(instrs, digits)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	names := make([]string, 0, len(regs))
	for name := range regs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(c.m.Stdout, "%s=%d\n", name, regs[name])
	}
	return nil
}
