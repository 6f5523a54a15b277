package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultWatchDelay is the quiet period after a change before re-solving.
const DefaultWatchDelay = 100 * time.Millisecond

// WatchCommand represents a command that re-solves a program whenever its
// file changes.
type WatchCommand struct {
	m     *Main
	flags configFlags

	// Quiet period after the last change before solving.
	Delay time.Duration
}

// NewWatchCommand returns a new instance of WatchCommand.
func NewWatchCommand(m *Main) *WatchCommand {
	return &WatchCommand{m: m, Delay: DefaultWatchDelay}
}

// Command returns the cobra command for "alu watch".
func (c *WatchCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [program]",
		Short: "Solve a program and solve again every time it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := c.flags.load(cmd.Flags(), args)
			if err != nil {
				return err
			}
			return c.Run(cmd.Context(), config)
		},
	}
	c.flags.register(cmd.Flags())
	return cmd
}

// Run executes the "watch" subcommand until ctx is canceled.
func (c *WatchCommand) Run(ctx context.Context, config Config) error {
	cache, err := openCache(config, c.m.Logger)
	if err != nil {
		return err
	} else if cache != nil {
		defer cache.Close()
	}

	// Watch the parent directory since editors often replace files on save.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	filename := filepath.Clean(config.Program)
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		return err
	}

	solve := func() {
		answer, err := c.m.Solve(ctx, config, cache, nil)
		if err != nil {
			c.m.Logger.Error("solve failed", zap.String("program", filename), zap.Error(err))
			return
		}
		fmt.Fprintln(c.m.Stdout, answer)
	}
	solve()

	timer := time.NewTimer(c.Delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			} else if filepath.Clean(event.Name) != filename || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			c.m.Logger.Debug("program changed", zap.String("program", filename), zap.Stringer("op", event.Op))
			timer.Reset(c.Delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.m.Logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			solve()
		}
	}
}
