package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/alu"
	"github.com/benbjohnson/alu/badger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestSolveCommand(t *testing.T) {
	t.Run("Max", func(t *testing.T) {
		stdout, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "1")
		require.NoError(t, err)
		require.Equal(t, "819\n", stdout)
	})

	t.Run("Min", func(t *testing.T) {
		stdout, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "1", "--policy", "min")
		require.NoError(t, err)
		require.Equal(t, "112\n", stdout)
	})

	t.Run("Monad", func(t *testing.T) {
		stdout, err := RunMain(t, "solve", "../../testdata/monad.alu", "--workers", "4", "-v")
		require.NoError(t, err)
		require.Equal(t, "997977\n", stdout)
	})

	t.Run("Metrics", func(t *testing.T) {
		stdout, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "1", "--metrics")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stdout, "819\n"))
		require.Contains(t, stdout, "alu_solver_nodes_total 5\n")
	})

	t.Run("PolicyAlias", func(t *testing.T) {
		stdout, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "1", "--policy", "smallest")
		require.NoError(t, err)
		require.Equal(t, "112\n", stdout)
	})

	t.Run("ErrUnsatisfiable", func(t *testing.T) {
		_, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "5")
		require.ErrorIs(t, err, alu.ErrUnsatisfiable)
	})

	t.Run("ErrUnknownOpcode", func(t *testing.T) {
		_, err := RunMain(t, "solve", "../../testdata/unknown_opcode.alu")
		require.ErrorIs(t, err, alu.ErrUnknownOpcode)
		require.Contains(t, err.Error(), "line 3")
	})

	t.Run("ErrUndeclaredRegister", func(t *testing.T) {
		_, err := RunMain(t, "solve", "../../testdata/undeclared.alu")
		require.ErrorIs(t, err, alu.ErrUndeclaredRegister)
	})

	t.Run("ErrInvalidPolicy", func(t *testing.T) {
		_, err := RunMain(t, "solve", "../../testdata/sum.alu", "--policy", "median")
		require.Error(t, err)
	})

	t.Run("ErrOutputNotDeclared", func(t *testing.T) {
		_, err := RunMain(t, "solve", "../../testdata/sum.alu", "--output", "q")
		require.ErrorContains(t, err, "not declared")
	})

	t.Run("ErrProgramRequired", func(t *testing.T) {
		_, err := RunMain(t, "solve")
		require.Error(t, err)
	})
}

func TestSolveCommand_Config(t *testing.T) {
	program, err := filepath.Abs("../../testdata/sum.alu")
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "alu.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(""+
		"program: "+program+"\n"+
		"policy: min\n"+
		"output: w\n"+
		"target: 1\n",
	), 0666))

	stdout, err := RunMain(t, "solve", "--config", filename)
	require.NoError(t, err)
	require.Equal(t, "112\n", stdout)

	// Flags override the file.
	stdout, err = RunMain(t, "solve", "--config", filename, "--policy", "max")
	require.NoError(t, err)
	require.Equal(t, "819\n", stdout)
}

func TestSolveCommand_Cache(t *testing.T) {
	t.Run("Hit", func(t *testing.T) {
		dir := t.TempDir()
		args := []string{"solve", "../../testdata/sum.alu", "--output", "w", "--target", "1", "--cache-dir", dir}

		var sources []string
		for i := 0; i < 2; i++ {
			stdout, logs, err := RunMainObserved(t, args...)
			require.NoError(t, err)
			require.Equal(t, "819\n", stdout)
			sources = append(sources, AnswerSources(logs)...)
		}
		require.Equal(t, []string{"solver", "cache"}, sources)

		c, err := badger.Open(badger.DefaultConfig(dir))
		require.NoError(t, err)
		defer c.Close()

		n, err := c.Len()
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("Stale", func(t *testing.T) {
		dir := t.TempDir()
		text, err := os.ReadFile("../../testdata/sum.alu")
		require.NoError(t, err)

		key := badger.Key{
			Program:   text,
			Registers: alu.DefaultRegisters,
			Output:    "w",
			Policy:    "max",
			Target:    1,
		}

		// Store an answer that no longer produces the target.
		c, err := badger.Open(badger.DefaultConfig(dir))
		require.NoError(t, err)
		require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{1, 1, 1}, Value: 1, Policy: "max"}))
		require.NoError(t, c.Close())

		stdout, logs, err := RunMainObserved(t, "solve", "../../testdata/sum.alu", "--output", "w", "--target", "1", "--cache-dir", dir)
		require.NoError(t, err)
		require.Equal(t, "819\n", stdout)
		require.Equal(t, 1, logs.FilterMessage("discarding cached answer").Len())
		require.Equal(t, []string{"solver"}, AnswerSources(logs))

		c, err = badger.Open(badger.DefaultConfig(dir))
		require.NoError(t, err)
		defer c.Close()

		answer, err := c.Get(key)
		require.NoError(t, err)
		require.Equal(t, "819", answer.String())
	})
}

func TestRunCommand(t *testing.T) {
	stdout, err := RunMain(t, "run", "../../testdata/sum.alu", "819")
	require.NoError(t, err)
	require.Equal(t, "w=1\nx=1\ny=9\nz=0\n", stdout)

	_, err = RunMain(t, "run", "../../testdata/sum.alu", "81")
	require.Error(t, err)

	_, err = RunMain(t, "run", "../../testdata/sum.alu", "8a9")
	require.Error(t, err)
}

func TestPrintCommand(t *testing.T) {
	t.Run("Dump", func(t *testing.T) {
		stdout, err := RunMain(t, "print", "../../testdata/sum.alu", "--output", "w")
		require.NoError(t, err)
		require.Equal(t, ""+
			"%1 = inp d0\n"+
			"%2 = inp d1\n"+
			"%3 = add %1 %2\n"+
			"%4 = inp d2\n"+
			"%5 = eql %3 %4\n",
			stdout)
	})

	t.Run("Expr", func(t *testing.T) {
		stdout, err := RunMain(t, "print", "../../testdata/sum.alu", "--output", "w", "--expr")
		require.NoError(t, err)
		require.Equal(t, "(eql (add d0 d1) d2)\n", stdout)
	})

	t.Run("Raw", func(t *testing.T) {
		stdout, err := RunMain(t, "print", "../../testdata/sum.alu", "--output", "w", "--raw")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stdout, "%1 "))
		require.Contains(t, stdout, "Kind:")
	})
}

func TestWatchCommand(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "prog.alu")
	text, err := os.ReadFile("../../testdata/sum.alu")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filename, text, 0666))

	var stdout SyncBuffer
	m := NewMain(&stdout, &stdout)
	m.Logger = zaptest.NewLogger(t)

	config := DefaultConfig()
	config.Program, config.Output, config.Target = filename, "w", 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWatchCommand(m).Run(ctx, config) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool { return stdout.String() == "819\n" }, 10*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filename, []byte("inp w\ninp x\nmul w x\n"), 0666))
	require.Eventually(t, func() bool { return strings.HasSuffix(stdout.String(), "11\n") }, 10*time.Second, 10*time.Millisecond)
}

func TestReadConfigFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("OK", func(t *testing.T) {
		filename := filepath.Join(dir, "ok.yaml")
		require.NoError(t, os.WriteFile(filename, []byte("program: a.alu\nregisters: [a, b]\noutput: b\nworkers: 2\n"), 0666))

		config, err := ReadConfigFile(filename)
		require.NoError(t, err)
		require.Equal(t, Config{
			Program:   "a.alu",
			Policy:    "max",
			Output:    "b",
			Registers: []string{"a", "b"},
			Workers:   2,
		}, config)
		require.NoError(t, config.Validate())
	})

	t.Run("ErrUnknownField", func(t *testing.T) {
		filename := filepath.Join(dir, "unknown.yaml")
		require.NoError(t, os.WriteFile(filename, []byte("program: a.alu\nthreads: 2\n"), 0666))

		_, err := ReadConfigFile(filename)
		require.Error(t, err)
	})

	t.Run("PolicyNames", func(t *testing.T) {
		for _, policy := range []string{"max", "min", "maximize", "minimize", "largest", "smallest", "MAX"} {
			config := DefaultConfig()
			config.Program, config.Policy = "a.alu", policy
			require.NoError(t, config.Validate(), policy)
		}

		config := DefaultConfig()
		config.Program, config.Policy = "a.alu", "median"
		require.Error(t, config.Validate())
	})

	t.Run("ErrValidate", func(t *testing.T) {
		config := DefaultConfig()
		config.Program = "a.alu"
		config.Workers = -1
		require.Error(t, config.Validate())
	})
}

// RunMain executes the program with args and returns its standard output.
func RunMain(tb testing.TB, args ...string) (string, error) {
	tb.Helper()

	var stdout, stderr bytes.Buffer
	m := NewMain(&stdout, &stderr)
	m.Logger = zaptest.NewLogger(tb)
	err := m.Run(context.Background(), args)
	return stdout.String(), err
}

// RunMainObserved executes the program with args and returns its standard
// output along with every log entry written at info level or above.
func RunMainObserved(tb testing.TB, args ...string) (string, *observer.ObservedLogs, error) {
	tb.Helper()

	core, logs := observer.New(zap.InfoLevel)
	var stdout, stderr bytes.Buffer
	m := NewMain(&stdout, &stderr)
	m.Logger = zap.New(core)
	err := m.Run(context.Background(), args)
	return stdout.String(), logs, err
}

// AnswerSources returns the source of each logged answer, in order.
func AnswerSources(logs *observer.ObservedLogs) []string {
	var a []string
	for _, entry := range logs.FilterMessage("answer").All() {
		a = append(a, entry.ContextMap()["source"].(string))
	}
	return a
}

// SyncBuffer is a bytes.Buffer safe for concurrent use.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
