package alu_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/alu"
	"github.com/google/go-cmp/cmp"
)

func TestMachine_Run(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		regs, err := alu.NewMachine().Run(MustReadProgram(t, "testdata/sum.alu"), []int{8, 1, 9})
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(regs, map[string]int64{"w": 1, "x": 1, "y": 9, "z": 0}); diff != "" {
			t.Fatal(diff)
		}
	})

	// The interpreter computes a true remainder while the builder treats a
	// modulo by one as a no-op.
	t.Run("ModOne", func(t *testing.T) {
		instrs := MustParseProgram(t, "inp w\nmod w 1\n")
		if regs, err := alu.NewMachine().Run(instrs, []int{7}); err != nil {
			t.Fatal(err)
		} else if regs["w"] != 0 {
			t.Fatalf("unexpected value: %d", regs["w"])
		}

		prog := MustBuild(t, "inp w\nmod w 1\n")
		if v, err := alu.Evaluate(prog.DAG, []int{7}, MustOutput(t, prog, "w")); err != nil {
			t.Fatal(err)
		} else if v != 7 {
			t.Fatalf("unexpected value: %d", v)
		}
	})

	t.Run("ErrInputExhausted", func(t *testing.T) {
		_, err := alu.NewMachine().Run(MustReadProgram(t, "testdata/sum.alu"), []int{8, 1})
		if e, ok := err.(*alu.ParseError); !ok || e.Line != 4 {
			t.Fatalf("unexpected error: %#v", err)
		}
	})

	t.Run("ErrDigitOutOfRange", func(t *testing.T) {
		if _, err := alu.NewMachine().Run(MustParseProgram(t, "inp w\n"), []int{10}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("ErrDivideByZero", func(t *testing.T) {
		_, err := alu.NewMachine().Run(MustParseProgram(t, "inp w\ndiv w x\n"), []int{3})
		if !errors.Is(err, alu.ErrInvalidProgram) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrUndeclaredRegister", func(t *testing.T) {
		_, err := alu.NewMachine("a", "b").Run(MustParseProgram(t, "inp a\nadd b w\n"), []int{3})
		if !errors.Is(err, alu.ErrUndeclaredRegister) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
