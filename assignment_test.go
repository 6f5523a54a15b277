package alu_test

import (
	"testing"

	"github.com/benbjohnson/alu"
	"github.com/google/go-cmp/cmp"
)

func TestAssignment_Set(t *testing.T) {
	a := alu.NewAssignment(5, 0, 7)
	if d, ok := a.Get(0); !ok || d != 5 {
		t.Fatalf("unexpected digit: %d, %v", d, ok)
	} else if _, ok := a.Get(1); ok {
		t.Fatal("expected slot 1 unconstrained")
	} else if n := a.Len(); n != 2 {
		t.Fatalf("unexpected length: %d", n)
	} else if s := a.String(); s != "{0:5 2:7}" {
		t.Fatalf("unexpected string: %s", s)
	}

	t.Run("Overwrite", func(t *testing.T) {
		b := a.Set(0, 3)
		if d, _ := b.Get(0); d != 3 {
			t.Fatalf("unexpected digit: %d", d)
		} else if d, _ := a.Get(0); d != 5 {
			t.Fatalf("receiver modified: %d", d)
		}
	})

	t.Run("HighSlots", func(t *testing.T) {
		b := alu.Assignment{}.Set(17, 4).Set(40, 9).Set(63, 1)
		if s := b.String(); s != "{17:4 40:9 63:1}" {
			t.Fatalf("unexpected string: %s", s)
		} else if b.Mask() != 1<<17|1<<40|1<<63 {
			t.Fatalf("unexpected mask: %x", b.Mask())
		}
	})

	t.Run("ErrDigitOutOfRange", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		alu.Assignment{}.Set(0, 10)
	})
}

func TestAssignment_Merge(t *testing.T) {
	t.Run("Agree", func(t *testing.T) {
		a, ok := alu.NewAssignment(5).Merge(alu.NewAssignment(5))
		if !ok {
			t.Fatal("expected merge")
		} else if a != alu.NewAssignment(5) {
			t.Fatalf("unexpected assignment: %s", a)
		}
	})

	t.Run("Conflict", func(t *testing.T) {
		if _, ok := alu.NewAssignment(5).Merge(alu.NewAssignment(7)); ok {
			t.Fatal("expected conflict")
		}
	})

	t.Run("Disjoint", func(t *testing.T) {
		a, ok := alu.NewAssignment(5, 0, 1).Merge(alu.NewAssignment(0, 9))
		if !ok {
			t.Fatal("expected merge")
		} else if a != alu.NewAssignment(5, 9, 1) {
			t.Fatalf("unexpected assignment: %s", a)
		}
	})

	t.Run("ConflictHighSlot", func(t *testing.T) {
		x := alu.Assignment{}.Set(3, 2).Set(50, 6)
		y := alu.Assignment{}.Set(50, 7)
		if _, ok := x.Merge(y); ok {
			t.Fatal("expected conflict")
		} else if _, ok := x.Merge(y.Set(50, 6)); !ok {
			t.Fatal("expected merge")
		}
	})
}

func TestAssignment_Project(t *testing.T) {
	a := alu.NewAssignment(1, 2, 3, 4).Project(1<<1 | 1<<3 | 1<<8)
	if a != alu.NewAssignment(0, 2, 0, 4) {
		t.Fatalf("unexpected assignment: %s", a)
	}
}

func TestAssignment_Digits(t *testing.T) {
	a := alu.NewAssignment(0, 3)
	if diff := cmp.Diff(a.Digits(4, 9), []int{9, 3, 9, 9}); diff != "" {
		t.Fatal(diff)
	}
}

func TestPolicy_Compare(t *testing.T) {
	t.Run("Maximize", func(t *testing.T) {
		if alu.Maximize.Compare(alu.NewAssignment(9, 1), alu.NewAssignment(8, 9)) <= 0 {
			t.Fatal("expected 91 preferred over 89")
		} else if alu.Maximize.Compare(alu.NewAssignment(3, 4), alu.NewAssignment(3, 4)) != 0 {
			t.Fatal("expected equal")
		}

		// Unconstrained slots compare as the preferred digit.
		if alu.Maximize.Compare(alu.NewAssignment(5), alu.NewAssignment(5, 8)) <= 0 {
			t.Fatal("expected unconstrained slot preferred")
		}
	})

	t.Run("Minimize", func(t *testing.T) {
		if alu.Minimize.Compare(alu.NewAssignment(1, 9), alu.NewAssignment(2, 1)) <= 0 {
			t.Fatal("expected 19 preferred over 21")
		} else if alu.Minimize.Compare(alu.NewAssignment(5, 2), alu.NewAssignment(5)) >= 0 {
			t.Fatal("expected unconstrained slot preferred")
		}
	})

	t.Run("LaterWord", func(t *testing.T) {
		x := alu.Assignment{}.Set(0, 4).Set(20, 9)
		y := alu.Assignment{}.Set(0, 4).Set(20, 8)
		if alu.Maximize.Compare(x, y) <= 0 {
			t.Fatal("expected x preferred")
		} else if alu.Minimize.Compare(x, y) >= 0 {
			t.Fatal("expected y preferred")
		}
	})
}

func TestParsePolicy(t *testing.T) {
	if p, err := alu.ParsePolicy("MAX"); err != nil {
		t.Fatal(err)
	} else if p != alu.Maximize {
		t.Fatalf("unexpected policy: %s", p)
	}

	if p, err := alu.ParsePolicy("smallest"); err != nil {
		t.Fatal(err)
	} else if p != alu.Minimize || p.Digit() != 1 {
		t.Fatalf("unexpected policy: %s", p)
	}

	if _, err := alu.ParsePolicy("median"); err == nil {
		t.Fatal("expected error")
	}
}
