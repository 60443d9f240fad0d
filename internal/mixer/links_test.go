package mixer

import (
	"errors"
	"reflect"
	"testing"

	"ftumix/internal/control"
)

func TestLinkTableSetAndClear(t *testing.T) {
	l := NewLinkTable(4)

	if err := l.SetLink(1, 0); err != nil {
		t.Fatalf("SetLink(1, 0): %v", err)
	}
	if target, ok := l.Target(1); !ok || target != 0 {
		t.Fatalf("Target(1) = %d, %v, want 0, true", target, ok)
	}
	if _, ok := l.Target(0); ok {
		t.Fatal("Target(0) reports a link that was never set")
	}

	// Relinking replaces the previous target.
	if err := l.SetLink(1, 3); err != nil {
		t.Fatalf("SetLink(1, 3): %v", err)
	}
	if target, _ := l.Target(1); target != 3 {
		t.Fatalf("Target(1) = %d after relink, want 3", target)
	}

	if err := l.ClearLink(1); err != nil {
		t.Fatalf("ClearLink(1): %v", err)
	}
	if _, ok := l.Target(1); ok {
		t.Fatal("Target(1) survives ClearLink")
	}
	if err := l.ClearLink(1); err != nil {
		t.Fatalf("ClearLink on an unlinked output: %v", err)
	}
}

func TestLinkTableRejectsSelfAndOutOfRange(t *testing.T) {
	l := NewLinkTable(4)

	if err := l.SetLink(2, 2); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("SetLink(2, 2) error = %v, want ErrInvalidLink", err)
	}
	for _, tc := range []struct{ output, target int }{
		{-1, 0},
		{4, 0},
		{0, -2},
		{0, 4},
	} {
		if err := l.SetLink(tc.output, tc.target); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("SetLink(%d, %d) error = %v, want ErrIndexOutOfRange", tc.output, tc.target, err)
		}
	}
	if err := l.ClearLink(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("ClearLink(9) error = %v, want ErrIndexOutOfRange", err)
	}
	if len(l.Links()) != 0 {
		t.Fatal("rejected links were stored")
	}
}

func TestLinkTableAllowsCycles(t *testing.T) {
	l := NewLinkTable(2)
	if err := l.SetLink(0, 1); err != nil {
		t.Fatalf("SetLink(0, 1): %v", err)
	}
	if err := l.SetLink(1, 0); err != nil {
		t.Fatalf("SetLink(1, 0): %v", err)
	}
	want := map[int]int{0: 1, 1: 0}
	if got := l.Links(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Links() = %v, want %v", got, want)
	}
}

func TestLinkTableSnapshotIsTotal(t *testing.T) {
	l := NewLinkTable(3)
	if err := l.SetLink(2, 0); err != nil {
		t.Fatalf("SetLink: %v", err)
	}
	want := map[int]int{0: control.NoLink, 1: control.NoLink, 2: 0}
	if got := l.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
}

func TestLinkTableApply(t *testing.T) {
	l := NewLinkTable(4)
	if err := l.SetLink(0, 1); err != nil {
		t.Fatalf("SetLink: %v", err)
	}
	if err := l.SetLink(3, 2); err != nil {
		t.Fatalf("SetLink: %v", err)
	}

	l.apply(map[int]int{
		0:  control.NoLink, // explicit clear
		1:  3,              // new link
		2:  2,              // self link, skipped
		5:  0,              // output outside the grid, skipped
		3:  9,              // target outside the grid, skipped
		-1: 0,              // negative output, skipped
	})

	want := map[int]int{1: 3, 3: 2}
	if got := l.Links(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Links() after apply = %v, want %v", got, want)
	}
}
