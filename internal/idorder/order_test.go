package idorder_test

import (
	"strings"
	"testing"

	"binfill/internal/idorder"
)

func TestSortNumericSuffix(t *testing.T) {
	ids := []string{"bf-10", "bf-2", "bf-1", "bf-100", "bf-20"}
	idorder.Sort(ids)

	want := "bf-1,bf-2,bf-10,bf-20,bf-100"
	if got := strings.Join(ids, ","); got != want {
		t.Fatalf("unexpected order: got %s want %s", got, want)
	}
}

func TestSortNonNumericLast(t *testing.T) {
	ids := []string{"bf-beta", "bf-3", "bf-alpha", "bf-1"}
	idorder.Sort(ids)

	want := "bf-1,bf-3,bf-alpha,bf-beta"
	if got := strings.Join(ids, ","); got != want {
		t.Fatalf("unexpected order: got %s want %s", got, want)
	}
}

func TestCompareTieBreaksLexically(t *testing.T) {
	// Same numeric value, different spelling.
	if c := idorder.Compare("bf-007", "bf-7"); c >= 0 {
		t.Fatalf("expected bf-007 before bf-7, got %d", c)
	}
	if c := idorder.Compare("bf-7", "bf-7"); c != 0 {
		t.Fatalf("expected equal ids to compare 0, got %d", c)
	}
}

func TestCompareHandlesHugeNumbers(t *testing.T) {
	big := "bf-123456789012345678901234567890"
	if c := idorder.Compare("bf-99", big); c >= 0 {
		t.Fatalf("expected shorter number first, got %d", c)
	}
}

func TestSortedLeavesInputUntouched(t *testing.T) {
	in := []string{"b-2", "b-1"}
	out := idorder.Sorted(in)
	if in[0] != "b-2" {
		t.Fatalf("input mutated: %v", in)
	}
	if !idorder.IsSorted(out) {
		t.Fatalf("expected sorted output, got %v", out)
	}
	if idorder.IsSorted(in) {
		t.Fatalf("expected input reported unsorted")
	}
}
