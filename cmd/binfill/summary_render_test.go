package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"binfill/internal/engine"
	"binfill/internal/registry"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
}

func TestSummaryLinesCallouts(t *testing.T) {
	s := &engine.Summary{
		Backlog:  engine.BacklogStats{Lines: 12, Malformed: 1, Duplicates: 1},
		Registry: registry.LoadStats{Documents: 4, Conflicts: 2},
		Bins: []engine.BinChange{
			{Name: "core-1", Group: "core", Added: 2, Count: 2, Capacity: 2, Written: true},
			{Name: "web-1a", Group: "web", Added: 1, Count: 1, Capacity: 2, Created: true, Error: "permission denied"},
		},
		Unplaced:  map[string]int{"web": 3, "api": 1, "ops": 1},
		Exhausted: []string{"api", "web"},
	}
	got := strings.Join(summaryLines(s, false), "\n") + "\n"
	newGoldie(t).Assert(t, "summary_lines", []byte(got))
}

func TestSummaryLinesDryRun(t *testing.T) {
	s := &engine.Summary{
		DryRun:   true,
		Bins:     []engine.BinChange{{Name: "core-1", Group: "core", Added: 1, Count: 1, Capacity: 5, Created: true}},
		Unplaced: map[string]int{},
	}
	got := strings.Join(summaryLines(s, false), "\n") + "\n"
	newGoldie(t).Assert(t, "summary_lines_dry_run", []byte(got))
}

func TestBinChangeStatus(t *testing.T) {
	cases := []struct {
		change engine.BinChange
		dryRun bool
		want   string
	}{
		{engine.BinChange{Created: true}, false, "created"},
		{engine.BinChange{}, false, "updated"},
		{engine.BinChange{Created: true}, true, "would create"},
		{engine.BinChange{}, true, "would update"},
		{engine.BinChange{Error: "disk full"}, false, "write failed"},
	}
	for _, tc := range cases {
		if got := binChangeStatus(tc.change, tc.dryRun); got != tc.want {
			t.Fatalf("binChangeStatus(%+v, %v) = %q, want %q", tc.change, tc.dryRun, got, tc.want)
		}
	}
}

func TestRenderSummaryOmitsTableWithoutBins(t *testing.T) {
	s := &engine.Summary{Unplaced: map[string]int{}}
	if got := renderSummary(s, false); got != "0 bins touched, 0 unplaced\n" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestCalloutRenderPlain(t *testing.T) {
	got := callout{severityWarn, "unplaced", "core: 2 items"}.render(false)
	want := "warn  unplaced       core: 2 items"
	if got != want {
		t.Fatalf("render mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestCalloutRenderColorsOnlyTag(t *testing.T) {
	got := callout{severityError, "write failed", "core-1"}.render(true)
	want := ansiRed + "error" + ansiReset + " write failed   core-1"
	if got != want {
		t.Fatalf("render mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestColorEnabledNonFile(t *testing.T) {
	if colorEnabled(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestColorEnabledHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if colorEnabled(os.Stdout) {
		t.Fatalf("expected NO_COLOR to disable color")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{leftColumn("Bin"), rightColumn("Fill")}, [][]string{{"core-1"}})
	if !strings.Contains(out, "core-1") || !strings.Contains(out, "Fill") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, [][]string{{"x"}}) != "" {
		t.Fatalf("expected empty table without columns")
	}
}

func TestShortRunID(t *testing.T) {
	if got := shortRunID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortRunID = %q", got)
	}
	if got := shortRunID("abc"); got != "abc" {
		t.Fatalf("shortRunID short = %q", got)
	}
}
