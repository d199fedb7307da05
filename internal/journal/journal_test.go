package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"binfill/internal/config"
	"binfill/internal/journal"
)

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.OpenPath(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndListRuns(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := journal.Run{ID: "aaaa-1111", StartedAt: base, FinishedAt: base.Add(time.Second), BinDir: "/bins", ItemsPath: "/items.jsonl", Pending: 3, Placed: 3, BinsTouched: 2}
	second := journal.Run{ID: "bbbb-2222", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour), BinDir: "/bins", ItemsPath: "/items.jsonl", Pending: 1, Unplaced: 1}

	placements := []journal.Placement{
		{ItemID: "bf-2", Bin: "core-1", Group: "core", Written: true},
		{ItemID: "bf-1", Bin: "core-1", Group: "core", Written: true},
		{ItemID: "bf-9", Bin: "web-1a", Group: "web", Written: false},
	}
	if err := j.RecordRun(ctx, first, placements); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if err := j.RecordRun(ctx, second, nil); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := j.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "bbbb-2222" || runs[1].ID != "aaaa-1111" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if !runs[1].StartedAt.Equal(base) || runs[1].Placed != 3 || runs[1].BinsTouched != 2 {
		t.Fatalf("run fields not round-tripped: %+v", runs[1])
	}

	limited, err := j.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one run with limit, got %d (%v)", len(limited), err)
	}

	got, err := j.RunPlacements(ctx, "aaaa-1111")
	if err != nil {
		t.Fatalf("RunPlacements failed: %v", err)
	}
	if len(got) != 3 || got[0].ItemID != "bf-2" || got[2].Written {
		t.Fatalf("unexpected placements: %+v", got)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"abc-1", "abd-2"} {
		if err := j.RecordRun(ctx, journal.Run{ID: id, StartedAt: now, FinishedAt: now}, nil); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	run, err := j.GetRun(ctx, "abc")
	if err != nil || run == nil || run.ID != "abc-1" {
		t.Fatalf("expected abc-1, got %+v (%v)", run, err)
	}
	if _, err := j.GetRun(ctx, "ab"); err == nil {
		t.Fatalf("expected ambiguous prefix error")
	}
	missing, err := j.GetRun(ctx, "zzz")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown run, got %+v (%v)", missing, err)
	}
}

func TestRecordRunRequiresID(t *testing.T) {
	j := openJournal(t)
	if err := j.RecordRun(context.Background(), journal.Run{}, nil); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestOpenDetectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	_ = j.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := journal.OpenPath(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenUsesStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	j, err := journal.Open(&cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()
	if j.Path() != filepath.Join(cfg.Paths.StateDir, "journal.db") {
		t.Fatalf("unexpected journal path %s", j.Path())
	}
}
