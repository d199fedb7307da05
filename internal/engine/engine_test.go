package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binfill/internal/config"
	"binfill/internal/engine"
	"binfill/internal/registry"
	"binfill/internal/testsupport"
)

func newEngine(t *testing.T, cfg *config.Config) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg, nil)
	require.NoError(t, err)
	return e
}

func run(t *testing.T, cfg *config.Config, opts engine.Options) *engine.Summary {
	t.Helper()
	summary, err := newEngine(t, cfg).Run(context.Background(), opts)
	require.NoError(t, err)
	return summary
}

func coreItems(ids ...string) []testsupport.Item {
	items := make([]testsupport.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, testsupport.Item{ID: id, Path: "internal/" + id + ".go"})
	}
	return items
}

func readIDs(t *testing.T, cfg *config.Config, bin string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Paths.BinDir, bin+"-ids.json"))
	require.NoError(t, err)
	var doc struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc.IDs
}

func TestRunFillsPreferredBinsThenOverflow(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithCapacity(2),
		testsupport.WithRule("internal/", "core"),
		testsupport.WithGroup(config.Group{Name: "core", Bins: []string{"core-1", "core-2"}}),
	)
	testsupport.WriteItems(t, cfg, coreItems("bf-1", "bf-2", "bf-3", "bf-4", "bf-5")...)

	summary := run(t, cfg, engine.Options{})

	assert.Equal(t, "3 bins touched, 0 unplaced", summary.Line())
	assert.Equal(t, 5, summary.Placed)
	require.Len(t, summary.Bins, 3)
	assert.Equal(t, engine.BinChange{Name: "core-1a", Group: "core", Added: 1, Count: 1, Capacity: 2, Created: true, Written: true}, summary.Bins[2])

	assert.Equal(t, []string{"bf-1", "bf-2"}, readIDs(t, cfg, "core-1"))
	assert.Equal(t, []string{"bf-3", "bf-4"}, readIDs(t, cfg, "core-2"))
	assert.Equal(t, []string{"bf-5"}, readIDs(t, cfg, "core-1a"))
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCapacity(3), testsupport.WithRule("internal/", "core"))
	testsupport.WriteBin(t, cfg, "core-1", `{"group":"core","focus":"Core","ids":["bf-10"],"owner":"sam"}`)
	testsupport.WriteItems(t, cfg, coreItems("bf-10", "bf-2", "bf-33", "bf-4")...)

	first := run(t, cfg, engine.Options{})
	assert.Equal(t, 3, first.Placed)
	after := testsupport.SnapshotBins(t, cfg)

	second := run(t, cfg, engine.Options{})
	assert.Equal(t, 0, second.Touched())
	assert.Equal(t, 0, second.Placed)
	assert.Equal(t, 4, second.AlreadyPlaced)
	assert.Equal(t, after, testsupport.SnapshotBins(t, cfg), "second run must not change any document")
}

func TestRunNeverDuplicatesAcrossRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCapacity(4), testsupport.WithRule("internal/", "core"))

	var all []testsupport.Item
	for batch := range 4 {
		for i := range 5 {
			all = append(all, coreItems(fmt.Sprintf("bf-%d", batch*5+i))...)
		}
		testsupport.WriteItems(t, cfg, all...)
		run(t, cfg, engine.Options{})
	}

	reg, err := registry.Load(cfg.Paths.BinDir, registry.Options{Capacity: 4})
	require.NoError(t, err)
	seen := map[string]string{}
	for _, bin := range reg.Bins() {
		assert.LessOrEqual(t, bin.Len(), bin.Capacity, "bin %s over capacity", bin.Name)
		for _, id := range bin.IDs {
			prev, dup := seen[id]
			assert.False(t, dup, "%s in %s and %s", id, prev, bin.Name)
			seen[id] = bin.Name
		}
	}
	assert.Len(t, seen, 20)
}

func TestRunDoesNotReplaceAlreadyPlacedID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteBin(t, cfg, "alpha", `["X-5"]`)
	testsupport.WriteItems(t, cfg,
		testsupport.Item{ID: "X-5", Path: "src/a.go"},
		testsupport.Item{ID: "X-6", Path: "src/b.go"},
	)

	summary := run(t, cfg, engine.Options{})

	assert.Equal(t, 1, summary.AlreadyPlaced)
	assert.Equal(t, 0, summary.UnplacedTotal())
	assert.Equal(t, []string{"X-6"}, readIDs(t, cfg, "cross-cutting-1a"))
	alpha, err := os.ReadFile(filepath.Join(cfg.Paths.BinDir, "alpha-ids.json"))
	require.NoError(t, err)
	assert.Equal(t, `["X-5"]`, string(alpha), "alpha must be untouched")
}

func TestRunRootLevelAttributeGoesToRootConfigGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRule("internal/", "core"))
	testsupport.WriteItems(t, cfg, testsupport.Item{ID: "bf-1", Path: "Makefile"})

	summary := run(t, cfg, engine.Options{})

	require.Len(t, summary.Bins, 1)
	assert.Equal(t, "root-config", summary.Bins[0].Group)
	assert.Equal(t, "root-config-1a", summary.Bins[0].Name)
}

func TestRunSkipsExcludedAndTerminalItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteItems(t, cfg,
		testsupport.Item{ID: "bf-1", Type: "epic"},
		testsupport.Item{ID: "bf-2", Status: "closed"},
		testsupport.Item{ID: "bf-3"},
	)

	summary := run(t, cfg, engine.Options{})

	assert.Equal(t, 1, summary.Placed)
	assert.Equal(t, 1, summary.Backlog.Excluded)
	assert.Equal(t, 1, summary.Backlog.Terminal)
}

func TestRunReportsExhaustedGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithCapacity(1),
		testsupport.WithRule("internal/", "core"),
		testsupport.WithGroup(config.Group{Name: "core", Suffixes: "a"}),
	)
	testsupport.WriteItems(t, cfg, coreItems("bf-1", "bf-2", "bf-3")...)

	summary := run(t, cfg, engine.Options{})

	assert.Equal(t, map[string]int{"core": 2}, summary.Unplaced)
	assert.Equal(t, "1 bin touched, 2 unplaced", summary.Line())
}

func TestRunSkipsOverflowNameOfUnreadableDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithCapacity(1),
		testsupport.WithRule("internal/", "core"),
		testsupport.WithGroup(config.Group{Name: "core", Suffixes: "ab"}),
	)
	testsupport.WriteBin(t, cfg, "core-1a", `{not json`)
	testsupport.WriteItems(t, cfg, coreItems("bf-1")...)

	summary := run(t, cfg, engine.Options{})

	assert.Equal(t, "1 bin touched, 0 unplaced", summary.Line())
	assert.Equal(t, []string{"bf-1"}, readIDs(t, cfg, "core-1b"))
	assert.Equal(t, 1, summary.Registry.Documents)
	assert.Equal(t, 1, summary.Registry.Malformed)

	second := run(t, cfg, engine.Options{})
	assert.Equal(t, 1, second.AlreadyPlaced)
	assert.Equal(t, 0, second.Touched())

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.BinDir, "core-1a-ids.json"))
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(raw), "unreadable document must be left alone")
}

func TestDryRunWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile("binfill.prom"))
	testsupport.WriteItems(t, cfg, coreItems("bf-1", "bf-2")...)

	summary := run(t, cfg, engine.Options{DryRun: true})

	assert.Equal(t, 2, summary.Placed)
	assert.Empty(t, testsupport.SnapshotBins(t, cfg))
	assert.NoFileExists(t, cfg.JournalPath())
	assert.NoFileExists(t, cfg.Metrics.Textfile)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.BinDir, engine.LockFileName))
}

func TestRunRecordsJournalAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile("metrics/binfill.prom"))
	testsupport.WriteItems(t, cfg, coreItems("bf-2", "bf-1")...)

	summary := run(t, cfg, engine.Options{})

	j := testsupport.MustOpenJournal(t, cfg)
	got, err := j.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Placed)
	assert.Equal(t, 1, got.BinsTouched)

	placements, err := j.RunPlacements(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.Equal(t, "bf-2", placements[0].ItemID)
	assert.True(t, placements[0].Written)

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "binfill_items_placed 2")
}

func TestRunFailsWithoutBinDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, os.Remove(cfg.Paths.BinDir))
	testsupport.WriteItems(t, cfg, coreItems("bf-1")...)

	_, err := newEngine(t, cfg).Run(context.Background(), engine.Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	assert.ErrorIs(t, err, registry.ErrRootUnavailable)
}

func TestRunFailsWithoutItemSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := newEngine(t, cfg).Run(context.Background(), engine.Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteItems(t, cfg, coreItems("bf-1")...)

	lock := flock.New(filepath.Join(cfg.Paths.BinDir, engine.LockFileName))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = newEngine(t, cfg).Run(context.Background(), engine.Options{})
	assert.ErrorIs(t, err, engine.ErrLocked)
	assert.Empty(t, testsupport.SnapshotBins(t, cfg))
}

func TestRunHonorsCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteItems(t, cfg, coreItems("bf-1")...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t, cfg).Run(ctx, engine.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, testsupport.SnapshotBins(t, cfg))
}
