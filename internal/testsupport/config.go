package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"binfill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The bin directory exists and is empty; the item source path is set but the
// file is not created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BinDir = filepath.Join(base, "bins")
	cfgVal.Paths.ItemsPath = filepath.Join(base, "items.jsonl")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	if err := os.MkdirAll(cfgVal.Paths.BinDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCapacity sets the global bin capacity.
func WithCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Placement.Capacity = capacity
	}
}

// WithGroup appends a group definition.
func WithGroup(group config.Group) ConfigOption {
	return func(b *configBuilder) {
		if group.Suffixes == "" {
			group.Suffixes = b.cfg.Placement.SuffixAlphabet
		}
		if group.OverflowBase == 0 {
			group.OverflowBase = b.cfg.Placement.DefaultOverflowBase
		}
		b.cfg.Groups = append(b.cfg.Groups, group)
	}
}

// WithRule appends a classifier prefix rule.
func WithRule(prefix, group string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.Rules = append(b.cfg.Classifier.Rules, config.Rule{Prefix: prefix, Group: group})
	}
}

// WithJournal toggles the SQLite journal.
func WithJournal(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = enabled
	}
}

// WithMetricsTextfile points the metrics export inside the test directory.
func WithMetricsTextfile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, name)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BinDir)
}

// WriteConfigFile serializes cfg to config.toml in the test directory and
// returns its path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
