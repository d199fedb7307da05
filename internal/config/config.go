package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains storage locations used by a placement run.
type Paths struct {
	BinDir    string `toml:"bin_dir"`
	ItemsPath string `toml:"items_path"`
	StateDir  string `toml:"state_dir"`
}

// Backlog describes how work items are read from the JSONL item source.
type Backlog struct {
	IDField            string   `toml:"id_field"`
	AttributeField     string   `toml:"attribute_field"`
	CategoryField      string   `toml:"category_field"`
	StatusField        string   `toml:"status_field"`
	ExcludedCategories []string `toml:"excluded_categories"`
	TerminalStatuses   []string `toml:"terminal_statuses"`
}

// Placement contains bin capacity and overflow naming defaults.
type Placement struct {
	Capacity            int      `toml:"capacity"`
	ClosedBins          []string `toml:"closed_bins"`
	DefaultOverflowBase int      `toml:"default_overflow_base"`
	SuffixAlphabet      string   `toml:"suffix_alphabet"`
	DocumentFormat      string   `toml:"document_format"`
}

// Rule maps a path prefix to a group. Rules are evaluated in file order.
type Rule struct {
	Prefix string `toml:"prefix"`
	Group  string `toml:"group"`
}

// Classifier holds the ordered prefix table and the fallback group names.
type Classifier struct {
	RootConfigGroup   string `toml:"root_config_group"`
	CrossCuttingGroup string `toml:"cross_cutting_group"`
	Rules             []Rule `toml:"rules"`
}

// Group defines the preferred bins and overflow naming for one group.
type Group struct {
	Name         string   `toml:"name"`
	Focus        string   `toml:"focus"`
	Capacity     int      `toml:"capacity"`
	Bins         []string `toml:"bins"`
	OverflowBase int      `toml:"overflow_base"`
	Suffixes     string   `toml:"suffixes"`
}

// Journal controls the SQLite placement journal.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for binfill.
//
// Configuration sections by subsystem:
//   - Paths: bin storage root, backlog item source, state directory
//   - Backlog: item field names and eligibility filters
//   - Placement: capacity, closed bins, overflow naming
//   - Classifier: ordered prefix rules and fallback groups
//   - Groups: per-group preferred bins and overflow parameters
//   - Journal: SQLite run history
//   - Metrics: Prometheus textfile export
//   - Logging: log format, level, and optional file
type Config struct {
	Paths      Paths      `toml:"paths"`
	Backlog    Backlog    `toml:"backlog"`
	Placement  Placement  `toml:"placement"`
	Classifier Classifier `toml:"classifier"`
	Groups     []Group    `toml:"groups"`
	Journal    Journal    `toml:"journal"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/binfill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("binfill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory. The bin directory is never
// created here: a missing storage root is a configuration error.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// JournalPath returns the SQLite journal location inside the state directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// GroupByName returns the group definition with the given name.
func (c *Config) GroupByName(name string) (Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "binfill")
	}
	return "~/.local/state/binfill"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
