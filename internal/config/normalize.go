package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBacklog()
	c.normalizePlacement()
	c.normalizeClassifier()
	c.normalizeGroups()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("BINFILL_BIN_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.BinDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("BINFILL_ITEMS"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ItemsPath = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.BinDir, err = expandPath(strings.TrimSpace(c.Paths.BinDir)); err != nil {
		return fmt.Errorf("paths.bin_dir: %w", err)
	}
	if c.Paths.ItemsPath, err = expandPath(strings.TrimSpace(c.Paths.ItemsPath)); err != nil {
		return fmt.Errorf("paths.items_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeBacklog() {
	c.Backlog.IDField = fallback(c.Backlog.IDField, defaultIDField)
	c.Backlog.AttributeField = fallback(c.Backlog.AttributeField, defaultAttributeField)
	c.Backlog.CategoryField = fallback(c.Backlog.CategoryField, defaultCategoryField)
	c.Backlog.StatusField = fallback(c.Backlog.StatusField, defaultStatusField)
	c.Backlog.ExcludedCategories = normalizeTags(c.Backlog.ExcludedCategories)
	c.Backlog.TerminalStatuses = normalizeTags(c.Backlog.TerminalStatuses)
}

func (c *Config) normalizePlacement() {
	if c.Placement.Capacity <= 0 {
		c.Placement.Capacity = defaultCapacity
	}
	if c.Placement.DefaultOverflowBase <= 0 {
		c.Placement.DefaultOverflowBase = defaultOverflowBase
	}
	c.Placement.SuffixAlphabet = strings.TrimSpace(c.Placement.SuffixAlphabet)
	if c.Placement.SuffixAlphabet == "" {
		c.Placement.SuffixAlphabet = defaultSuffixAlphabet
	}
	c.Placement.DocumentFormat = strings.ToLower(strings.TrimSpace(c.Placement.DocumentFormat))
	switch c.Placement.DocumentFormat {
	case "", documentFormatJSON:
		c.Placement.DocumentFormat = documentFormatJSON
	case "yml":
		c.Placement.DocumentFormat = documentFormatYAML
	}
	closed := make([]string, 0, len(c.Placement.ClosedBins))
	seen := make(map[string]struct{}, len(c.Placement.ClosedBins))
	for _, name := range c.Placement.ClosedBins {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		closed = append(closed, name)
	}
	c.Placement.ClosedBins = closed
}

func (c *Config) normalizeClassifier() {
	c.Classifier.RootConfigGroup = fallback(c.Classifier.RootConfigGroup, defaultRootConfigGroup)
	c.Classifier.CrossCuttingGroup = fallback(c.Classifier.CrossCuttingGroup, defaultCrossCuttingGroup)
	for i := range c.Classifier.Rules {
		c.Classifier.Rules[i].Prefix = strings.ReplaceAll(strings.TrimSpace(c.Classifier.Rules[i].Prefix), "\\", "/")
		c.Classifier.Rules[i].Group = strings.TrimSpace(c.Classifier.Rules[i].Group)
	}
}

func (c *Config) normalizeGroups() {
	for i := range c.Groups {
		g := &c.Groups[i]
		g.Name = strings.TrimSpace(g.Name)
		g.Focus = strings.TrimSpace(g.Focus)
		if g.Capacity <= 0 {
			g.Capacity = c.Placement.Capacity
		}
		if g.OverflowBase <= 0 {
			g.OverflowBase = c.Placement.DefaultOverflowBase
		}
		g.Suffixes = strings.TrimSpace(g.Suffixes)
		if g.Suffixes == "" {
			g.Suffixes = c.Placement.SuffixAlphabet
		}
		bins := make([]string, 0, len(g.Bins))
		for _, tmpl := range g.Bins {
			name := strings.TrimSpace(strings.ReplaceAll(tmpl, groupNamePlaceholder, g.Name))
			if name != "" {
				bins = append(bins, name)
			}
		}
		g.Bins = bins
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func fallback(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}

func normalizeTags(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
