package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlacement(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateGroups(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.BinDir == "" {
		return errors.New("paths.bin_dir must be set (or export BINFILL_BIN_DIR)")
	}
	if c.Paths.ItemsPath == "" {
		return errors.New("paths.items_path must be set (or export BINFILL_ITEMS)")
	}
	return nil
}

func (c *Config) validatePlacement() error {
	if c.Placement.Capacity <= 0 {
		return errors.New("placement.capacity must be positive")
	}
	switch c.Placement.DocumentFormat {
	case documentFormatJSON, documentFormatYAML:
	default:
		return fmt.Errorf("placement.document_format must be json or yaml, got %q", c.Placement.DocumentFormat)
	}
	if err := validateAlphabet("placement.suffix_alphabet", c.Placement.SuffixAlphabet); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.RootConfigGroup == c.Classifier.CrossCuttingGroup {
		return errors.New("classifier.root_config_group and classifier.cross_cutting_group must differ")
	}
	if err := validateBinName("classifier.root_config_group", c.Classifier.RootConfigGroup); err != nil {
		return err
	}
	if err := validateBinName("classifier.cross_cutting_group", c.Classifier.CrossCuttingGroup); err != nil {
		return err
	}
	for i, rule := range c.Classifier.Rules {
		if rule.Prefix == "" {
			return fmt.Errorf("classifier.rules[%d].prefix must be set", i)
		}
		if rule.Group == "" {
			return fmt.Errorf("classifier.rules[%d].group must be set", i)
		}
		if err := validateBinName(fmt.Sprintf("classifier.rules[%d].group", i), rule.Group); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateGroups() error {
	names := make(map[string]struct{}, len(c.Groups))
	owners := make(map[string]string)
	for i, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("groups[%d].name must be set", i)
		}
		if err := validateBinName(fmt.Sprintf("groups[%d].name", i), g.Name); err != nil {
			return err
		}
		if _, dup := names[g.Name]; dup {
			return fmt.Errorf("groups[%d].name %q is defined more than once", i, g.Name)
		}
		names[g.Name] = struct{}{}
		if err := validateAlphabet(fmt.Sprintf("groups[%d].suffixes", i), g.Suffixes); err != nil {
			return err
		}
		for _, bin := range g.Bins {
			if err := validateBinName(fmt.Sprintf("groups[%d].bins entry", i), bin); err != nil {
				return err
			}
			if owner, taken := owners[bin]; taken {
				return fmt.Errorf("bin %q is listed by both group %q and group %q", bin, owner, g.Name)
			}
			owners[bin] = g.Name
		}
	}
	return nil
}

// validateBinName rejects values that cannot appear in a bin document file
// name. Group names qualify because overflow bins are named after them.
func validateBinName(key, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s must be set", key)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s %q must not contain path separators", key, name)
	case strings.Contains(name, ".."), strings.HasPrefix(name, "."):
		return fmt.Errorf("%s %q must not start with a dot or contain \"..\"", key, name)
	}
	return nil
}

func validateAlphabet(key, alphabet string) error {
	if alphabet == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if len([]rune(alphabet)) > maxSuffixAlphabetLength {
		return fmt.Errorf("%s must have at most %d letters", key, maxSuffixAlphabetLength)
	}
	seen := make(map[rune]struct{})
	for _, r := range alphabet {
		if r >= '0' && r <= '9' {
			return fmt.Errorf("%s must not contain digits", key)
		}
		if r == '-' || r == '/' || r == '\\' || r == '.' || r == ' ' {
			return fmt.Errorf("%s contains invalid suffix character %q", key, r)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%s repeats suffix %q", key, r)
		}
		seen[r] = struct{}{}
	}
	return nil
}
