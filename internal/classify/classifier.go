package classify

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"binfill/internal/config"
)

// Rule maps an attribute prefix to a group name.
type Rule struct {
	Prefix string
	Group  string
}

// Classifier maps classification attributes to group names using an ordered
// prefix table. The zero value sends everything to the fallback groups, which
// are empty strings; use New.
type Classifier struct {
	rules        []Rule
	rootConfig   string
	crossCutting string
}

// New builds a classifier. Rule prefixes are normalized the same way as
// attributes so table authors may use either separator.
func New(rules []Rule, rootConfigGroup, crossCuttingGroup string) *Classifier {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		prefix := Normalize(r.Prefix)
		if prefix == "" || strings.TrimSpace(r.Group) == "" {
			continue
		}
		normalized = append(normalized, Rule{Prefix: prefix, Group: strings.TrimSpace(r.Group)})
	}
	return &Classifier{
		rules:        normalized,
		rootConfig:   rootConfigGroup,
		crossCutting: crossCuttingGroup,
	}
}

// FromConfig builds a classifier from the [classifier] section.
func FromConfig(cfg config.Classifier) *Classifier {
	rules := make([]Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, Rule{Prefix: r.Prefix, Group: r.Group})
	}
	return New(rules, cfg.RootConfigGroup, cfg.CrossCuttingGroup)
}

// Classify returns the group for attribute. The first matching prefix wins.
// Unmatched attributes without a separator are root-level configuration
// files; everything else, including the empty attribute, is cross-cutting.
func (c *Classifier) Classify(attribute string) string {
	attr := Normalize(attribute)
	if attr == "" {
		return c.crossCutting
	}
	for _, r := range c.rules {
		if strings.HasPrefix(attr, r.Prefix) {
			return r.Group
		}
	}
	if !strings.Contains(attr, "/") {
		return c.rootConfig
	}
	return c.crossCutting
}

// Rules returns a copy of the normalized rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Normalize converts an attribute to canonical form: trimmed, forward
// slashes, no leading "./", Unicode NFC.
func Normalize(attribute string) string {
	attr := strings.TrimSpace(attribute)
	if attr == "" {
		return ""
	}
	attr = strings.ReplaceAll(attr, "\\", "/")
	for strings.HasPrefix(attr, "./") {
		attr = strings.TrimPrefix(attr, "./")
	}
	return norm.NFC.String(attr)
}
