package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const docSuffix = "-ids"

// Document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var sequencePattern = regexp.MustCompile(`^(.+)-[0-9]+[\p{L}]*$`)

// parseDocName splits "frontend-3a-ids.json" into the bin name and format.
// ok is false for files that are not bin documents.
func parseDocName(filename string) (name, format string, ok bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return "", "", false
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !strings.HasSuffix(stem, docSuffix) {
		return "", "", false
	}
	name = strings.TrimSuffix(stem, docSuffix)
	if name == "" || strings.HasPrefix(name, ".") {
		return "", "", false
	}
	return name, format, true
}

// docFileName returns the file name used for a new bin document.
func docFileName(name, format string) string {
	ext := ".json"
	if format == FormatYAML {
		ext = ".yaml"
	}
	return name + docSuffix + ext
}

// InferGroup derives a group from a bin name by dropping a trailing
// "-<sequence>" or "-<sequence><suffix>" segment. Names without one are their
// own group.
func InferGroup(name string) string {
	if m := sequencePattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// validName rejects bin names that could place a document outside the root.
func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty bin name", ErrPathEscape)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."), strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: bin name %q", ErrPathEscape, name)
	}
	return nil
}

// resolveRoot returns the absolute, symlink-free storage root.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolveInside follows symlinks for path and verifies the target lies
// strictly inside root, which must already be resolved.
func resolveInside(root, path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrPathEscape, path, resolved)
	}
	return resolved, nil
}
