package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binfill/internal/config"
)

// Item is a backlog record written by WriteItems.
type Item struct {
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Type   string `json:"issue_type,omitempty"`
	Status string `json:"status,omitempty"`
}

// WriteItems replaces the item source with one JSON line per item.
func WriteItems(t testing.TB, cfg *config.Config, items ...Item) {
	t.Helper()

	var b strings.Builder
	for _, item := range items {
		if item.Status == "" {
			item.Status = "open"
		}
		if item.Type == "" {
			item.Type = "task"
		}
		line, err := json.Marshal(item)
		if err != nil {
			t.Fatalf("marshal item %s: %v", item.ID, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	WriteRaw(t, cfg.Paths.ItemsPath, b.String())
}

// AppendItems adds items to the end of the existing item source.
func AppendItems(t testing.TB, cfg *config.Config, items ...Item) {
	t.Helper()

	existing, err := os.ReadFile(cfg.Paths.ItemsPath)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read items: %v", err)
	}
	WriteItems(t, cfg, items...)
	added, err := os.ReadFile(cfg.Paths.ItemsPath)
	if err != nil {
		t.Fatalf("read items: %v", err)
	}
	WriteRaw(t, cfg.Paths.ItemsPath, string(existing)+string(added))
}

// WriteBin writes a raw bin document named "<name>-ids.json" into the bin directory.
func WriteBin(t testing.TB, cfg *config.Config, name, content string) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.BinDir, name+"-ids.json")
	WriteRaw(t, path, content)
	return path
}

// WriteRaw writes content to path, creating parent directories.
func WriteRaw(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SnapshotBins returns the contents of every file in the bin directory keyed by name.
func SnapshotBins(t testing.TB, cfg *config.Config) map[string]string {
	t.Helper()

	entries, err := os.ReadDir(cfg.Paths.BinDir)
	if err != nil {
		t.Fatalf("read bin dir: %v", err)
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(cfg.Paths.BinDir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		out[entry.Name()] = string(data)
	}
	return out
}
