package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"gopkg.in/yaml.v3"

	"binfill/internal/registry"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func assign(t *testing.T, reg *registry.Registry, bin string, ids ...string) {
	t.Helper()
	if _, err := reg.Assign(bin, ids); err != nil {
		t.Fatalf("Assign(%s): %v", bin, err)
	}
}

func writeChanged(t *testing.T, reg *registry.Registry) registry.WriteReport {
	t.Helper()
	report, err := reg.Write(reg.Changed())
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	return report
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func TestWritePreservesObjectFields(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "frontend-1-ids.json",
		`{"group":"frontend","focus":"UI work","ids":["fe-10","fe-2"],"owner":{"team":"web","size":3},"notes":"keep <this> & that"}`)

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "frontend-1", "fe-1")
	report := writeChanged(t, reg)
	if len(report.Written) != 1 || report.Written[0] != "frontend-1" {
		t.Fatalf("unexpected report: %+v", report)
	}

	newGolden(t).Assert(t, "object_preserves_fields", readFile(t, path))
}

func TestWriteKeepsListShape(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a-1-ids.json", `["a-beta","a-3","a-1"]`)

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "a-1", "a-2")
	writeChanged(t, reg)

	newGolden(t).Assert(t, "list_shape", readFile(t, path))
}

func TestWriteAppendsMissingIDsField(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "legacy-1-ids.json", `{"focus":"legacy"}`)

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "legacy-1", "bf-2", "bf-1")
	writeChanged(t, reg)

	newGolden(t).Assert(t, "object_appends_ids", readFile(t, path))
}

func TestWriteCreatesNewBinDocument(t *testing.T) {
	dir := t.TempDir()
	reg := load(t, dir, registry.Options{Capacity: 5})
	bin, err := reg.Create("ops-1a", "ops", "Overflow: ops", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assign(t, reg, "ops-1a", "op-11", "op-2")
	writeChanged(t, reg)

	if bin.New {
		t.Fatalf("bin should no longer be marked new after write")
	}
	path := filepath.Join(dir, "ops-1a-ids.json")
	newGolden(t).Assert(t, "new_bin", readFile(t, path))

	again, err := registry.Load(dir, registry.Options{Capacity: 5})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded, ok := again.Bin("ops-1a")
	if !ok || reloaded.Group != "ops" || reloaded.Focus != "Overflow: ops" || reloaded.Len() != 2 {
		t.Fatalf("unexpected reloaded bin: %+v", reloaded)
	}
}

func TestWriteYAMLObjectKeepsFieldOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "docs-1-ids.yaml", "group: docs\nfocus: Documentation\nids:\n  - d-10\nowner: sam\n")

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "docs-1", "d-9", "d-100")
	writeChanged(t, reg)

	var node yaml.Node
	if err := yaml.Unmarshal(readFile(t, path), &node); err != nil {
		t.Fatalf("written yaml does not parse: %v", err)
	}
	mapping := node.Content[0]
	var keys []string
	for i := 0; i < len(mapping.Content); i += 2 {
		keys = append(keys, mapping.Content[i].Value)
	}
	if got := strings.Join(keys, ","); got != "group,focus,ids,owner" {
		t.Fatalf("unexpected key order: %s", got)
	}
	var ids []string
	for _, item := range mapping.Content[5].Content {
		ids = append(ids, item.Value)
	}
	if got := strings.Join(ids, ","); got != "d-9,d-10,d-100" {
		t.Fatalf("unexpected ids: %s", got)
	}
}

func TestWriteYAMLListQuotesNumericIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "nums-1-ids.yml", "- \"7\"\n")

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "nums-1", "12")
	writeChanged(t, reg)

	var ids []any
	if err := yaml.Unmarshal(readFile(t, path), &ids); err != nil {
		t.Fatalf("written yaml does not parse: %v", err)
	}
	if len(ids) != 2 || ids[0] != "7" || ids[1] != "12" {
		t.Fatalf("expected string ids [7 12], got %#v", ids)
	}
}

func TestWriteUsesConfiguredFormatForNewBins(t *testing.T) {
	dir := t.TempDir()
	reg := load(t, dir, registry.Options{Format: registry.FormatYAML})
	if _, err := reg.Create("core-2b", "core", "Overflow: core", 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	assign(t, reg, "core-2b", "c-1")
	writeChanged(t, reg)

	data := readFile(t, filepath.Join(dir, "core-2b-ids.yaml"))
	var doc struct {
		Group string   `yaml:"group"`
		Focus string   `yaml:"focus"`
		IDs   []string `yaml:"ids"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Group != "core" || doc.Focus != "Overflow: core" || len(doc.IDs) != 1 || doc.IDs[0] != "c-1" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestWriteSkipsExternallyEditedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "core-1-ids.json", `["c-1"]`)
	other := writeDoc(t, dir, "core-2-ids.json", `["c-2"]`)

	reg := load(t, dir, registry.Options{})
	assign(t, reg, "core-1", "c-3")
	assign(t, reg, "core-2", "c-4")

	edited := `["c-1","c-99"]`
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("edit: %v", err)
	}

	report, err := reg.Write(reg.Changed())
	if !errors.Is(err, registry.ErrExternalEdit) {
		t.Fatalf("expected ErrExternalEdit, got %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0].Bin != "core-1" {
		t.Fatalf("unexpected failures: %+v", report.Failed)
	}
	if len(report.Written) != 1 || report.Written[0] != "core-2" {
		t.Fatalf("expected core-2 still written, got %+v", report.Written)
	}
	if got := string(readFile(t, path)); got != edited {
		t.Fatalf("edited document was overwritten: %s", got)
	}
	if !strings.Contains(string(readFile(t, other)), `"c-4"`) {
		t.Fatalf("core-2 missing new id")
	}
}

func TestWriteRejectsReadOnlyBin(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "done-1-ids.json", `{"status":"complete","ids":[]}`)

	reg := load(t, dir, registry.Options{})
	report, err := reg.Write([]string{"done-1"})
	if !errors.Is(err, registry.ErrReadOnly) || len(report.Failed) != 1 {
		t.Fatalf("expected read-only failure, got %v %+v", err, report)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "core-1-ids.json", `["c-1"]`)
	reg := load(t, dir, registry.Options{})
	assign(t, reg, "core-1", "c-2")
	writeChanged(t, reg)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
