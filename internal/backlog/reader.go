package backlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"binfill/internal/config"
	"binfill/internal/logging"
)

// ErrSourceUnavailable indicates the item source could not be opened.
var ErrSourceUnavailable = errors.New("item source unavailable")

const maxLineBytes = 16 * 1024 * 1024

// Item is one backlog record.
type Item struct {
	ID        string
	Attribute string
	Category  string
	Status    string
	Line      int
}

// Options describes which fields carry the item data and which items are
// ineligible for placement.
type Options struct {
	IDField            string
	AttributeField     string
	CategoryField      string
	StatusField        string
	ExcludedCategories []string
	TerminalStatuses   []string
}

// OptionsFromConfig maps the [backlog] section to reader options.
func OptionsFromConfig(cfg config.Backlog) Options {
	return Options{
		IDField:            cfg.IDField,
		AttributeField:     cfg.AttributeField,
		CategoryField:      cfg.CategoryField,
		StatusField:        cfg.StatusField,
		ExcludedCategories: cfg.ExcludedCategories,
		TerminalStatuses:   cfg.TerminalStatuses,
	}
}

// Result holds eligible items in discovery order plus skip counters.
type Result struct {
	Items      []Item
	Lines      int
	Malformed  int
	MissingID  int
	Duplicates int
	Excluded   int
	Terminal   int
}

// Load reads the JSONL item source at path.
func Load(path string, opts Options, logger *slog.Logger) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s does not exist", ErrSourceUnavailable, path)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer file.Close()
	return Read(file, opts, logger)
}

// Read parses JSONL records from r. Malformed lines, records without an id,
// and repeated ids are skipped with a line-indexed warning; only a read
// failure of the stream itself is returned as an error.
func Read(r io.Reader, opts Options, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "backlog")
	opts = withDefaults(opts)
	excluded := toSet(opts.ExcludedCategories)
	terminal := toSet(opts.TerminalStatuses)

	var res Result
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		record, err := decodeRecord(line)
		if err != nil {
			res.Malformed++
			logging.WarnWithContext(logger, "skipping malformed item record", "backlog_line_malformed",
				logging.Int(logging.FieldLine, lineNo),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the JSON on this line of the item source"),
				logging.String(logging.FieldImpact, "item on this line is not placed"))
			continue
		}

		item := Item{
			ID:        lookupString(record, opts.IDField),
			Attribute: lookupString(record, opts.AttributeField),
			Category:  strings.ToLower(lookupString(record, opts.CategoryField)),
			Status:    strings.ToLower(lookupString(record, opts.StatusField)),
			Line:      lineNo,
		}
		if item.ID == "" {
			res.MissingID++
			logging.WarnWithContext(logger, "skipping item record without id", "backlog_missing_id",
				logging.Int(logging.FieldLine, lineNo),
				logging.String("id_field", opts.IDField),
				logging.String(logging.FieldImpact, "item on this line is not placed"))
			continue
		}
		if first, dup := seen[item.ID]; dup {
			res.Duplicates++
			logging.WarnWithContext(logger, "skipping repeated item id", "backlog_duplicate_id",
				logging.Int(logging.FieldLine, lineNo),
				logging.String(logging.FieldItemID, item.ID),
				logging.Int("first_line", first),
				logging.String(logging.FieldImpact, "first occurrence wins"))
			continue
		}
		seen[item.ID] = lineNo

		if _, skip := excluded[item.Category]; skip && item.Category != "" {
			res.Excluded++
			continue
		}
		if _, skip := terminal[item.Status]; skip && item.Status != "" {
			res.Terminal++
			continue
		}
		res.Items = append(res.Items, item)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read item source at line %d: %w", lineNo+1, err)
	}

	logger.Debug("item source loaded",
		logging.Int("lines", res.Lines),
		logging.Int("eligible", len(res.Items)),
		logging.Int("excluded", res.Excluded),
		logging.Int("terminal", res.Terminal),
		logging.Int("malformed", res.Malformed))
	return res, nil
}

func decodeRecord(line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("record is not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return record, nil
}

// lookupString resolves a possibly dotted field name ("meta.path") and
// renders scalar values as strings.
func lookupString(record map[string]any, field string) string {
	var current any = record
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}
	switch v := current.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func withDefaults(opts Options) Options {
	def := config.Default().Backlog
	if strings.TrimSpace(opts.IDField) == "" {
		opts.IDField = def.IDField
	}
	if strings.TrimSpace(opts.AttributeField) == "" {
		opts.AttributeField = def.AttributeField
	}
	if strings.TrimSpace(opts.CategoryField) == "" {
		opts.CategoryField = def.CategoryField
	}
	if strings.TrimSpace(opts.StatusField) == "" {
		opts.StatusField = def.StatusField
	}
	return opts
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
