package placement

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"binfill/internal/config"
	"binfill/internal/logging"
	"binfill/internal/registry"
)

// Store is the in-memory bin index placement mutates.
type Store interface {
	Bin(name string) (*registry.Bin, bool)
	BinsInGroup(group string) []*registry.Bin
	IsPlaced(id string) bool
	IsClosed(name string) bool
	IsReserved(name string) bool
	Create(name, group, focus string, capacity int) (*registry.Bin, error)
	Assign(name string, ids []string) (int, error)
}

// Pending is an unplaced item with its classified group.
type Pending struct {
	ID    string
	Group string
}

// GroupDef holds the preferred bins and overflow naming for one group.
type GroupDef struct {
	Name         string
	Focus        string
	Capacity     int
	Bins         []string
	OverflowBase int
	Suffixes     string
}

// Options supplies defaults for groups without a definition.
type Options struct {
	OverflowBase int
	Suffixes     string
	Logger       *slog.Logger
}

// Assignment records one placed item.
type Assignment struct {
	ItemID string
	Bin    string
	Group  string
}

// Result summarizes one placement pass.
type Result struct {
	// Touched lists bins that received ids, in first-touch order.
	Touched []string
	// Added counts newly placed ids per bin.
	Added map[string]int
	// Created lists bins synthesized or materialized during the pass.
	Created []string
	// Unplaced counts items left over per exhausted group.
	Unplaced map[string]int
	// Exhausted lists groups that ran out of overflow names, in order. Groups
	// in Unplaced but not here stopped because a bin could not be created.
	Exhausted []string
	// AlreadyPlaced counts pending ids skipped because a bin already holds them.
	AlreadyPlaced int
	Assignments   []Assignment
}

// UnplacedTotal sums unplaced items across groups.
func (r Result) UnplacedTotal() int {
	total := 0
	for _, n := range r.Unplaced {
		total += n
	}
	return total
}

// GroupsFromConfig converts configured groups to placement definitions.
func GroupsFromConfig(cfg *config.Config) []GroupDef {
	defs := make([]GroupDef, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		defs = append(defs, GroupDef{
			Name:         g.Name,
			Focus:        g.Focus,
			Capacity:     g.Capacity,
			Bins:         slices.Clone(g.Bins),
			OverflowBase: g.OverflowBase,
			Suffixes:     g.Suffixes,
		})
	}
	return defs
}

// OptionsFromConfig returns placement defaults from the [placement] section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		OverflowBase: cfg.Placement.DefaultOverflowBase,
		Suffixes:     cfg.Placement.SuffixAlphabet,
		Logger:       logger,
	}
}

// Place assigns pending items to bins. Groups are handled in the order their
// first item appears; items keep discovery order within a group. Ids already
// held by a bin, or repeated in pending, are never placed twice. Running out
// of overflow names stops only the affected group.
func Place(store Store, pending []Pending, groups []GroupDef, opts Options) Result {
	logger := logging.NewComponentLogger(opts.Logger, "placement")
	opts = withDefaults(opts)
	defs := make(map[string]GroupDef, len(groups))
	for _, g := range groups {
		defs[g.Name] = g
	}

	res := Result{
		Added:    make(map[string]int),
		Unplaced: make(map[string]int),
	}
	queues, order := partition(store, pending, &res)

	for _, group := range order {
		def, ok := defs[group]
		if !ok {
			def = GroupDef{Name: group}
		}
		if def.OverflowBase <= 0 {
			def.OverflowBase = opts.OverflowBase
		}
		if def.Suffixes == "" {
			def.Suffixes = opts.Suffixes
		}
		left, exhausted := fillGroup(store, logger, def, queues[group], &res)
		if left == 0 {
			continue
		}
		res.Unplaced[group] = left
		if exhausted {
			res.Exhausted = append(res.Exhausted, group)
			logging.WarnWithContext(logger, "overflow names exhausted; items left unplaced", "placement_group_exhausted",
				logging.String(logging.FieldGroup, group),
				logging.Int("unplaced", left),
				logging.String("suffixes", def.Suffixes),
				logging.String(logging.FieldErrorHint, "raise capacity, add preferred bins, or extend the suffix alphabet for this group"),
				logging.String(logging.FieldImpact, "remaining items are placed on a later run once capacity exists"))
		}
	}
	return res
}

func withDefaults(opts Options) Options {
	def := config.Default().Placement
	if opts.OverflowBase <= 0 {
		opts.OverflowBase = def.DefaultOverflowBase
	}
	if opts.Suffixes == "" {
		opts.Suffixes = def.SuffixAlphabet
	}
	return opts
}

// partition groups pending ids in discovery order, dropping ids that are
// already placed or repeated.
func partition(store Store, pending []Pending, res *Result) (map[string][]string, []string) {
	queues := make(map[string][]string)
	var order []string
	seen := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if store.IsPlaced(p.ID) {
			res.AlreadyPlaced++
			continue
		}
		if _, ok := queues[p.Group]; !ok {
			order = append(order, p.Group)
		}
		queues[p.Group] = append(queues[p.Group], p.ID)
	}
	return queues, order
}

// fillGroup places queue into the group's bins. It returns how many items
// could not be placed and whether that was because overflow names ran out.
func fillGroup(store Store, logger *slog.Logger, def GroupDef, queue []string, res *Result) (int, bool) {
	visited := make(map[string]struct{})
	place := func(bin *registry.Bin) {
		visited[bin.Name] = struct{}{}
		if bin.ReadOnly || bin.Remaining() == 0 || len(queue) == 0 {
			return
		}
		n := min(bin.Remaining(), len(queue))
		batch := queue[:n]
		added, err := store.Assign(bin.Name, batch)
		if err != nil || added == 0 {
			return
		}
		queue = queue[n:]
		record(res, bin.Name, def.Name, batch[:added])
	}

	for _, name := range def.Bins {
		if len(queue) == 0 {
			return 0, false
		}
		if _, done := visited[name]; done || store.IsClosed(name) {
			continue
		}
		if store.IsReserved(name) {
			visited[name] = struct{}{}
			logging.WarnWithContext(logger, "preferred bin document is unreadable; skipping it", "placement_bin_reserved",
				logging.String(logging.FieldBin, name),
				logging.String(logging.FieldGroup, def.Name),
				logging.String(logging.FieldErrorHint, "fix or remove the bin document"),
				logging.String(logging.FieldImpact, "items go to the next bin of the group"))
			continue
		}
		bin, ok := store.Bin(name)
		if !ok {
			created, err := store.Create(name, def.Name, preferredFocus(def), def.Capacity)
			if err != nil {
				warnCreateFailed(logger, name, def.Name, err)
				continue
			}
			res.Created = append(res.Created, name)
			bin = created
		}
		place(bin)
	}

	for _, bin := range existingOverflow(store, def, visited) {
		if len(queue) == 0 {
			return 0, false
		}
		place(bin)
	}

	for len(queue) > 0 {
		name, ok := nextOverflowName(store, def)
		if !ok {
			return len(queue), true
		}
		bin, err := store.Create(name, def.Name, overflowFocus(def), def.Capacity)
		if err != nil {
			warnCreateFailed(logger, name, def.Name, err)
			return len(queue), false
		}
		res.Created = append(res.Created, name)
		place(bin)
	}
	return 0, false
}

func warnCreateFailed(logger *slog.Logger, bin, group string, err error) {
	logging.WarnWithContext(logger, "cannot create bin", "placement_bin_create_failed",
		logging.String(logging.FieldBin, bin),
		logging.String(logging.FieldGroup, group),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the group name and the bin directory contents"),
		logging.String(logging.FieldImpact, "items for this bin stay unplaced"))
}

func record(res *Result, bin, group string, ids []string) {
	if _, ok := res.Added[bin]; !ok {
		res.Touched = append(res.Touched, bin)
	}
	res.Added[bin] += len(ids)
	for _, id := range ids {
		res.Assignments = append(res.Assignments, Assignment{ItemID: id, Bin: bin, Group: group})
	}
}

// existingOverflow returns the group's bins that were not preferred, ordered
// by sequence number, then suffix position in the alphabet, then name.
func existingOverflow(store Store, def GroupDef, visited map[string]struct{}) []*registry.Bin {
	var bins []*registry.Bin
	for _, bin := range store.BinsInGroup(def.Name) {
		if _, done := visited[bin.Name]; done {
			continue
		}
		bins = append(bins, bin)
	}
	slices.SortStableFunc(bins, func(a, b *registry.Bin) int {
		sa, xa := splitSequence(def.Name, a.Name, def.Suffixes)
		sb, xb := splitSequence(def.Name, b.Name, def.Suffixes)
		if sa != sb {
			if sa < sb {
				return -1
			}
			return 1
		}
		if xa != xb {
			if xa < xb {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return bins
}

// splitSequence parses "<group>-<seq><suffix>" into the sequence number and
// the suffix position. Unparseable names sort last.
func splitSequence(group, name, alphabet string) (int, int) {
	const last = int(^uint(0) >> 1)
	rest, ok := strings.CutPrefix(name, group+"-")
	if !ok {
		return last, last
	}
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	seq, err := strconv.Atoi(rest[:digits])
	if err != nil {
		return last, last
	}
	suffix := rest[digits:]
	if suffix == "" {
		return seq, -1
	}
	if utf8.RuneCountInString(suffix) != 1 {
		return seq, last
	}
	if pos := strings.Index(alphabet, suffix); pos >= 0 {
		return seq, pos
	}
	return seq, last
}

// nextOverflowName returns "<group>-<base><letter>" for the first letter of
// the alphabet not already used by any bin.
func nextOverflowName(store Store, def GroupDef) (string, bool) {
	for _, letter := range def.Suffixes {
		name := fmt.Sprintf("%s-%d%c", def.Name, def.OverflowBase, letter)
		if _, exists := store.Bin(name); exists {
			continue
		}
		if store.IsClosed(name) || store.IsReserved(name) {
			continue
		}
		return name, true
	}
	return "", false
}

func preferredFocus(def GroupDef) string {
	if def.Focus != "" {
		return def.Focus
	}
	return def.Name
}

func overflowFocus(def GroupDef) string {
	if def.Focus != "" {
		return def.Focus
	}
	return config.OverflowFocus(def.Name)
}
