package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"

	"binfill/internal/config"
	"binfill/internal/logging"
)

var (
	// ErrRootUnavailable indicates the bin storage root is missing or unreadable.
	ErrRootUnavailable = errors.New("bin storage root unavailable")
	// ErrPathEscape marks a document or bin name that resolves outside the root.
	ErrPathEscape = errors.New("path escapes bin storage root")
	// ErrUnknownBin is returned when assigning to a bin that does not exist.
	ErrUnknownBin = errors.New("unknown bin")
	// ErrBinExists is returned when creating a bin whose name is taken.
	ErrBinExists = errors.New("bin already exists")
	// ErrReadOnly is returned when modifying a read-only bin.
	ErrReadOnly = errors.New("bin is read-only")
	// ErrExternalEdit marks a document that changed on disk since it was loaded.
	ErrExternalEdit = errors.New("bin document changed since load")
	// ErrNameReserved is returned when creating a bin whose document exists on
	// disk but was skipped at load.
	ErrNameReserved = errors.New("bin name held by a skipped document")
)

// Options controls how documents are interpreted and how new bins are created.
type Options struct {
	// Capacity applies to bins without a document or group capacity.
	Capacity int
	// GroupCapacity overrides Capacity per group.
	GroupCapacity map[string]int
	// ClosedBins are read-only regardless of their document contents.
	ClosedBins []string
	// Format is used for documents of newly created bins.
	Format string
	Logger *slog.Logger
}

// OptionsFromConfig derives registry options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	groupCapacity := make(map[string]int, len(cfg.Groups))
	for _, g := range cfg.Groups {
		if g.Capacity > 0 {
			groupCapacity[g.Name] = g.Capacity
		}
	}
	return Options{
		Capacity:      cfg.Placement.Capacity,
		GroupCapacity: groupCapacity,
		ClosedBins:    cfg.Placement.ClosedBins,
		Format:        cfg.Placement.DocumentFormat,
		Logger:        logger,
	}
}

// LoadStats counts what happened while reading the storage root. Documents
// counts every bin document found, including the skipped ones.
type LoadStats struct {
	Documents int `json:"documents"`
	Malformed int `json:"malformed"`
	Escaped   int `json:"escaped"`
	Conflicts int `json:"conflicts"`
}

// Registry is the in-memory merge of every bin document in one storage root
// plus the derived set of placed ids.
type Registry struct {
	root   string
	opts   Options
	closed map[string]struct{}
	logger *slog.Logger

	bins   map[string]*Bin
	owners map[string]string
	stats  LoadStats
	// reserved maps every bin name seen on disk to its document file name.
	reserved map[string]string
}

// New returns an empty registry rooted at root. Nothing is read from disk.
func New(root string, opts Options) *Registry {
	if opts.Capacity <= 0 {
		opts.Capacity = config.Default().Placement.Capacity
	}
	if opts.Format != FormatYAML {
		opts.Format = FormatJSON
	}
	closed := make(map[string]struct{}, len(opts.ClosedBins))
	for _, name := range opts.ClosedBins {
		closed[strings.TrimSpace(name)] = struct{}{}
	}
	return &Registry{
		root:   root,
		opts:   opts,
		closed: closed,
		logger: logging.NewComponentLogger(opts.Logger, "registry"),
		bins:     make(map[string]*Bin),
		owners:   make(map[string]string),
		reserved: make(map[string]string),
	}
}

// Load reads every bin document directly inside root. Individual bad
// documents are skipped with a warning; only an unusable root is an error.
func Load(root string, opts Options) (*Registry, error) {
	resolved, err := resolveRoot(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootUnavailable, root)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}

	r := New(resolved, opts)
	for _, entry := range entries {
		name, format, ok := parseDocName(entry.Name())
		if !ok || entry.IsDir() {
			continue
		}
		if _, seen := r.reserved[name]; !seen {
			r.reserved[name] = entry.Name()
		}
		r.stats.Documents++
		r.loadDocument(filepath.Join(resolved, entry.Name()), name, format)
	}

	r.logger.Debug("registry loaded",
		logging.String(logging.FieldPath, resolved),
		logging.Int("documents", r.stats.Documents),
		logging.Int("bins", len(r.bins)),
		logging.Int("placed", len(r.owners)))
	return r, nil
}

func (r *Registry) loadDocument(path, name, format string) {
	base := filepath.Base(path)
	resolved, err := resolveInside(r.root, path)
	if err != nil {
		if errors.Is(err, ErrPathEscape) {
			r.stats.Escaped++
			logging.WarnWithContext(r.logger, "skipping bin document outside storage root", "registry_path_escape",
				logging.String(logging.FieldPath, base),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "replace the symlink with a regular file inside the bin directory"),
				logging.String(logging.FieldImpact, "ids in this document are not counted as placed"))
			return
		}
		r.skipMalformed(base, err)
		return
	}
	info, err := os.Stat(resolved)
	if err != nil {
		r.skipMalformed(base, err)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		r.skipMalformed(base, err)
		return
	}
	doc, err := decodeDocument(data, format)
	if err != nil {
		r.skipMalformed(base, err)
		return
	}

	if strings.TrimSpace(doc.name) != "" {
		name = strings.TrimSpace(doc.name)
	}
	if existing, dup := r.bins[name]; dup {
		r.stats.Malformed++
		logging.WarnWithContext(r.logger, "skipping second document for bin", "registry_duplicate_bin",
			logging.String(logging.FieldBin, name),
			logging.String(logging.FieldPath, base),
			logging.String("kept", filepath.Base(existing.Path)),
			logging.String(logging.FieldErrorHint, "merge or rename one of the documents"),
			logging.String(logging.FieldImpact, "ids in the skipped document are not counted as placed"))
		return
	}

	group := strings.TrimSpace(doc.group)
	if group == "" {
		group = InferGroup(name)
	}
	_, closed := r.closed[name]
	bin := &Bin{
		Name:        name,
		Group:       group,
		Focus:       doc.focus,
		Capacity:    doc.capacity,
		ReadOnly:    closed || doc.complete(),
		Shape:       doc.shape,
		Format:      format,
		Path:        resolved,
		members:     make(map[string]struct{}, len(doc.ids)),
		jsonFields:  doc.jsonFields,
		yamlDoc:     doc.yamlDoc,
		fingerprint: xxh3.Hash(data),
	}
	if bin.Capacity <= 0 {
		bin.Capacity = r.capacityFor(group)
	}
	if format == FormatJSON {
		bin.yamlDoc = nil
	}

	collapsed := 0
	for _, id := range doc.ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if bin.Contains(id) {
			collapsed++
			continue
		}
		bin.append(id)
		if owner, taken := r.owners[id]; taken {
			r.stats.Conflicts++
			logging.WarnWithContext(r.logger, "item id listed in more than one bin", "registry_conflict",
				logging.String(logging.FieldItemID, id),
				logging.String(logging.FieldBin, name),
				logging.String("owner", owner),
				logging.String(logging.FieldErrorHint, "remove the id from one of the bins"),
				logging.String(logging.FieldImpact, "id stays placed; no bin is modified"))
			continue
		}
		r.owners[id] = name
	}
	if collapsed > 0 {
		logging.WarnWithContext(r.logger, "bin lists the same id more than once", "registry_duplicate_id",
			logging.String(logging.FieldBin, name),
			logging.Int("duplicates", collapsed),
			logging.String(logging.FieldImpact, "duplicates are dropped on the next write of this bin"))
	}
	if len(bin.IDs) > bin.Capacity {
		logging.WarnWithContext(r.logger, "bin holds more ids than its capacity", "registry_over_capacity",
			logging.String(logging.FieldBin, name),
			logging.Int("ids", len(bin.IDs)),
			logging.Int("capacity", bin.Capacity),
			logging.String(logging.FieldImpact, "bin receives no new items"))
	}
	r.bins[name] = bin
}

func (r *Registry) skipMalformed(base string, err error) {
	r.stats.Malformed++
	logging.WarnWithContext(r.logger, "skipping unreadable bin document", "registry_document_malformed",
		logging.String(logging.FieldPath, base),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix the document syntax; expected a list of ids or an object with ids"),
		logging.String(logging.FieldImpact, "ids in this document are not counted as placed"))
}

func (r *Registry) capacityFor(group string) int {
	if c, ok := r.opts.GroupCapacity[group]; ok && c > 0 {
		return c
	}
	return r.opts.Capacity
}

// Root returns the resolved storage root.
func (r *Registry) Root() string { return r.root }

// Stats returns load counters.
func (r *Registry) Stats() LoadStats { return r.stats }

// Bin looks up a bin by name.
func (r *Registry) Bin(name string) (*Bin, bool) {
	b, ok := r.bins[name]
	return b, ok
}

// Bins returns every bin ordered by name.
func (r *Registry) Bins() []*Bin {
	out := make([]*Bin, 0, len(r.bins))
	for _, b := range r.bins {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *Bin) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// BinsInGroup returns the bins of group ordered by name.
func (r *Registry) BinsInGroup(group string) []*Bin {
	var out []*Bin
	for _, b := range r.Bins() {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// Placed returns a copy of the set of every id held by any bin.
func (r *Registry) Placed() map[string]struct{} {
	out := make(map[string]struct{}, len(r.owners))
	for id := range r.owners {
		out[id] = struct{}{}
	}
	return out
}

// IsPlaced reports whether id is held by any bin.
func (r *Registry) IsPlaced(id string) bool {
	_, ok := r.owners[id]
	return ok
}

// Owner returns the bin holding id.
func (r *Registry) Owner(id string) (string, bool) {
	name, ok := r.owners[id]
	return name, ok
}

// IsClosed reports whether name is configured as permanently closed.
func (r *Registry) IsClosed(name string) bool {
	_, ok := r.closed[name]
	return ok
}

// IsReserved reports whether a document for name exists on disk but did not
// load as bin name. Such names are never created or written.
func (r *Registry) IsReserved(name string) bool {
	if _, loaded := r.bins[name]; loaded {
		return false
	}
	_, ok := r.reserved[name]
	return ok
}

// Create registers a new empty bin. It has no document until Write.
// A capacity of zero uses the group or global default.
func (r *Registry) Create(name, group, focus string, capacity int) (*Bin, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if _, exists := r.bins[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrBinExists, name)
	}
	if file, ok := r.reserved[name]; ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNameReserved, name, file)
	}
	if capacity <= 0 {
		capacity = r.capacityFor(group)
	}
	bin := &Bin{
		Name:     name,
		Group:    group,
		Focus:    focus,
		Capacity: capacity,
		ReadOnly: r.IsClosed(name),
		Shape:    ShapeObject,
		Format:   r.opts.Format,
		Path:     filepath.Join(r.root, docFileName(name, r.opts.Format)),
		New:      true,
		members:  make(map[string]struct{}),
	}
	r.bins[name] = bin
	return bin, nil
}

// Assign appends ids to the named bin until it is full. Ids already placed
// anywhere in the registry are skipped. It returns how many were added.
func (r *Registry) Assign(name string, ids []string) (int, error) {
	bin, ok := r.bins[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBin, name)
	}
	if bin.ReadOnly {
		return 0, fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	added := 0
	for _, id := range ids {
		if bin.Remaining() == 0 {
			break
		}
		if _, taken := r.owners[id]; taken || id == "" {
			continue
		}
		bin.append(id)
		r.owners[id] = name
		added++
	}
	bin.added += added
	return added, nil
}

// Changed returns the names of bins that received ids during this run.
func (r *Registry) Changed() []string {
	var out []string
	for _, b := range r.Bins() {
		if b.added > 0 {
			out = append(out, b.Name)
		}
	}
	return out
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
