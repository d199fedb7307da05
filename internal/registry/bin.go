package registry

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// Shape is the on-disk layout of a bin document.
type Shape int

const (
	// ShapeObject is an object carrying group, focus, ids and any extra fields.
	ShapeObject Shape = iota
	// ShapeList is a bare list of ids.
	ShapeList
)

func (s Shape) String() string {
	if s == ShapeList {
		return "list"
	}
	return "object"
}

// Bin is a named, capacity-bounded container of placed item ids.
type Bin struct {
	Name     string
	Group    string
	Focus    string
	Capacity int
	IDs      []string
	ReadOnly bool
	Shape    Shape
	Format   string
	// Path is the resolved document location inside the storage root.
	Path string
	// New is set for bins created during this run that have no document yet.
	New bool

	members     map[string]struct{}
	jsonFields  []jsonField
	yamlDoc     *yaml.Node
	fingerprint uint64
	added       int
}

// Len returns the number of ids in the bin.
func (b *Bin) Len() int { return len(b.IDs) }

// Remaining returns free capacity, never negative.
func (b *Bin) Remaining() int {
	if n := b.Capacity - len(b.IDs); n > 0 {
		return n
	}
	return 0
}

// Contains reports whether id is already assigned to this bin.
func (b *Bin) Contains(id string) bool {
	_, ok := b.members[id]
	return ok
}

// Added returns how many ids were assigned during this run.
func (b *Bin) Added() int { return b.added }

// Snapshot returns a copy of the bin without its document state.
func (b *Bin) Snapshot() Bin {
	return Bin{
		Name:     b.Name,
		Group:    b.Group,
		Focus:    b.Focus,
		Capacity: b.Capacity,
		IDs:      slices.Clone(b.IDs),
		ReadOnly: b.ReadOnly,
		Shape:    b.Shape,
		Format:   b.Format,
		Path:     b.Path,
		New:      b.New,
		added:    b.added,
	}
}

func (b *Bin) append(id string) {
	if b.members == nil {
		b.members = make(map[string]struct{})
	}
	b.IDs = append(b.IDs, id)
	b.members[id] = struct{}{}
}
