// Package classify maps work item attributes (usually repository paths) to
// placement groups.
//
// The mapping is a static, ordered prefix table: the first matching prefix
// wins, never the longest. Attributes that match nothing fall back to a
// root-config group when they name a top-level file and to a cross-cutting
// group otherwise. Classification is pure and total.
package classify
