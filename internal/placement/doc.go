// Package placement assigns unplaced work items to capacity-bounded bins.
//
// For each group, Place fills the configured preferred bins in order, then any
// other bins of the group already in the registry, then synthesizes overflow
// bins named "<group>-<base><letter>" from the group's suffix alphabet. When
// the alphabet is used up the group stops and its remaining items are
// reported as unplaced; other groups continue.
//
// Place never touches storage. It mutates the in-memory Store it is given and
// returns what it did.
package placement
