// Package journal keeps a SQLite history of placement runs.
//
// Every applied run records its counters and the item-to-bin assignments it
// made, so operators can answer "when did this item land in that bin" after
// the fact. The journal is never consulted to decide whether an item is
// placed; bin documents alone carry that truth.
package journal
