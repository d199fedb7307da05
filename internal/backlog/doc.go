// Package backlog reads work items from a line-delimited JSON item source.
//
// Each non-blank line is one record. The reader extracts the identifier,
// classification attribute, category, and status using configurable field
// names (dotted names reach into nested objects), drops items whose category
// is excluded or whose status is terminal, and keeps the rest in file order.
// Bad lines never abort a read; they are counted and logged with their line
// number.
package backlog
