// Package idorder sorts work item identifiers by their numeric suffix.
//
// Identifiers such as "proj-2" and "proj-10" share a non-numeric prefix and
// differ only in a trailing number; lexical order would put "proj-10" first.
// Compare orders by that trailing number instead. Identifiers without a
// numeric suffix sort after every numeric one, lexically among themselves.
package idorder

import (
	"slices"
	"strings"
)

// Compare reports the order of a and b: negative when a sorts first, zero when
// equal, positive otherwise.
func Compare(a, b string) int {
	na, aok := numericSuffix(a)
	nb, bok := numericSuffix(b)
	switch {
	case aok && bok:
		if c := compareDigits(na, nb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// Sort orders ids in place using Compare.
func Sort(ids []string) {
	slices.SortStableFunc(ids, Compare)
}

// Sorted returns a sorted copy of ids.
func Sorted(ids []string) []string {
	out := slices.Clone(ids)
	Sort(out)
	return out
}

// IsSorted reports whether ids are already in Compare order.
func IsSorted(ids []string) bool {
	return slices.IsSortedFunc(ids, Compare)
}

// numericSuffix returns the trailing decimal digits of id without leading
// zeros ("0" for an all-zero suffix).
func numericSuffix(id string) (string, bool) {
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}
	digits := strings.TrimLeft(id[start:end], "0")
	if digits == "" {
		digits = "0"
	}
	return digits, true
}

// compareDigits compares two canonical digit strings of arbitrary length.
func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
