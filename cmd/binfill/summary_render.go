package main

import (
	"fmt"
	"slices"
	"strings"

	"binfill/internal/engine"
)

func renderSummary(s *engine.Summary, colorize bool) string {
	var b strings.Builder
	if len(s.Bins) > 0 {
		b.WriteString(renderTable([]column{
			leftColumn("Bin"), leftColumn("Group"), rightColumn("Added"),
			rightColumn("Fill"), leftColumn("Status"),
		}, binChangeRows(s)))
		b.WriteString("\n")
	}
	for _, line := range summaryLines(s, colorize) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func binChangeRows(s *engine.Summary) [][]string {
	rows := make([][]string, 0, len(s.Bins))
	for _, bin := range s.Bins {
		rows = append(rows, []string{
			bin.Name,
			bin.Group,
			fmt.Sprintf("+%d", bin.Added),
			fmt.Sprintf("%d/%d", bin.Count, bin.Capacity),
			binChangeStatus(bin, s.DryRun),
		})
	}
	return rows
}

func binChangeStatus(bin engine.BinChange, dryRun bool) string {
	switch {
	case bin.Error != "":
		return "write failed"
	case dryRun && bin.Created:
		return "would create"
	case dryRun:
		return "would update"
	case bin.Created:
		return "created"
	default:
		return "updated"
	}
}

// summaryLines renders the callouts under the bin table, ending with the
// "N bins touched, M unplaced" line.
func summaryLines(s *engine.Summary, colorize bool) []string {
	var callouts []callout
	if s.DryRun {
		callouts = append(callouts, callout{severityInfo, "mode", "dry run, nothing written"})
	}
	if skipped := s.Backlog.Malformed + s.Backlog.MissingID + s.Backlog.Duplicates; skipped > 0 {
		callouts = append(callouts, callout{severityWarn, "item source",
			fmt.Sprintf("%d of %d lines skipped", skipped, s.Backlog.Lines)})
	}
	if skipped := s.Registry.Malformed + s.Registry.Escaped; skipped > 0 {
		callouts = append(callouts, callout{severityWarn, "bin documents",
			fmt.Sprintf("%d of %d documents skipped", skipped, s.Registry.Documents)})
	}
	if s.Registry.Conflicts > 0 {
		callouts = append(callouts, callout{severityWarn, "conflicts",
			fmt.Sprintf("%d ids listed in more than one bin, first owner kept", s.Registry.Conflicts)})
	}

	groups := make([]string, 0, len(s.Unplaced))
	for group := range s.Unplaced {
		groups = append(groups, group)
	}
	slices.Sort(groups)
	for _, group := range groups {
		reason := "no bin could be created"
		if slices.Contains(s.Exhausted, group) {
			reason = "overflow names exhausted"
		}
		callouts = append(callouts, callout{severityWarn, "unplaced",
			fmt.Sprintf("%s: %d items, %s", group, s.Unplaced[group], reason)})
	}

	for _, bin := range s.Bins {
		if bin.Error != "" {
			callouts = append(callouts, callout{severityError, "write failed",
				fmt.Sprintf("%s: %s", bin.Name, bin.Error)})
		}
	}

	return append(renderCallouts(callouts, colorize), s.Line())
}
