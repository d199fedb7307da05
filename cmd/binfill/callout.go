package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type severity int

const (
	severityInfo severity = iota
	severityOK
	severityWarn
	severityError
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

const calloutLabelWidth = 14

func (s severity) tag() string {
	switch s {
	case severityOK:
		return "ok"
	case severityWarn:
		return "warn"
	case severityError:
		return "error"
	default:
		return "info"
	}
}

func (s severity) color() string {
	switch s {
	case severityOK:
		return ansiGreen
	case severityWarn:
		return ansiYellow
	case severityError:
		return ansiRed
	default:
		return ansiCyan
	}
}

// callout is one labelled line printed under a report table, e.g.
// "warn  unplaced       api: 1 items, overflow names exhausted".
type callout struct {
	severity severity
	label    string
	text     string
}

func (c callout) render(colorize bool) string {
	tag := fmt.Sprintf("%-5s", c.severity.tag())
	if colorize {
		tag = c.severity.color() + tag + ansiReset
	}
	return fmt.Sprintf("%s %-*s %s", tag, calloutLabelWidth, c.label, c.text)
}

func renderCallouts(callouts []callout, colorize bool) []string {
	lines := make([]string, 0, len(callouts))
	for _, c := range callouts {
		lines = append(lines, c.render(colorize))
	}
	return lines
}

func heading(title string, colorize bool) string {
	if colorize {
		return ansiBold + title + ansiReset
	}
	return title
}

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
