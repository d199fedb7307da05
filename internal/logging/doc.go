// Package logging assembles structured slog loggers and formatting helpers used
// across binfill.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers that tag log lines with run ids, bins, and
// groups. Warnings raised during ingestion and placement go through
// WarnWithContext so every one carries an event type, a hint, and an impact.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the tool.
package logging
