// Package fileutil holds small filesystem helpers shared by the bin writer
// and the CLI.
package fileutil
