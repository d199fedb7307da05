// Command binfill places unplaced work items into capacity-bounded bins.
//
// Running binfill with no subcommand performs one placement pass in apply
// mode and prints, per affected bin, the number of items added and its fill
// level, followed by a closing "N bins touched, M unplaced" line. Subcommands
// inspect the bin directory (bins), preview classification (classify), read
// the run journal (history), and manage configuration (config).
package main
