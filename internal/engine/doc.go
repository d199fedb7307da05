// Package engine runs one placement pass end to end.
//
// A run takes an advisory lock on the bin directory, loads the registry and
// the item source, diffs eligible items against the placed-id set, classifies
// the remainder, places them, writes the changed bins, and finally records
// the run in the journal and the metrics textfile. Dry runs stop after
// placement and touch nothing on disk.
package engine
