package main

import (
	"encoding/json"
	"io"
)

// writeJSON prints v as indented JSON. HTML characters in ids and paths are
// left unescaped so the output matches the bin documents.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
