package storage

import (
	"encoding/json"
	"io"
)

// ExportJSON writes run metadata as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
