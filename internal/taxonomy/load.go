package taxonomy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Load reads, validates, and compiles the categorization artifact at path.
// Duplicate triples across blocks are logged (first block wins) but do not
// fail the load; a document that violates the schema does.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes is Load for an in-memory artifact.
func LoadBytes(data []byte) (*Taxonomy, error) {
	if err := ValidateBytes(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("taxonomy contains no blocks")
	}

	if dups := Duplicates(&doc); len(dups) > 0 {
		slog.Warn("taxonomy has triples assigned to multiple blocks; first assignment wins",
			"count", len(dups))
		for _, d := range dups {
			slog.Debug("duplicate taxonomy triple", "triple", d)
		}
	}

	t := compile(&doc)
	slog.Info("taxonomy loaded", "blocks", len(t.blocks), "triples", t.TripleCount())
	return t, nil
}
