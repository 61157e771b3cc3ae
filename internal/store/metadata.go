package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/will-rowe/antman/internal/errs"
)

// Filenames used for an indexed BIGSI's on-disk layout, per the external
// interfaces section of the design: one metadata sidecar and two bbolt
// databases living under the same db directory.
const (
	MetadataFilename   = "bigsi-metadata.json"
	BitvectorsFilename = "bigsi-bitvectors.bdb"
	ColoursFilename    = "bigsi-colours.bdb"
)

// Metadata is the JSON sidecar written alongside a flushed BIGSI.
type Metadata struct {
	DBDirectory    string `json:"db_directory"`
	MetadataFile   string `json:"metadata"`
	Bitvectors     string `json:"bitvectors"`
	Colours        string `json:"colours"`
	NumBits        uint64 `json:"numBits"`
	NumHashes      int    `json:"numHashes"`
	ColourIterator uint64 `json:"colourIterator"`
}

// WriteMetadata writes m as bigsi-metadata.json under dir.
func WriteMetadata(dir string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", errs.ErrMetadataParseError)
	}
	path := filepath.Join(dir, MetadataFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, errs.ErrStoreIOError)
	}
	return nil
}

// ReadMetadata reads bigsi-metadata.json from dir.
func ReadMetadata(dir string) (Metadata, error) {
	path := filepath.Join(dir, MetadataFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading %s: %w", path, errs.ErrStoreIOError)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("parsing %s: %w", path, errs.ErrMetadataParseError)
	}
	return m, nil
}
