package model

import (
	"encoding/json"
	"strings"
)

// Source identifies where a structure record was imported from.
type Source struct {
	Database string `json:"database"`
	ID       string `json:"id"`
	Version  string `json:"version"`
}

// DuplicateKey is the portable cross-run identity of a record, derived from
// its source triple. Record UUIDs are internal to the store and must never
// end up inside a duplicate set.
func (s Source) DuplicateKey() string {
	return strings.Join([]string{s.Database, s.Version, s.ID}, "|")
}

// ParseDuplicateKey splits a duplicate key back into its source triple.
func ParseDuplicateKey(key string) (Source, bool) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		return Source{}, false
	}
	return Source{Database: parts[0], Version: parts[1], ID: parts[2]}, true
}

// Structure is a crystal-structure record as seen by the uniqueness engine.
// Geometry is the opaque payload handed to the external comparator; the
// engine never interprets it.
type Structure struct {
	UUID               string          `json:"uuid"`
	Source             Source          `json:"source"`
	Formula            string          `json:"formula"`
	ChemicalSystem     string          `json:"chemical_system"`
	NumSites           int             `json:"num_sites"`
	PartialOccupancies bool            `json:"partial_occupancies"`
	Duplicates         []string        `json:"duplicates,omitempty"`
	Geometry           json.RawMessage `json:"geometry,omitempty"`
}

// DuplicateKey returns the record's own portable identity.
func (s Structure) DuplicateKey() string {
	return s.Source.DuplicateKey()
}
