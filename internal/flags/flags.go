// Package flags loads the per-database quality-flag tables used by the
// select-better-duplicate refinement. Each source database ships a CSV
// keyed by external id with boolean disqualifying flags.
package flags

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Flags are the disqualifying attributes of one external record. A record
// carrying any of them is a poor canonical choice.
type Flags struct {
	Theoretical     bool
	HighPressure    bool
	HighTemperature bool
}

// Disqualified reports whether the record should be replaced by a cleaner
// duplicate when one exists.
func (f Flags) Disqualified() bool {
	return f.Theoretical || f.HighPressure || f.HighTemperature
}

// Table maps database -> external id -> flags.
type Table map[string]map[string]Flags

// Lookup returns the flags for (database, id). The second return is false
// when the database or id is unknown to the table.
func (t Table) Lookup(database, id string) (Flags, bool) {
	byID, ok := t[database]
	if !ok {
		return Flags{}, false
	}
	f, ok := byID[id]
	return f, ok
}

// Load reads `<database>.csv` from dir for every named database. The CSV
// files carry two comment lines before the header row, matching the format
// the flag pipeline exports.
func Load(dir string, databases []string) (Table, error) {
	table := make(Table, len(databases))
	for _, database := range databases {
		path := filepath.Join(dir, database+".csv")
		byID, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags for %s: %w", database, err)
		}
		table[database] = byID
	}
	return table, nil
}

func loadFile(path string) (map[string]Flags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one flag CSV. Exposed separately so tests and the server can
// feed readers directly.
func Parse(r io.Reader) (map[string]Flags, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Two leading comment lines before the header.
	for i := 0; i < 2; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("reading preamble: %w", err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	minFields := 0
	for _, required := range []string{"id", "is_theoretical", "is_high_pressure", "is_high_temperature"} {
		i, ok := columns[required]
		if !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
		if i+1 > minFields {
			minFields = i + 1
		}
	}

	byID := make(map[string]Flags)
	for n := 1; ; n++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if len(row) < minFields {
			return nil, fmt.Errorf("row %d has %d fields, need at least %d", n, len(row), minFields)
		}
		byID[row[columns["id"]]] = Flags{
			Theoretical:     parseBool(row[columns["is_theoretical"]]),
			HighPressure:    parseBool(row[columns["is_high_pressure"]]),
			HighTemperature: parseBool(row[columns["is_high_temperature"]]),
		}
	}
	return byID, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "t":
		return true
	default:
		return false
	}
}
