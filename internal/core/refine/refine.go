// Package refine implements the select-better-duplicate flow: canonical
// records carrying disqualifying quality flags are replaced by a clean
// duplicate from their own equivalence class. The flow never creates new
// classes, it only moves the canonical pointer within one.
package refine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/agenthands/spinel/internal/core/ledger"
	"github.com/agenthands/spinel/internal/core/model"
	"github.com/agenthands/spinel/internal/flags"
	"github.com/agenthands/spinel/internal/store"
)

// Replacement pairs a demoted canonical with the duplicate chosen to take
// its place.
type Replacement struct {
	OldUUID string `json:"old_uuid"`
	OldKey  string `json:"old_key"`
	NewUUID string `json:"new_uuid"`
	NewKey  string `json:"new_key"`
}

type Refiner struct {
	Store store.Store
	Flags flags.Table
	// Priority orders source databases from most to least preferred, based
	// on the permissiveness of their licenses.
	Priority []string
	Log      *zap.Logger
}

func NewRefiner(s store.Store, table flags.Table, priority []string, log *zap.Logger) *Refiner {
	if log == nil {
		log = zap.NewNop()
	}
	if len(priority) == 0 {
		priority = []string{"cod", "icsd", "mpds"}
	}
	return &Refiner{Store: s, Flags: table, Priority: priority, Log: log}
}

// Plan scans the reference collection for flagged canonicals with a clean
// duplicate and computes the write-set that swaps each of them out. Pure
// apart from store reads; the caller applies the write-set atomically.
func (r *Refiner) Plan(ctx context.Context, collection string) (*model.WriteSet, []Replacement, error) {
	if exists, err := r.Store.CollectionExists(ctx, collection); err != nil {
		return nil, nil, err
	} else if !exists {
		return nil, nil, fmt.Errorf("collection %q does not exist", collection)
	}

	records, err := r.Store.FetchCollection(ctx, collection, store.Filter{})
	if err != nil {
		return nil, nil, err
	}

	ws := &model.WriteSet{Collection: collection}
	var replacements []Replacement

	for _, record := range records {
		if len(record.Duplicates) == 0 {
			continue
		}

		ownFlags, known := r.Flags.Lookup(record.Source.Database, record.Source.ID)
		if !known || !ownFlags.Disqualified() {
			continue
		}

		newKey, ok := r.chooseReplacement(record)
		if !ok {
			continue
		}

		oldKey := record.DuplicateKey()
		newSet, err := ledger.ReplaceCanonical(oldKey, newKey, ledger.NewSet(record.Duplicates...))
		if err != nil {
			// Corrupted ledger: abort the whole run, apply nothing.
			return nil, nil, err
		}

		newSource, _ := model.ParseDuplicateKey(newKey)
		replacement, err := r.Store.FindBySource(ctx, newSource.Database, newSource.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("replacement for %s: %w", record.UUID, err)
		}

		ws.Additions = append(ws.Additions, model.DuplicateUpdate{UUID: replacement.UUID, Duplicates: newSet.Sorted()})
		ws.Removals = append(ws.Removals, model.Removal{UUID: record.UUID})
		replacements = append(replacements, Replacement{
			OldUUID: record.UUID,
			OldKey:  oldKey,
			NewUUID: replacement.UUID,
			NewKey:  newKey,
		})

		r.Log.Info("canonical flagged, replacement selected",
			zap.String("old", oldKey),
			zap.String("new", newKey))
	}

	return ws, replacements, nil
}

// chooseReplacement picks the preferred clean duplicate of record: the
// first database in priority order that offers one, ties within a database
// broken by key order for reproducibility.
func (r *Refiner) chooseReplacement(record model.Structure) (string, bool) {
	clean := make(map[string][]string)
	for _, key := range record.Duplicates {
		source, ok := model.ParseDuplicateKey(key)
		if !ok {
			continue
		}
		f, known := r.Flags.Lookup(source.Database, source.ID)
		if !known || f.Disqualified() {
			continue
		}
		clean[source.Database] = append(clean[source.Database], key)
	}

	for _, database := range r.Priority {
		if keys := clean[database]; len(keys) > 0 {
			sort.Strings(keys)
			return keys[0], true
		}
	}
	return "", false
}
