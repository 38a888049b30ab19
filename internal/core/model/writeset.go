package model

// DuplicateUpdate sets the duplicate-key set of one record.
type DuplicateUpdate struct {
	UUID       string   `json:"uuid"`
	Duplicates []string `json:"duplicates"`
}

// Removal takes a record out of the reference collection and clears its
// duplicate set. Only the select-better-duplicate flow produces removals.
type Removal struct {
	UUID string `json:"uuid"`
}

// WriteSet is the fully computed, not-yet-applied set of mutations produced
// by one run. It is built entirely before any store mutation so a run can be
// reported in dry-run mode and applied as a single transaction.
type WriteSet struct {
	// Collection is the reference collection the mutations target.
	Collection string `json:"collection"`
	// Updates rewrite duplicate sets of records already in the collection.
	Updates []DuplicateUpdate `json:"updates,omitempty"`
	// Additions are new canonicals: record gets its duplicate set and is
	// added to the collection.
	Additions []DuplicateUpdate `json:"additions,omitempty"`
	// Removals are demoted canonicals replaced by a better duplicate.
	Removals []Removal `json:"removals,omitempty"`
}

// Empty reports whether applying the write-set would be a no-op.
func (w *WriteSet) Empty() bool {
	return len(w.Updates) == 0 && len(w.Additions) == 0 && len(w.Removals) == 0
}
