// Package ledger holds the duplicate-set algebra. Everything here is pure
// set computation; persisting the resulting sets is the store's job.
package ledger

import (
	"fmt"
	"sort"
)

// Set is a duplicate-key set.
type Set map[string]struct{}

// NewSet builds a set from keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports membership of key.
func (s Set) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the keys in deterministic order, the form in which sets
// are persisted and compared.
func (s Set) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two sets hold the same keys.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Contains(k) {
			return false
		}
	}
	return true
}

// ConsistencyError signals a corrupted duplicate ledger. It is fatal: the
// run must abort without applying any partial write, since it indicates
// upstream data corruption that must not be masked.
type ConsistencyError struct {
	Canonical string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("duplicate ledger inconsistency for canonical %s: %s", e.Canonical, e.Detail)
}

// Union returns current extended with keys, always excluding the
// canonical's own key. Idempotent: applying the same keys twice yields the
// same set. The input set is not mutated.
func Union(canonicalKey string, current Set, keys ...string) Set {
	out := make(Set, len(current)+len(keys))
	for k := range current {
		if k != canonicalKey {
			out[k] = struct{}{}
		}
	}
	for _, k := range keys {
		if k != canonicalKey {
			out[k] = struct{}{}
		}
	}
	return out
}

// ReplaceCanonical moves the old canonical's duplicate set onto a new
// canonical chosen from among its duplicates. The returned set is the old
// set minus the new canonical's key plus the old canonical's key.
//
// Preconditions, asserted as fatal consistency errors: the new canonical's
// key must be present in the old set and the old canonical's key must be
// absent from it.
func ReplaceCanonical(oldKey, newKey string, oldSet Set) (Set, error) {
	if oldSet.Contains(oldKey) {
		return nil, &ConsistencyError{
			Canonical: oldKey,
			Detail:    fmt.Sprintf("own key %s found in its duplicate set %v", oldKey, oldSet.Sorted()),
		}
	}
	if !oldSet.Contains(newKey) {
		return nil, &ConsistencyError{
			Canonical: oldKey,
			Detail:    fmt.Sprintf("replacement key %s not found in duplicate set %v", newKey, oldSet.Sorted()),
		}
	}

	out := make(Set, len(oldSet))
	for k := range oldSet {
		if k != newKey {
			out[k] = struct{}{}
		}
	}
	out[oldKey] = struct{}{}
	return out, nil
}
