package bucket

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/spinel/internal/core/model"
)

// SpaceGroupFunc computes the space-group symbol of a structure at the
// given symmetry tolerance. It is an external collaborator (spglib-backed);
// failures route the record to the failed bucket.
type SpaceGroupFunc func(ctx context.Context, s model.Structure, symprec float64) (string, error)

// Keyer maps structures onto coarse bucket keys. Two records in different
// buckets are never compared, so every component of the key must be
// invariant under the symmetries the comparator considers.
type Keyer struct {
	// SpaceGroup, when non-nil, stratifies buckets by space-group symbol
	// in addition to the reduced formula.
	SpaceGroup SpaceGroupFunc
	// Symprec is the numeric tolerance passed to the symmetry routine.
	Symprec float64
}

// Key returns the bucket key for s: the hill-compact reduced formula,
// optionally suffixed with the space-group symbol.
func (k Keyer) Key(ctx context.Context, s model.Structure) (string, error) {
	if s.Formula == "" {
		return "", fmt.Errorf("structure %s has no reduced formula", s.UUID)
	}
	if k.SpaceGroup == nil {
		return s.Formula, nil
	}
	symbol, err := k.SpaceGroup(ctx, s, k.Symprec)
	if err != nil {
		return "", fmt.Errorf("space group of %s: %w", s.UUID, err)
	}
	return s.Formula + "|" + symbol, nil
}

// Partition groups records by bucket key. Records whose key cannot be
// computed are returned as failures instead of being discarded.
func (k Keyer) Partition(ctx context.Context, records []model.Structure) (map[string][]model.Structure, []model.KeyFailure) {
	buckets := make(map[string][]model.Structure)
	var failures []model.KeyFailure
	for _, s := range records {
		key, err := k.Key(ctx, s)
		if err != nil {
			failures = append(failures, model.KeyFailure{UUID: s.UUID, Err: err.Error()})
			continue
		}
		buckets[key] = append(buckets[key], s)
	}
	return buckets, failures
}

// SortedKeys returns the bucket keys in deterministic order.
func SortedKeys(buckets map[string][]model.Structure) []string {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
