package bucket

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spinel/internal/core/model"
)

func TestKeyFormulaOnly(t *testing.T) {
	keyer := Keyer{}

	key, err := keyer.Key(context.Background(), model.Structure{UUID: "a", Formula: "Fe2O3"})
	require.NoError(t, err)
	assert.Equal(t, "Fe2O3", key)
}

func TestKeyWithSpaceGroup(t *testing.T) {
	keyer := Keyer{
		Symprec: 0.005,
		SpaceGroup: func(ctx context.Context, s model.Structure, symprec float64) (string, error) {
			assert.Equal(t, 0.005, symprec)
			return "R-3c", nil
		},
	}

	key, err := keyer.Key(context.Background(), model.Structure{UUID: "a", Formula: "Fe2O3"})
	require.NoError(t, err)
	assert.Equal(t, "Fe2O3|R-3c", key)
}

func TestKeyMissingFormula(t *testing.T) {
	keyer := Keyer{}

	_, err := keyer.Key(context.Background(), model.Structure{UUID: "a"})
	assert.Error(t, err)
}

func TestPartitionRoutesSymmetryFailures(t *testing.T) {
	// A structure whose space-group computation fails lands in the failure
	// list, never in a bucket and never silently dropped.
	keyer := Keyer{
		SpaceGroup: func(ctx context.Context, s model.Structure, symprec float64) (string, error) {
			if s.UUID == "bad" {
				return "", errors.New("degenerate cell")
			}
			return "P1", nil
		},
	}
	records := []model.Structure{
		{UUID: "good", Formula: "Fe2O3"},
		{UUID: "bad", Formula: "Fe2O3"},
	}

	buckets, failures := keyer.Partition(context.Background(), records)

	require.Len(t, buckets, 1)
	assert.Len(t, buckets["Fe2O3|P1"], 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].UUID)
	assert.Contains(t, failures[0].Err, "degenerate cell")
}

func TestSortedKeys(t *testing.T) {
	buckets := map[string][]model.Structure{
		"SiO2":  nil,
		"Fe2O3": nil,
		"NaCl":  nil,
	}

	assert.Equal(t, []string{"Fe2O3", "NaCl", "SiO2"}, SortedKeys(buckets))
}
