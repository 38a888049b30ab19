package refine

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spinel/internal/core/ledger"
	"github.com/agenthands/spinel/internal/core/model"
	"github.com/agenthands/spinel/internal/flags"
	"github.com/agenthands/spinel/internal/store"
)

type mockStore struct {
	collections map[string][]model.Structure
	applied     []*model.WriteSet
}

func (m *mockStore) CollectionExists(ctx context.Context, label string) (bool, error) {
	_, ok := m.collections[label]
	return ok, nil
}

func (m *mockStore) CreateCollection(ctx context.Context, label string) error {
	m.collections[label] = nil
	return nil
}

func (m *mockStore) CountCollection(ctx context.Context, label string) (int, error) {
	return len(m.collections[label]), nil
}

func (m *mockStore) CountAll(ctx context.Context) (int, error) {
	var n int
	for _, records := range m.collections {
		n += len(records)
	}
	return n, nil
}

func (m *mockStore) FetchCollection(ctx context.Context, label string, f store.Filter) ([]model.Structure, error) {
	records := append([]model.Structure(nil), m.collections[label]...)
	sort.Slice(records, func(i, j int) bool { return records[i].UUID < records[j].UUID })
	return records, nil
}

func (m *mockStore) FindBySource(ctx context.Context, database, id string) (*model.Structure, error) {
	for _, records := range m.collections {
		for _, s := range records {
			if s.Source.Database == database && s.Source.ID == id {
				out := s
				return &out, nil
			}
		}
	}
	return nil, fmt.Errorf("structure %s|%s: %w", database, id, store.ErrNotFound)
}

func (m *mockStore) Apply(ctx context.Context, ws *model.WriteSet) error {
	m.applied = append(m.applied, ws)
	return nil
}

func table() flags.Table {
	return flags.Table{
		"cod": {
			"100": {},
		},
		"icsd": {
			"200": {},
		},
		"mpds": {
			"900": {Theoretical: true},
			"300": {HighPressure: true},
		},
	}
}

func TestPlanPrefersDatabasePriority(t *testing.T) {
	// A canonical flagged theoretical has clean COD and ICSD
	// duplicates. COD wins per the license-based priority order.
	canonical := model.Structure{
		UUID:       "x",
		Source:     model.Source{Database: "mpds", Version: "1", ID: "900"},
		Duplicates: []string{"cod|1|100", "icsd|1|200", "mpds|1|300"},
	}
	replacement := model.Structure{
		UUID:   "c",
		Source: model.Source{Database: "cod", Version: "1", ID: "100"},
	}

	s := &mockStore{collections: map[string][]model.Structure{
		"unique": {canonical},
		"all":    {replacement},
	}}
	refiner := NewRefiner(s, table(), nil, nil)

	ws, replacements, err := refiner.Plan(context.Background(), "unique")
	require.NoError(t, err)

	require.Len(t, replacements, 1)
	assert.Equal(t, "mpds|1|900", replacements[0].OldKey)
	assert.Equal(t, "cod|1|100", replacements[0].NewKey)
	assert.Equal(t, "c", replacements[0].NewUUID)

	require.Len(t, ws.Additions, 1)
	assert.Equal(t, "c", ws.Additions[0].UUID)
	// Old canonical's key moves into the set, the replacement's moves out.
	assert.Equal(t, []string{"icsd|1|200", "mpds|1|300", "mpds|1|900"}, ws.Additions[0].Duplicates)
	require.Len(t, ws.Removals, 1)
	assert.Equal(t, "x", ws.Removals[0].UUID)
}

func TestPlanSkipsCleanAndUnknownCanonicals(t *testing.T) {
	clean := model.Structure{
		UUID:       "a",
		Source:     model.Source{Database: "cod", Version: "1", ID: "100"},
		Duplicates: []string{"icsd|1|200"},
	}
	unknown := model.Structure{
		UUID:       "b",
		Source:     model.Source{Database: "icsd", Version: "1", ID: "999"},
		Duplicates: []string{"cod|1|100"},
	}

	s := &mockStore{collections: map[string][]model.Structure{"unique": {clean, unknown}}}
	refiner := NewRefiner(s, table(), nil, nil)

	ws, replacements, err := refiner.Plan(context.Background(), "unique")
	require.NoError(t, err)
	assert.Empty(t, replacements)
	assert.True(t, ws.Empty())
}

func TestPlanNoCleanDuplicate(t *testing.T) {
	// All duplicates are flagged themselves: the canonical stays.
	canonical := model.Structure{
		UUID:       "x",
		Source:     model.Source{Database: "mpds", Version: "1", ID: "900"},
		Duplicates: []string{"mpds|1|300"},
	}

	s := &mockStore{collections: map[string][]model.Structure{"unique": {canonical}}}
	refiner := NewRefiner(s, table(), nil, nil)

	_, replacements, err := refiner.Plan(context.Background(), "unique")
	require.NoError(t, err)
	assert.Empty(t, replacements)
}

func TestPlanCorruptLedgerIsFatal(t *testing.T) {
	// The canonical's own key inside its duplicate set is a consistency
	// violation: abort, apply nothing.
	canonical := model.Structure{
		UUID:       "x",
		Source:     model.Source{Database: "mpds", Version: "1", ID: "900"},
		Duplicates: []string{"mpds|1|900", "cod|1|100"},
	}

	s := &mockStore{collections: map[string][]model.Structure{"unique": {canonical}}}
	refiner := NewRefiner(s, table(), nil, nil)

	_, _, err := refiner.Plan(context.Background(), "unique")
	require.Error(t, err)

	var consistency *ledger.ConsistencyError
	assert.ErrorAs(t, err, &consistency)
	assert.Empty(t, s.applied)
}

func TestPlanMissingCollection(t *testing.T) {
	s := &mockStore{collections: map[string][]model.Structure{}}
	refiner := NewRefiner(s, table(), nil, nil)

	_, _, err := refiner.Plan(context.Background(), "nope")
	assert.ErrorContains(t, err, "does not exist")
}
