package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agenthands/spinel/internal/core/matcher"
	"github.com/agenthands/spinel/internal/core/model"
	"github.com/agenthands/spinel/internal/store"
)

// MockStore is an in-memory record store. Apply mutates it the way the
// graph store would, so idempotence can be exercised end to end.
type MockStore struct {
	Collections map[string]map[string]bool
	Records     map[string]model.Structure
	Applied     []*model.WriteSet
	ApplyErr    error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Collections: map[string]map[string]bool{},
		Records:     map[string]model.Structure{},
	}
}

func (m *MockStore) AddCollection(label string) {
	if m.Collections[label] == nil {
		m.Collections[label] = map[string]bool{}
	}
}

func (m *MockStore) AddRecord(collection string, s model.Structure) {
	m.AddCollection(collection)
	m.Collections[collection][s.UUID] = true
	m.Records[s.UUID] = s
}

func (m *MockStore) CollectionExists(ctx context.Context, label string) (bool, error) {
	_, ok := m.Collections[label]
	return ok, nil
}

func (m *MockStore) CreateCollection(ctx context.Context, label string) error {
	m.AddCollection(label)
	return nil
}

func (m *MockStore) CountCollection(ctx context.Context, label string) (int, error) {
	return len(m.Collections[label]), nil
}

func (m *MockStore) CountAll(ctx context.Context) (int, error) {
	return len(m.Records), nil
}

func (m *MockStore) FetchCollection(ctx context.Context, label string, f store.Filter) ([]model.Structure, error) {
	members, ok := m.Collections[label]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", label, store.ErrNotFound)
	}

	uuids := make([]string, 0, len(members))
	for uuid := range members {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var out []model.Structure
	for _, uuid := range uuids {
		s := m.Records[uuid]
		if f.MaxSites > 0 && s.NumSites > f.MaxSites {
			continue
		}
		if f.PartialOccupancies != nil && s.PartialOccupancies != *f.PartialOccupancies {
			continue
		}
		if !matchesElements(s, f) {
			continue
		}
		out = append(out, s)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func matchesElements(s model.Structure, f store.Filter) bool {
	for _, el := range f.ContainsElements {
		if !strings.Contains(s.ChemicalSystem, "-"+el+"-") {
			return false
		}
	}
	for _, el := range f.SkipElements {
		if strings.Contains(s.ChemicalSystem, "-"+el+"-") {
			return false
		}
	}
	return true
}

func (m *MockStore) FindBySource(ctx context.Context, database, id string) (*model.Structure, error) {
	for _, s := range m.Records {
		if s.Source.Database == database && s.Source.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, fmt.Errorf("structure %s|%s: %w", database, id, store.ErrNotFound)
}

func (m *MockStore) Apply(ctx context.Context, ws *model.WriteSet) error {
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	m.Applied = append(m.Applied, ws)

	for _, update := range ws.Updates {
		s := m.Records[update.UUID]
		s.Duplicates = update.Duplicates
		m.Records[update.UUID] = s
	}
	for _, addition := range ws.Additions {
		s := m.Records[addition.UUID]
		s.Duplicates = addition.Duplicates
		m.Records[addition.UUID] = s
		m.AddCollection(ws.Collection)
		m.Collections[ws.Collection][addition.UUID] = true
	}
	for _, removal := range ws.Removals {
		s := m.Records[removal.UUID]
		s.Duplicates = nil
		m.Records[removal.UUID] = s
		delete(m.Collections[ws.Collection], removal.UUID)
	}
	return nil
}

// mockComparator judges pairs from a fixed table keyed by unordered UUID
// pair and records every pair asked about.
type mockComparator struct {
	equivalent map[string]bool

	mu    sync.Mutex
	pairs []string
}

func pairKey(a, b string) string {
	if a < b {
		return a + "~" + b
	}
	return b + "~" + a
}

func (m *mockComparator) Fit(ctx context.Context, params matcher.Params, a, b model.Structure) (bool, error) {
	key := pairKey(a.UUID, b.UUID)
	m.mu.Lock()
	m.pairs = append(m.pairs, key)
	m.mu.Unlock()
	return m.equivalent[key], nil
}

func (m *mockComparator) comparedPairs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pairs))
	copy(out, m.pairs)
	return out
}
