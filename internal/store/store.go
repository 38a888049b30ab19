// Package store adapts the graph store into the record-store interface the
// uniqueness engine operates on: collections of structure records with
// attribute filters, duplicate-set writes and an atomic write-set apply.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/spinel/internal/core/model"
	"github.com/agenthands/spinel/internal/driver"
)

// ErrNotFound signals a missing collection or record.
var ErrNotFound = errors.New("not found")

// Filter narrows a collection fetch by record attributes.
type Filter struct {
	// ContainsElements keeps only records whose chemical system includes
	// every listed element.
	ContainsElements []string
	// SkipElements drops records whose chemical system includes any listed
	// element.
	SkipElements []string
	// MaxSites, when positive, caps the number of sites.
	MaxSites int
	// PartialOccupancies, when set, filters on the partial-occupancy flag.
	PartialOccupancies *bool
	// Limit, when positive, caps the number of returned records.
	Limit int
}

// Store is the record-store handle threaded through every engine
// operation. No global session state: each Store is bound to one driver.
type Store interface {
	CollectionExists(ctx context.Context, label string) (bool, error)
	CreateCollection(ctx context.Context, label string) error
	CountCollection(ctx context.Context, label string) (int, error)
	// CountAll reports the number of structure records across all
	// collections.
	CountAll(ctx context.Context) (int, error)
	FetchCollection(ctx context.Context, label string, f Filter) ([]model.Structure, error)
	FindBySource(ctx context.Context, database, id string) (*model.Structure, error)
	// Apply persists a write-set atomically: all of it or none of it.
	Apply(ctx context.Context, ws *model.WriteSet) error
}

type GraphStore struct {
	Driver driver.GraphDriver
}

func NewGraphStore(d driver.GraphDriver) *GraphStore {
	return &GraphStore{Driver: d}
}

func (g *GraphStore) CollectionExists(ctx context.Context, label string) (bool, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.CollectionExistsQuery, map[string]interface{}{"label": label})
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

func (g *GraphStore) CreateCollection(ctx context.Context, label string) error {
	_, err := g.Driver.ExecuteQuery(ctx, driver.CreateCollectionQuery, map[string]interface{}{"label": label})
	return err
}

func (g *GraphStore) CountCollection(ctx context.Context, label string) (int, error) {
	return g.count(ctx, driver.CountCollectionQuery, map[string]interface{}{"label": label})
}

func (g *GraphStore) CountAll(ctx context.Context) (int, error) {
	return g.count(ctx, driver.CountStructuresQuery, nil)
}

func (g *GraphStore) count(ctx context.Context, query string, params map[string]interface{}) (int, error) {
	res, err := g.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	count, _ := res.Records[0].Get("count")
	n, ok := count.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", count)
	}
	return int(n), nil
}

func (g *GraphStore) FetchCollection(ctx context.Context, label string, f Filter) ([]model.Structure, error) {
	query, params := buildFetchQuery(label, f)
	res, err := g.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection %s: %w", label, err)
	}

	structures := make([]model.Structure, 0, len(res.Records))
	for _, rec := range res.Records {
		s, err := recordToStructure(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record from %s: %w", label, err)
		}
		structures = append(structures, s)
	}
	return structures, nil
}

func (g *GraphStore) FindBySource(ctx context.Context, database, id string) (*model.Structure, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.FindBySourceQuery, map[string]interface{}{
		"database": database,
		"id":       id,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("structure %s|%s: %w", database, id, ErrNotFound)
	}
	s, err := recordToStructure(res.Records[0])
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *GraphStore) Apply(ctx context.Context, ws *model.WriteSet) error {
	if ws.Empty() {
		return nil
	}
	return g.Driver.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, update := range ws.Updates {
			if _, err := tx.Run(ctx, driver.SetDuplicatesQuery, map[string]interface{}{
				"uuid":       update.UUID,
				"duplicates": update.Duplicates,
			}); err != nil {
				return fmt.Errorf("failed to update duplicates of %s: %w", update.UUID, err)
			}
		}
		for _, addition := range ws.Additions {
			if _, err := tx.Run(ctx, driver.SetDuplicatesQuery, map[string]interface{}{
				"uuid":       addition.UUID,
				"duplicates": addition.Duplicates,
			}); err != nil {
				return fmt.Errorf("failed to set duplicates of %s: %w", addition.UUID, err)
			}
			if _, err := tx.Run(ctx, driver.AddToCollectionQuery, map[string]interface{}{
				"label": ws.Collection,
				"uuid":  addition.UUID,
			}); err != nil {
				return fmt.Errorf("failed to add %s to %s: %w", addition.UUID, ws.Collection, err)
			}
		}
		for _, removal := range ws.Removals {
			if _, err := tx.Run(ctx, driver.ClearDuplicatesQuery, map[string]interface{}{
				"uuid": removal.UUID,
			}); err != nil {
				return fmt.Errorf("failed to clear duplicates of %s: %w", removal.UUID, err)
			}
			if _, err := tx.Run(ctx, driver.RemoveFromCollectionQuery, map[string]interface{}{
				"label": ws.Collection,
				"uuid":  removal.UUID,
			}); err != nil {
				return fmt.Errorf("failed to remove %s from %s: %w", removal.UUID, ws.Collection, err)
			}
		}
		return nil
	})
}

func buildFetchQuery(label string, f Filter) (string, map[string]interface{}) {
	var b strings.Builder
	params := map[string]interface{}{"label": label}

	b.WriteString("MATCH (c:Collection {label: $label})-[:CONTAINS]->(s:Structure)\n")

	// Records flagged with an incorrect formula are never considered.
	clauses := []string{"s.incorrect_formula IS NULL"}

	for i, el := range f.ContainsElements {
		p := fmt.Sprintf("contains_%d", i)
		clauses = append(clauses, fmt.Sprintf("s.chemical_system CONTAINS $%s", p))
		params[p] = "-" + el + "-"
	}
	for i, el := range f.SkipElements {
		p := fmt.Sprintf("skip_%d", i)
		clauses = append(clauses, fmt.Sprintf("NOT s.chemical_system CONTAINS $%s", p))
		params[p] = "-" + el + "-"
	}
	if f.MaxSites > 0 {
		clauses = append(clauses, "s.num_sites <= $max_sites")
		params["max_sites"] = f.MaxSites
	}
	if f.PartialOccupancies != nil {
		clauses = append(clauses, "s.partial_occupancies = $partial_occupancies")
		params["partial_occupancies"] = *f.PartialOccupancies
	}

	b.WriteString("WHERE " + strings.Join(clauses, " AND ") + "\n")
	b.WriteString(`RETURN s.uuid AS uuid,
		s.source_database AS source_database,
		s.source_id AS source_id,
		s.source_version AS source_version,
		s.formula AS formula,
		s.chemical_system AS chemical_system,
		s.num_sites AS num_sites,
		s.partial_occupancies AS partial_occupancies,
		s.duplicates AS duplicates,
		s.geometry AS geometry
	ORDER BY uuid`)
	if f.Limit > 0 {
		b.WriteString("\nLIMIT $limit")
		params["limit"] = f.Limit
	}

	return b.String(), params
}

func recordToStructure(rec *neo4j.Record) (model.Structure, error) {
	var s model.Structure

	s.UUID = stringField(rec, "uuid")
	s.Source = model.Source{
		Database: stringField(rec, "source_database"),
		ID:       stringField(rec, "source_id"),
		Version:  stringField(rec, "source_version"),
	}
	s.Formula = stringField(rec, "formula")
	s.ChemicalSystem = stringField(rec, "chemical_system")

	if v, ok := rec.Get("num_sites"); ok && v != nil {
		n, ok := v.(int64)
		if !ok {
			return s, fmt.Errorf("unexpected num_sites type %T", v)
		}
		s.NumSites = int(n)
	}
	if v, ok := rec.Get("partial_occupancies"); ok && v != nil {
		s.PartialOccupancies, _ = v.(bool)
	}
	if v, ok := rec.Get("duplicates"); ok && v != nil {
		items, ok := v.([]interface{})
		if !ok {
			return s, fmt.Errorf("unexpected duplicates type %T", v)
		}
		for _, item := range items {
			key, ok := item.(string)
			if !ok {
				return s, fmt.Errorf("unexpected duplicate key type %T", item)
			}
			s.Duplicates = append(s.Duplicates, key)
		}
	}
	if geometry := stringField(rec, "geometry"); geometry != "" {
		s.Geometry = json.RawMessage(geometry)
	}

	if s.UUID == "" {
		return s, fmt.Errorf("record has no uuid")
	}
	return s, nil
}

func stringField(rec *neo4j.Record, name string) string {
	v, ok := rec.Get(name)
	if !ok || v == nil {
		return ""
	}
	str, _ := v.(string)
	return str
}
