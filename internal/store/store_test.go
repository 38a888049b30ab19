package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildFetchQueryDefaults(t *testing.T) {
	query, params := buildFetchQuery("candidates", Filter{})

	assert.Contains(t, query, "MATCH (c:Collection {label: $label})-[:CONTAINS]->(s:Structure)")
	assert.Contains(t, query, "WHERE s.incorrect_formula IS NULL")
	assert.Contains(t, query, "ORDER BY uuid")
	assert.NotContains(t, query, "LIMIT")
	assert.Equal(t, map[string]interface{}{"label": "candidates"}, params)
}

func TestBuildFetchQueryElementFilters(t *testing.T) {
	query, params := buildFetchQuery("candidates", Filter{
		ContainsElements: []string{"Fe", "O"},
		SkipElements:     []string{"H"},
	})

	assert.Contains(t, query, "s.chemical_system CONTAINS $contains_0")
	assert.Contains(t, query, "s.chemical_system CONTAINS $contains_1")
	assert.Contains(t, query, "NOT s.chemical_system CONTAINS $skip_0")
	// Element names are bracketed so "H" cannot match inside "He".
	assert.Equal(t, "-Fe-", params["contains_0"])
	assert.Equal(t, "-O-", params["contains_1"])
	assert.Equal(t, "-H-", params["skip_0"])
}

func TestBuildFetchQueryBounds(t *testing.T) {
	query, params := buildFetchQuery("candidates", Filter{
		MaxSites:           40,
		PartialOccupancies: boolPtr(false),
		Limit:              100,
	})

	assert.Contains(t, query, "s.num_sites <= $max_sites")
	assert.Contains(t, query, "s.partial_occupancies = $partial_occupancies")
	assert.Contains(t, query, "LIMIT $limit")
	assert.Equal(t, 40, params["max_sites"])
	assert.Equal(t, false, params["partial_occupancies"])
	assert.Equal(t, 100, params["limit"])
}
