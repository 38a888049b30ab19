package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/spinel/internal/core/matcher"
	"github.com/agenthands/spinel/internal/core/model"
)

// Strategy partitions the records of one bucket into equivalence classes
// ("prototypes") using the similarity oracle. Records must already be in
// the deterministic bucket order (see Order); strategies preserve that
// order within each class and emit classes ordered by their first member.
type Strategy interface {
	Cluster(ctx context.Context, records []model.Structure, oracle *matcher.Oracle) []model.Prototype
}

// New returns the strategy registered under name: "components" (full
// pairwise connected components) or "greedy" (first-come-first-serve).
// Greedy partitions are always a refinement of the components partition
// for the same input.
func New(name string) (Strategy, error) {
	switch name {
	case "", "components":
		return &ComponentsStrategy{}, nil
	case "greedy":
		return &GreedyStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown cluster strategy %q", name)
	}
}

// Order sorts records by (num_sites ascending, uuid ascending), the order
// that makes comparison sequence and canonical tie-breaks reproducible.
func Order(records []model.Structure) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].NumSites != records[j].NumSites {
			return records[i].NumSites < records[j].NumSites
		}
		return records[i].UUID < records[j].UUID
	})
}

// ComponentsStrategy compares every unordered pair in the bucket and takes
// connected components of the resulting graph as equivalence classes. The
// O(n^2) oracle scan is deliberate: bucketing keeps n small.
type ComponentsStrategy struct{}

func (s *ComponentsStrategy) Cluster(ctx context.Context, records []model.Structure, oracle *matcher.Oracle) []model.Prototype {
	n := len(records)
	if n == 0 {
		return nil
	}
	if n == 1 {
		// Trivial class, no comparator calls.
		return []model.Prototype{{Members: records}}
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if oracle.Equivalent(ctx, records[i], records[j]) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var prototypes []model.Prototype
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		var component []int
		dfs(i, adj, visited, &component)
		sort.Ints(component)

		members := make([]model.Structure, len(component))
		for k, idx := range component {
			members[k] = records[idx]
		}
		prototypes = append(prototypes, model.Prototype{Members: members})
	}
	return prototypes
}

func dfs(u int, adj [][]int, visited []bool, component *[]int) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			dfs(v, adj, visited, component)
		}
	}
}

// GreedyStrategy walks the bucket in order and matches each record against
// the representatives accepted so far, stopping at the first hit. Cheaper
// than the full pairwise scan but order-dependent: it may split a class
// that the components strategy would join through a transitive chain.
type GreedyStrategy struct{}

func (s *GreedyStrategy) Cluster(ctx context.Context, records []model.Structure, oracle *matcher.Oracle) []model.Prototype {
	if len(records) == 0 {
		return nil
	}

	var prototypes []model.Prototype
	for _, record := range records {
		matched := false
		for i := range prototypes {
			representative := prototypes[i].Members[0]
			if oracle.Equivalent(ctx, representative, record) {
				prototypes[i].Members = append(prototypes[i].Members, record)
				matched = true
				break
			}
		}
		if !matched {
			prototypes = append(prototypes, model.Prototype{Members: []model.Structure{record}})
		}
	}
	return prototypes
}
