package cluster

import "github.com/agenthands/spinel/internal/core/model"

// SelectCanonical designates the representative of a prototype. An already
// established canonical (a member present in the reference set) is never
// demoted; failing that, the first member in class order wins, which keeps
// the choice stable across re-runs over the same or superset input.
func SelectCanonical(p *model.Prototype, referenceUUIDs map[string]bool) {
	for i, member := range p.Members {
		if referenceUUIDs[member.UUID] {
			p.Canonical = i
			return
		}
	}
	p.Canonical = 0
}
