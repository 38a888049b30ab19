package model

// Prototype is one equivalence class computed within a bucket: a set of
// records connected, directly or transitively, by the similarity oracle.
// Members keep the deterministic bucket order (num_sites, uuid ascending);
// Canonical indexes the designated representative within Members.
type Prototype struct {
	Members   []Structure `json:"members"`
	Canonical int         `json:"canonical"`
}

// CanonicalStructure returns the designated representative.
func (p Prototype) CanonicalStructure() Structure {
	return p.Members[p.Canonical]
}

// MemberUUIDs returns the UUIDs of all members in class order.
func (p Prototype) MemberUUIDs() []string {
	uuids := make([]string, len(p.Members))
	for i, m := range p.Members {
		uuids[i] = m.UUID
	}
	return uuids
}
