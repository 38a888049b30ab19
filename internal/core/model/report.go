package model

// PairFailure records a comparator failure for one unordered pair. The pair
// is treated as not equivalent; the failure is surfaced for operator review.
type PairFailure struct {
	AUUID string `json:"a_uuid"`
	BUUID string `json:"b_uuid"`
	Err   string `json:"error"`
}

// KeyFailure records a structure that could not be assigned a bucket key,
// typically because the space-group computation failed. Such records land
// in the failed bucket: excluded from clustering, never dropped silently.
type KeyFailure struct {
	UUID string `json:"uuid"`
	Err  string `json:"error"`
}

// OversizeBucket records a bucket that exceeded the configured maximum and
// was therefore not clustered this run.
type OversizeBucket struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// RunReport summarizes one reconciliation run.
type RunReport struct {
	RunID              string           `json:"run_id"`
	Candidates         int              `json:"candidates"`
	References         int              `json:"references"`
	Buckets            int              `json:"buckets"`
	Prototypes         int              `json:"prototypes"`
	NewCanonicals      int              `json:"new_canonicals"`
	UpdatedCanonicals  int              `json:"updated_canonicals"`
	ComparatorCalls    int              `json:"comparator_calls"`
	ComparatorFailures []PairFailure    `json:"comparator_failures,omitempty"`
	KeyFailures        []KeyFailure     `json:"key_failures,omitempty"`
	OversizeBuckets    []OversizeBucket `json:"oversize_buckets,omitempty"`
	DryRun             bool             `json:"dry_run"`
}
