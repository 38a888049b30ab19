// Package core implements the uniqueness engine: bucketing candidate and
// reference structures, clustering each bucket into prototypes via the
// similarity oracle, and reconciling the result into an idempotent
// write-set against the reference collection.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/spinel/internal/core/bucket"
	"github.com/agenthands/spinel/internal/core/cluster"
	"github.com/agenthands/spinel/internal/core/ledger"
	"github.com/agenthands/spinel/internal/core/matcher"
	"github.com/agenthands/spinel/internal/core/model"
	"github.com/agenthands/spinel/internal/store"
)

type Engine struct {
	Store    store.Store
	Oracle   *matcher.Oracle
	Keyer    bucket.Keyer
	Strategy cluster.Strategy
	// Workers bounds the number of buckets clustered concurrently.
	Workers int
	// MaxBucketSize caps the O(n^2) comparator scan per bucket. Oversized
	// buckets are reported and skipped, not clustered.
	MaxBucketSize int
	Log           *zap.Logger
}

func NewEngine(s store.Store, oracle *matcher.Oracle, keyer bucket.Keyer, strategy cluster.Strategy, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		Store:         s,
		Oracle:        oracle,
		Keyer:         keyer,
		Strategy:      strategy,
		Workers:       4,
		MaxBucketSize: 200,
		Log:           log,
	}
}

// ReconcileOptions select and filter the candidate and reference sets of
// one run.
type ReconcileOptions struct {
	Source       string
	Target       string
	Filter       store.Filter
	CreateTarget bool
	DryRun       bool
}

// Reconcile computes the write-set that folds the candidate collection into
// the reference collection. Nothing is written: the caller applies the
// write-set with Apply, or reports it in dry-run mode. Re-running over
// unchanged inputs after a successful apply yields an empty write-set.
func (e *Engine) Reconcile(ctx context.Context, opts ReconcileOptions) (*model.WriteSet, *model.RunReport, error) {
	report := &model.RunReport{RunID: uuid.New().String(), DryRun: opts.DryRun}

	if exists, err := e.Store.CollectionExists(ctx, opts.Source); err != nil {
		return nil, nil, err
	} else if !exists {
		return nil, nil, fmt.Errorf("source collection %q does not exist", opts.Source)
	}

	if exists, err := e.Store.CollectionExists(ctx, opts.Target); err != nil {
		return nil, nil, err
	} else if !exists {
		if !opts.CreateTarget {
			return nil, nil, fmt.Errorf("target collection %q does not exist (use --create-target to create it)", opts.Target)
		}
		if !opts.DryRun {
			if err := e.Store.CreateCollection(ctx, opts.Target); err != nil {
				return nil, nil, fmt.Errorf("failed to create target collection %q: %w", opts.Target, err)
			}
		}
	}

	candidates, err := e.Store.FetchCollection(ctx, opts.Source, opts.Filter)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("no candidate structures in %q match the given filters", opts.Source)
	}

	referenceFilter := opts.Filter
	referenceFilter.Limit = 0
	references, err := e.Store.FetchCollection(ctx, opts.Target, referenceFilter)
	if err != nil {
		return nil, nil, err
	}

	report.Candidates = len(candidates)
	report.References = len(references)
	e.Log.Info("fetched structures",
		zap.String("run_id", report.RunID),
		zap.Int("candidates", len(candidates)),
		zap.Int("references", len(references)))

	buckets, keyFailures := e.Keyer.Partition(ctx, candidates)
	report.KeyFailures = keyFailures

	bucketed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		bucketed[c.UUID] = true
	}

	referenceUUIDs := make(map[string]bool, len(references))
	for _, ref := range references {
		referenceUUIDs[ref.UUID] = true
		// A record can sit in both collections after a previous run added
		// it to the reference set; it is already bucketed as a candidate.
		if bucketed[ref.UUID] {
			continue
		}
		key, err := e.Keyer.Key(ctx, ref)
		if err != nil {
			report.KeyFailures = append(report.KeyFailures, model.KeyFailure{UUID: ref.UUID, Err: err.Error()})
			continue
		}
		// Reference-only buckets cannot gain members; skip them entirely.
		if _, ok := buckets[key]; !ok {
			continue
		}
		buckets[key] = append(buckets[key], ref)
	}

	keys := bucket.SortedKeys(buckets)
	clusterable := keys[:0:len(keys)]
	for _, key := range keys {
		if size := len(buckets[key]); e.MaxBucketSize > 0 && size > e.MaxBucketSize {
			e.Log.Warn("bucket exceeds maximum size, skipping",
				zap.String("bucket", key),
				zap.Int("size", size),
				zap.Int("max", e.MaxBucketSize))
			report.OversizeBuckets = append(report.OversizeBuckets, model.OversizeBucket{Key: key, Size: size})
			continue
		}
		clusterable = append(clusterable, key)
	}
	report.Buckets = len(clusterable)

	prototypes, err := e.clusterBuckets(ctx, buckets, clusterable)
	if err != nil {
		return nil, nil, err
	}
	report.Prototypes = len(prototypes)
	report.ComparatorCalls = e.Oracle.Calls()
	report.ComparatorFailures = e.Oracle.Failures()

	ws := &model.WriteSet{Collection: opts.Target}
	for i := range prototypes {
		p := &prototypes[i]
		cluster.SelectCanonical(p, referenceUUIDs)
		if err := e.reconcilePrototype(p, referenceUUIDs, ws); err != nil {
			return nil, nil, err
		}
	}
	report.NewCanonicals = len(ws.Additions)
	report.UpdatedCanonicals = len(ws.Updates)

	e.Log.Info("reconciliation computed",
		zap.String("run_id", report.RunID),
		zap.Int("buckets", report.Buckets),
		zap.Int("prototypes", report.Prototypes),
		zap.Int("new_canonicals", report.NewCanonicals),
		zap.Int("updated_canonicals", report.UpdatedCanonicals),
		zap.Int("comparator_failures", len(report.ComparatorFailures)))

	return ws, report, nil
}

// clusterBuckets runs the cluster strategy over independent buckets on a
// bounded worker pool. Results are collected per bucket and flattened in
// deterministic key order by the coordinator.
func (e *Engine) clusterBuckets(ctx context.Context, buckets map[string][]model.Structure, keys []string) ([]model.Prototype, error) {
	results := make([][]model.Prototype, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}

	var mu sync.Mutex
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records := buckets[key]
			cluster.Order(records)
			protos := e.Strategy.Cluster(gctx, records, e.Oracle)
			mu.Lock()
			results[i] = protos
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var prototypes []model.Prototype
	for _, protos := range results {
		prototypes = append(prototypes, protos...)
	}
	return prototypes, nil
}

// reconcilePrototype turns one prototype into write-set entries. The
// prototype's duplicate set is the union of every member's key and every
// member's previously recorded duplicates, minus the canonical's own key.
func (e *Engine) reconcilePrototype(p *model.Prototype, referenceUUIDs map[string]bool, ws *model.WriteSet) error {
	canonical := p.CanonicalStructure()
	canonicalKey := canonical.DuplicateKey()

	current := ledger.NewSet(canonical.Duplicates...)

	var keys []string
	for _, member := range p.Members {
		memberKey := member.DuplicateKey()
		// Every member's stored set flows into the union, so corruption in
		// any of them must abort, not just in the canonical's.
		if ledger.NewSet(member.Duplicates...).Contains(memberKey) {
			return &ledger.ConsistencyError{
				Canonical: memberKey,
				Detail:    fmt.Sprintf("record %s lists its own key among its duplicates", member.UUID),
			}
		}
		keys = append(keys, memberKey)
		keys = append(keys, member.Duplicates...)
	}
	next := ledger.Union(canonicalKey, current, keys...)

	if referenceUUIDs[canonical.UUID] {
		if !next.Equal(current) {
			ws.Updates = append(ws.Updates, model.DuplicateUpdate{UUID: canonical.UUID, Duplicates: next.Sorted()})
		}
		return nil
	}

	ws.Additions = append(ws.Additions, model.DuplicateUpdate{UUID: canonical.UUID, Duplicates: next.Sorted()})
	return nil
}

// Apply persists a computed write-set in one atomic transaction.
func (e *Engine) Apply(ctx context.Context, ws *model.WriteSet) error {
	if ws.Empty() {
		e.Log.Info("write-set empty, nothing to apply")
		return nil
	}
	if err := e.Store.Apply(ctx, ws); err != nil {
		return fmt.Errorf("failed to apply write-set: %w", err)
	}
	e.Log.Info("write-set applied",
		zap.String("collection", ws.Collection),
		zap.Int("updates", len(ws.Updates)),
		zap.Int("additions", len(ws.Additions)),
		zap.Int("removals", len(ws.Removals)))
	return nil
}
