package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/spinel/internal/config"
	"github.com/agenthands/spinel/internal/core/bucket"
	"github.com/agenthands/spinel/internal/core/cluster"
	"github.com/agenthands/spinel/internal/core/matcher"
	"github.com/agenthands/spinel/internal/store"
)

// Options tweak the engine wiring per invocation, on top of the file
// configuration.
type Options struct {
	// Strategy overrides cluster.strategy when non-empty.
	Strategy string
	// NoSpaceGroup disables space-group bucket stratification for the run.
	NoSpaceGroup bool
}

// FromConfig wires an Engine from configuration: exec-backed comparator and
// symmetry clients, oracle with the per-pair timeout, cluster strategy and
// worker limits.
func FromConfig(cfg *config.Config, s store.Store, log *zap.Logger, opts Options) (*Engine, error) {
	if cfg.Matcher.Command == "" {
		return nil, fmt.Errorf("matcher.command is not configured")
	}

	params := matcher.Params{
		LengthTol:        cfg.Matcher.LengthTol,
		SiteTol:          cfg.Matcher.SiteTol,
		AngleTol:         cfg.Matcher.AngleTol,
		Scale:            cfg.Matcher.Scale,
		PrimitiveCell:    cfg.Matcher.PrimitiveCell,
		AttemptSupercell: cfg.Matcher.AttemptSupercell,
	}
	comparator := &matcher.CommandComparator{Command: cfg.Matcher.Command, Args: cfg.Matcher.Args}
	oracle := matcher.NewOracle(comparator, params, time.Duration(cfg.Matcher.TimeoutSeconds)*time.Second, log)

	keyer := bucket.Keyer{Symprec: cfg.Symmetry.Symprec}
	if cfg.Symmetry.Enabled && !opts.NoSpaceGroup {
		if cfg.Symmetry.Command == "" {
			return nil, fmt.Errorf("symmetry.enabled is set but symmetry.command is not configured")
		}
		symmetry := &matcher.CommandSymmetry{Command: cfg.Symmetry.Command, Args: cfg.Symmetry.Args}
		keyer.SpaceGroup = symmetry.SpaceGroup
	}

	strategyName := cfg.Cluster.Strategy
	if opts.Strategy != "" {
		strategyName = opts.Strategy
	}
	strategy, err := cluster.New(strategyName)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(s, oracle, keyer, strategy, log)
	if cfg.Concurrency.Buckets > 0 {
		engine.Workers = cfg.Concurrency.Buckets
	}
	if cfg.Bucketing.MaxBucketSize > 0 {
		engine.MaxBucketSize = cfg.Bucketing.MaxBucketSize
	}
	return engine, nil
}
