package matcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/spinel/internal/core/model"
)

// Params is the fixed parameter set of the structural comparator, supplied
// once per run.
type Params struct {
	LengthTol        float64 `json:"ltol" toml:"length_tol"`
	SiteTol          float64 `json:"stol" toml:"site_tol"`
	AngleTol         float64 `json:"angle_tol" toml:"angle_tol"`
	Scale            bool    `json:"scale" toml:"scale"`
	PrimitiveCell    bool    `json:"primitive_cell" toml:"primitive_cell"`
	AttemptSupercell bool    `json:"attempt_supercell" toml:"attempt_supercell"`
}

// DefaultParams returns the comparator defaults. primitive_cell is off
// because imported structures are already primitivized by the cleaning
// pipeline.
func DefaultParams() Params {
	return Params{
		LengthTol:        0.2,
		SiteTol:          0.3,
		AngleTol:         5.0,
		Scale:            true,
		PrimitiveCell:    false,
		AttemptSupercell: false,
	}
}

// Comparator judges whether two structural geometries represent the same
// physical structure. Implementations may fail on ill-defined input; the
// Oracle converts such failures into non-equivalence.
type Comparator interface {
	Fit(ctx context.Context, params Params, a, b model.Structure) (bool, error)
}

// Oracle wraps a Comparator behind the uniform are-equivalent contract the
// cluster builder consumes. Comparator failures and timeouts never escape:
// the pair is reported as not equivalent and the failure is recorded for
// operator review. Safe for concurrent use.
type Oracle struct {
	comparator Comparator
	params     Params
	timeout    time.Duration
	log        *zap.Logger

	mu       sync.Mutex
	calls    int
	failures []model.PairFailure
}

// NewOracle builds an oracle over comparator. A zero timeout disables the
// per-pair deadline.
func NewOracle(comparator Comparator, params Params, timeout time.Duration, log *zap.Logger) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{comparator: comparator, params: params, timeout: timeout, log: log}
}

// Equivalent reports whether a and b represent the same structure. A
// comparator failure yields false and a recorded failure event.
func (o *Oracle) Equivalent(ctx context.Context, a, b model.Structure) bool {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	match, err := o.comparator.Fit(ctx, o.params, a, b)

	o.mu.Lock()
	o.calls++
	if err != nil {
		o.failures = append(o.failures, model.PairFailure{AUUID: a.UUID, BUUID: b.UUID, Err: err.Error()})
	}
	o.mu.Unlock()

	if err != nil {
		o.log.Warn("could not match structures",
			zap.String("a", a.UUID),
			zap.String("b", b.UUID),
			zap.Error(err))
		return false
	}
	return match
}

// Calls returns the number of comparator invocations so far.
func (o *Oracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Failures returns a copy of the recorded failure events.
func (o *Oracle) Failures() []model.PairFailure {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.PairFailure, len(o.failures))
	copy(out, o.failures)
	return out
}
