package strategy

import (
	"errors"
	"time"

	"arbscreen/internal/fees"

	"github.com/shopspring/decimal"
)

var (
	ErrSnapshotMismatch    = errors.New("snapshot does not match the evaluated path")
	ErrStaleSnapshots      = errors.New("snapshots too far apart in time")
	ErrNonPositiveNotional = errors.New("start notional must be positive")
)

// Evaluator scores cycles and exchange pairs against immutable snapshots.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	fees         fees.Model
	dust         decimal.Decimal
	maxStaleness time.Duration // 0 disables the check
	now          func() time.Time
}

type Option func(*Evaluator)

// WithDust treats a remaining target below dust as filled.
func WithDust(dust decimal.Decimal) Option { return func(e *Evaluator) { e.dust = dust } }

// WithMaxStaleness bounds the capture-time gap of a cross-exchange pair.
func WithMaxStaleness(d time.Duration) Option { return func(e *Evaluator) { e.maxStaleness = d } }

// WithClock stamps results with a custom clock.
func WithClock(now func() time.Time) Option { return func(e *Evaluator) { e.now = now } }

func NewEvaluator(fm fees.Model, opts ...Option) Evaluator {
	e := Evaluator{fees: fm, now: time.Now}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func (e Evaluator) Fees() fees.Model { return e.fees }
