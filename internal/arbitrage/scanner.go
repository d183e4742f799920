package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/fees"
	"arbscreen/internal/infra/log"
	"arbscreen/internal/infra/metrics"
	"arbscreen/internal/num"
	"arbscreen/internal/opportunity"
	"arbscreen/internal/orderbook"
	"arbscreen/internal/strategy"
)

// Batch is the immutable input of one scan.
type Batch struct {
	Snapshots []orderbook.Snapshot
	Failures  []Failure // carried from collection
}

// Failure records one item a scan had to skip.
type Failure struct {
	Stage    string // fetch, snapshot, triangular, cross_exchange
	Exchange string
	Subject  string // symbol, cycle or exchange pair
	Reason   string
	Err      error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", f.Stage, f.Exchange, f.Subject, f.Err)
}

// Result is the ranked output of one scan.
type Result struct {
	ScanID     string
	Triangular []opportunity.Opportunity
	Cross      []opportunity.Opportunity
	Failures   []Failure
	Evaluated  int
	StartedAt  time.Time
	Duration   time.Duration
}

// Reason maps an evaluation error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, strategy.ErrStaleSnapshots):
		return "stale"
	case errors.Is(err, orderbook.ErrInvalidSnapshot):
		return "invalid_snapshot"
	case errors.Is(err, strategy.ErrSnapshotMismatch):
		return "mismatch"
	case errors.Is(err, strategy.ErrCycleNotClosed), errors.Is(err, strategy.ErrCycleLegs):
		return "bad_cycle"
	case errors.Is(err, common.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, common.ErrEmptyBook):
		return "empty_book"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}

type pinned struct {
	origin  string
	symbols [3]orderbook.Symbol
}

// Scanner turns a batch of snapshots into ranked opportunities. It keeps no
// state between scans and is safe for concurrent use.
type Scanner struct {
	eval       strategy.Evaluator
	start      decimal.Decimal
	minProfit  decimal.Decimal
	origins    []string
	maxAssets  int
	workers    int
	triangular bool
	cross      bool
	pinned     []pinned
	logger     log.Logger
	now        func() time.Time
}

func NewScanner(cfg config.Config, logger log.Logger) (*Scanner, error) {
	fm, err := fees.FromBps(cfg.Fees.TakerBps, cfg.Fees.DefaultTakerBps)
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		start:      num.FromFloat(cfg.Scan.InvestmentAmount),
		minProfit:  num.FromFloat(cfg.Scan.MinProfitPct),
		maxAssets:  cfg.Scan.MaxAssets,
		workers:    max(1, cfg.Scan.Workers),
		triangular: cfg.Scan.Triangular,
		cross:      cfg.Scan.CrossExchange,
		logger:     logger,
		now:        time.Now,
	}
	if s.start.Sign() <= 0 {
		return nil, strategy.ErrNonPositiveNotional
	}
	for _, o := range cfg.Scan.OriginAssets {
		s.origins = append(s.origins, strings.ToUpper(strings.TrimSpace(o)))
	}
	for _, tri := range cfg.Scan.Triangles {
		p := pinned{origin: strings.ToUpper(tri.Origin)}
		for i, raw := range []string{tri.AB, tri.BC, tri.CA} {
			sym, err := orderbook.ParseSymbol(raw)
			if err != nil {
				return nil, fmt.Errorf("triangle %s,%s,%s: %w", tri.AB, tri.BC, tri.CA, err)
			}
			p.symbols[i] = sym
		}
		if _, err := strategy.CycleFromSymbols(p.origin, p.symbols[:]...); err != nil {
			return nil, fmt.Errorf("triangle %s,%s,%s: %w", tri.AB, tri.BC, tri.CA, err)
		}
		s.pinned = append(s.pinned, p)
	}
	clock := func() time.Time { return s.now() }
	s.eval = strategy.NewEvaluator(fm,
		strategy.WithDust(num.FromFloat(cfg.Scan.DustThreshold)),
		strategy.WithMaxStaleness(cfg.MaxStaleness()),
		strategy.WithClock(clock),
	)
	return s, nil
}

type job struct {
	kind     opportunity.Kind
	exchange string
	subject  string
	run      func() (opportunity.Opportunity, error)
}

type outcome struct {
	opp opportunity.Opportunity
	err error
}

// Scan evaluates every cycle and exchange pair the batch supports. Item-level
// problems become Failures; the error is non-nil only when ctx ends first.
func (s *Scanner) Scan(ctx context.Context, b Batch) (Result, error) {
	res := Result{ScanID: uuid.NewString(), StartedAt: s.now(), Failures: append([]Failure(nil), b.Failures...)}

	books := make(map[string]orderbook.Snapshot, len(b.Snapshots))
	for _, snap := range b.Snapshots {
		if err := snap.Validate(); err != nil {
			res.Failures = append(res.Failures, Failure{Stage: "snapshot", Exchange: snap.Exchange, Subject: snap.Symbol.String(), Reason: Reason(err), Err: err})
			continue
		}
		if prev, ok := books[snap.Key()]; ok && prev.Timestamp.After(snap.Timestamp) {
			continue
		}
		books[snap.Key()] = snap
	}

	var jobs []job
	if s.triangular {
		jobs = append(jobs, s.triangleJobs(books)...)
	}
	if s.cross {
		jobs = append(jobs, s.crossJobs(books)...)
	}

	outs := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := j.run()
			outs[i] = outcome{opp: o, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var tri, cross []opportunity.Opportunity
	for i, o := range outs {
		j := jobs[i]
		if o.err != nil {
			reason := Reason(o.err)
			metrics.EvalFailuresTotal.WithLabelValues(string(j.kind), reason).Inc()
			res.Failures = append(res.Failures, Failure{Stage: string(j.kind), Exchange: j.exchange, Subject: j.subject, Reason: reason, Err: o.err})
			continue
		}
		res.Evaluated++
		if j.kind == opportunity.Triangular {
			metrics.TrianglesCheckedTotal.Inc()
			tri = append(tri, o.opp)
		} else {
			metrics.CrossPairsCheckedTotal.Inc()
			cross = append(cross, o.opp)
		}
	}
	res.Triangular = finalize(opportunity.Rank(tri, s.minProfit), opportunity.Triangular)
	res.Cross = finalize(opportunity.Rank(cross, s.minProfit), opportunity.CrossExchange)
	res.Duration = s.now().Sub(res.StartedAt)
	return res, nil
}

// finalize stamps ids on ranked entries and records their metrics.
func finalize(ranked []opportunity.Opportunity, kind opportunity.Kind) []opportunity.Opportunity {
	for i := range ranked {
		ranked[i].ID = uuid.NewString()
		if !ranked[i].FullyFilled {
			metrics.PartialFillsTotal.WithLabelValues(string(kind)).Inc()
		}
		for _, l := range ranked[i].Legs {
			metrics.LegSlippageBps.Observe(l.Fill.SlippageBps.InexactFloat64())
		}
	}
	metrics.OpportunitiesFound.WithLabelValues(string(kind)).Add(float64(len(ranked)))
	if len(ranked) > 0 {
		metrics.BestProfitPct.WithLabelValues(string(kind)).Set(ranked[0].ProfitPct.InexactFloat64())
	}
	return ranked
}

func byExchange(books map[string]orderbook.Snapshot) map[string][]orderbook.Symbol {
	out := map[string][]orderbook.Symbol{}
	for _, b := range books {
		out[b.Exchange] = append(out[b.Exchange], b.Symbol)
	}
	for _, syms := range out {
		sort.Slice(syms, func(i, j int) bool { return syms[i].String() < syms[j].String() })
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Scanner) triangleJobs(books map[string]orderbook.Snapshot) []job {
	var jobs []job
	markets := byExchange(books)
	for _, ex := range sortedKeys(markets) {
		for _, c := range s.cycles(ex, markets[ex], books) {
			var snaps [3]orderbook.Snapshot
			for i, l := range c.Legs() {
				snaps[i] = books[ex+"|"+l.Symbol.String()]
			}
			jobs = append(jobs, job{
				kind:     opportunity.Triangular,
				exchange: ex,
				subject:  c.Path(),
				run:      func() (opportunity.Opportunity, error) { return s.eval.Triangle(c, snaps, s.start) },
			})
		}
	}
	return jobs
}

// cycles returns the pinned triangles tradable on ex, or every enumerated
// cycle when none are configured.
func (s *Scanner) cycles(ex string, symbols []orderbook.Symbol, books map[string]orderbook.Snapshot) []strategy.Cycle {
	if len(s.pinned) == 0 {
		return strategy.EnumerateCycles(ex, symbols, s.origins, s.maxAssets)
	}
	var out []strategy.Cycle
	for _, p := range s.pinned {
		present := true
		for _, sym := range p.symbols {
			if _, ok := books[ex+"|"+sym.String()]; !ok {
				present = false
			}
		}
		if !present {
			continue
		}
		c, err := strategy.CycleFromSymbols(p.origin, p.symbols[:]...)
		if err != nil {
			s.logger.Debug().Err(err).Str("exchange", ex).Msg("pinned triangle skipped")
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Scanner) quoteAllowed(quote string) bool {
	if len(s.origins) == 0 {
		return true
	}
	for _, o := range s.origins {
		if o == quote {
			return true
		}
	}
	return false
}

// crossJobs pairs every symbol listed on two or more exchanges, in both directions.
func (s *Scanner) crossJobs(books map[string]orderbook.Snapshot) []job {
	venues := map[string][]orderbook.Snapshot{}
	for _, b := range books {
		if s.quoteAllowed(b.Symbol.Quote) {
			venues[b.Symbol.String()] = append(venues[b.Symbol.String()], b)
		}
	}
	var jobs []job
	for _, sym := range sortedKeys(venues) {
		snaps := venues[sym]
		if len(snaps) < 2 {
			continue
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Exchange < snaps[j].Exchange })
		for _, buy := range snaps {
			for _, sell := range snaps {
				if buy.Exchange == sell.Exchange {
					continue
				}
				jobs = append(jobs, job{
					kind:     opportunity.CrossExchange,
					exchange: buy.Exchange + "->" + sell.Exchange,
					subject:  sym,
					run:      func() (opportunity.Opportunity, error) { return s.eval.Cross(buy, sell, s.start) },
				})
			}
		}
	}
	return jobs
}
