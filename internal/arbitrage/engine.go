package arbitrage

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/infra/health"
	"arbscreen/internal/infra/log"
	"arbscreen/internal/infra/metrics"
	"arbscreen/internal/opportunity"
	"arbscreen/internal/orderbook"
)

// Sink receives every completed scan.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r Result) error
}

// per-source fetch concurrency; pacing is left to the source's token bucket
const fetchConcurrency = 4

type Engine struct {
	cfg     config.Config
	sources []common.SnapshotSource
	scanner *Scanner
	sinks   []Sink
	health  *health.State
	logger  log.Logger
	now     func() time.Time

	mu      sync.RWMutex
	markets map[string][]orderbook.Symbol // resolved per source
	latest  *Result
}

func NewEngine(cfg config.Config, scanner *Scanner, sources []common.SnapshotSource, logger log.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		sources: sources,
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
		markets: map[string][]orderbook.Symbol{},
	}
}

// AddSink registers an output; sinks run in registration order.
func (e *Engine) AddSink(s Sink) { e.sinks = append(e.sinks, s) }

// WithHealth marks st after every successful scan.
func (e *Engine) WithHealth(st *health.State) { e.health = st }

// Latest returns the most recent scan, if any.
func (e *Engine) Latest() (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return Result{}, false
	}
	return *e.latest, true
}

// Run scans immediately and then every configured interval until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Int("sources", len(e.sources)).Dur("interval", e.cfg.Interval()).Msg("scan loop started")
	t := time.NewTicker(e.cfg.Interval())
	defer t.Stop()
	for {
		if _, err := e.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error().Err(err).Msg("scan failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// RunOnce collects one batch, scans it and hands the result to every sink.
func (e *Engine) RunOnce(ctx context.Context) (Result, error) {
	batch := e.collect(ctx)
	res, err := e.scanner.Scan(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	metrics.ScansTotal.Inc()
	metrics.ScanDurationMs.Observe(float64(res.Duration.Milliseconds()))

	e.mu.Lock()
	e.latest = &res
	e.mu.Unlock()

	for _, s := range e.sinks {
		if err := s.Publish(ctx, res); err != nil {
			metrics.PublishErrorsTotal.WithLabelValues(s.Name()).Inc()
			e.logger.Warn().Err(err).Str("sink", s.Name()).Str("scan_id", res.ScanID).Msg("publish failed")
		}
	}
	if e.health != nil {
		e.health.MarkScan(e.now())
	}
	e.logSummary(res, len(batch.Snapshots))
	return res, nil
}

// collect fetches snapshots from every source concurrently. A failing
// source or symbol becomes a Failure and never aborts the batch.
func (e *Engine) collect(ctx context.Context) Batch {
	var (
		mu    sync.Mutex
		batch Batch
	)
	add := func(snaps []orderbook.Snapshot, fails []Failure) {
		mu.Lock()
		batch.Snapshots = append(batch.Snapshots, snaps...)
		batch.Failures = append(batch.Failures, fails...)
		mu.Unlock()
	}

	var g errgroup.Group
	for _, src := range e.sources {
		g.Go(func() error {
			snaps, fails := e.fetchSource(ctx, src)
			add(snaps, fails)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batch.Snapshots, func(i, j int) bool { return batch.Snapshots[i].Key() < batch.Snapshots[j].Key() })
	e.observeStaleness(batch.Snapshots)
	return batch
}

func (e *Engine) fetchSource(ctx context.Context, src common.SnapshotSource) ([]orderbook.Snapshot, []Failure) {
	name := src.Name()
	syms, err := e.resolveMarkets(ctx, src)
	if err != nil {
		e.logger.Warn().Err(err).Str("exchange", name).Msg("market list unavailable")
		return nil, []Failure{{Stage: "fetch", Exchange: name, Subject: "markets", Reason: Reason(err), Err: err}}
	}

	snaps := make([]orderbook.Snapshot, len(syms))
	errs := make([]error, len(syms))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, sym := range syms {
		g.Go(func() error {
			snaps[i], errs[i] = src.GetSnapshot(ctx, sym, e.cfg.Scan.DepthLevels)
			return nil
		})
	}
	_ = g.Wait()

	var (
		out   []orderbook.Snapshot
		fails []Failure
	)
	for i, err := range errs {
		if err != nil {
			e.logger.Debug().Err(err).Str("exchange", name).Str("symbol", syms[i].String()).Msg("snapshot fetch failed")
			fails = append(fails, Failure{Stage: "fetch", Exchange: name, Subject: syms[i].String(), Reason: Reason(err), Err: err})
			continue
		}
		out = append(out, snaps[i])
	}
	return out, fails
}

// resolveMarkets picks the symbols to fetch from src: the configured list
// intersected with what the venue lists, or every listed market up to
// MaxMarkets. A non-empty resolution is cached.
func (e *Engine) resolveMarkets(ctx context.Context, src common.SnapshotSource) ([]orderbook.Symbol, error) {
	e.mu.RLock()
	cached, ok := e.markets[src.Name()]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var wanted []orderbook.Symbol
	for _, raw := range e.cfg.Scan.Symbols {
		sym, err := orderbook.ParseSymbol(raw)
		if err != nil {
			e.logger.Warn().Err(err).Msg("configured symbol ignored")
			continue
		}
		wanted = append(wanted, sym)
	}

	listed, err := src.ListSymbols(ctx)
	if err != nil {
		if len(wanted) == 0 {
			return nil, err
		}
		// configured symbols are still worth trying; do not cache
		e.logger.Warn().Err(err).Str("exchange", src.Name()).Msg("symbol listing failed, using configured symbols")
		return wanted, nil
	}
	syms := SelectMarkets(listed, wanted, e.scanner.origins, e.cfg.Scan.MaxMarkets)
	if len(syms) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	e.markets[src.Name()] = syms
	e.mu.Unlock()
	e.logger.Info().Str("exchange", src.Name()).Int("listed", len(listed)).Int("selected", len(syms)).Msg("markets resolved")
	return syms, nil
}

// SelectMarkets narrows listed to wanted when given, otherwise ranks markets
// quoted in an origin asset first, then alphabetically, and keeps maxMarkets.
func SelectMarkets(listed, wanted []orderbook.Symbol, origins []string, maxMarkets int) []orderbook.Symbol {
	var out []orderbook.Symbol
	if len(wanted) > 0 {
		have := make(map[orderbook.Symbol]struct{}, len(listed))
		for _, s := range listed {
			have[s] = struct{}{}
		}
		for _, s := range wanted {
			if _, ok := have[s]; ok {
				out = append(out, s)
			}
		}
	} else {
		out = append(out, listed...)
	}
	rank := func(s orderbook.Symbol) int {
		for i, o := range origins {
			if s.Quote == o {
				return i
			}
		}
		return len(origins)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].String() < out[j].String()
	})
	if maxMarkets > 0 && len(out) > maxMarkets {
		out = out[:maxMarkets]
	}
	return out
}

func (e *Engine) observeStaleness(snaps []orderbook.Snapshot) {
	oldest := map[string]time.Time{}
	for _, s := range snaps {
		if t, ok := oldest[s.Exchange]; !ok || s.Timestamp.Before(t) {
			oldest[s.Exchange] = s.Timestamp
		}
	}
	now := e.now()
	for ex, t := range oldest {
		metrics.BookStalenessMs.WithLabelValues(ex).Set(float64(now.Sub(t).Milliseconds()))
	}
}

func (e *Engine) logSummary(res Result, snapshots int) {
	e.logger.Info().
		Str("scan_id", res.ScanID).
		Int("snapshots", snapshots).
		Int("evaluated", res.Evaluated).
		Int("triangular", len(res.Triangular)).
		Int("cross", len(res.Cross)).
		Int("failures", len(res.Failures)).
		Dur("took", res.Duration).
		Msg("scan complete")
	logTop(e.logger, res.ScanID, res.Triangular, e.cfg.Scan.TopN)
	logTop(e.logger, res.ScanID, res.Cross, e.cfg.Scan.TopN)
}

func logTop(l log.Logger, scanID string, ranked []opportunity.Opportunity, n int) {
	for i, o := range opportunity.Top(ranked, n) {
		r := o.Record()
		l.Info().
			Str("scan_id", scanID).
			Int("rank", i+1).
			Str("kind", string(r.Kind)).
			Str("exchange", r.Exchange).
			Str("path", r.Path).
			Str("profit", r.Profit).
			Str("profit_pct", r.ProfitPct).
			Bool("fully_filled", r.FullyFilled).
			Msg("opportunity")
	}
}
