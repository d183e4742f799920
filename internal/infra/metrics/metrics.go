package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ScansTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "arbscreen_scans_total", Help: "Completed scan passes"})
	ScanDurationMs    = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "arbscreen_scan_duration_ms", Help: "Wall time of one scan pass", Buckets: prometheus.ExponentialBuckets(5, 2, 14)})
	SnapshotsFetched  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_snapshots_fetched_total", Help: "Order book snapshots fetched by exchange"}, []string{"exchange"})
	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_source_errors_total", Help: "Snapshot source errors by exchange and endpoint"}, []string{"exchange", "endpoint"})
	BookStalenessMs   = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "arbscreen_book_staleness_ms", Help: "Age of the oldest snapshot in the last batch by exchange"}, []string{"exchange"})

	TrianglesCheckedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "arbscreen_triangles_checked_total", Help: "Triangular cycles evaluated"})
	CrossPairsCheckedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "arbscreen_cross_pairs_checked_total", Help: "Cross-exchange pairs evaluated"})
	EvalFailuresTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_eval_failures_total", Help: "Skipped evaluations by kind and reason"}, []string{"kind", "reason"})
	OpportunitiesFound     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_opportunities_found_total", Help: "Ranked opportunities above threshold"}, []string{"kind"})
	PartialFillsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_partial_fills_total", Help: "Ranked opportunities whose legs were liquidity-constrained"}, []string{"kind"})
	BestProfitPct          = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "arbscreen_best_profit_pct", Help: "Best profit percentage of the last scan"}, []string{"kind"})
	LegSlippageBps         = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "arbscreen_leg_slippage_bps", Help: "Per-leg VWAP slippage against top of book", Buckets: prometheus.ExponentialBuckets(0.5, 2, 14)})

	PublishErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbscreen_publish_errors_total", Help: "Result sink failures by sink"}, []string{"sink"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		ScansTotal, ScanDurationMs, SnapshotsFetched, SourceErrorsTotal, BookStalenessMs,
		TrianglesCheckedTotal, CrossPairsCheckedTotal, EvalFailuresTotal,
		OpportunitiesFound, PartialFillsTotal, BestProfitPct, LegSlippageBps,
		PublishErrorsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
