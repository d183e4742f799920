package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/config"
	"arbscreen/internal/opportunity"
	"arbscreen/internal/orderbook"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func book(t *testing.T, ex, sym string, bids, asks [][2]string, ts time.Time) orderbook.Snapshot {
	t.Helper()
	s, err := orderbook.ParseSymbol(sym)
	require.NoError(t, err)
	snap, err := orderbook.FromStrings(ex, s, bids, asks, 10, ts)
	require.NoError(t, err)
	return snap
}

// market: a 4% USDT->BTC->ETH->USDT cycle on binance and a 3% binance->kraken BTC spread
func market(t *testing.T) []orderbook.Snapshot {
	return []orderbook.Snapshot{
		book(t, "binance", "BTC/USDT", [][2]string{{"99", "10"}}, [][2]string{{"100", "10"}}, t0),
		book(t, "binance", "ETH/BTC", [][2]string{{"0.049", "1000"}}, [][2]string{{"0.05", "1000"}}, t0),
		book(t, "binance", "ETH/USDT", [][2]string{{"5.2", "1000"}}, [][2]string{{"5.3", "1000"}}, t0),
		book(t, "kraken", "BTC/USDT", [][2]string{{"103", "20"}}, [][2]string{{"104", "20"}}, t0),
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Fees.TakerBps = nil
	cfg.Fees.DefaultTakerBps = 0
	cfg.Scan.InvestmentAmount = 1000
	cfg.Scan.MinProfitPct = 0.25
	cfg.Scan.Workers = 4
	return cfg
}

func newScanner(t *testing.T, cfg config.Config) *Scanner {
	t.Helper()
	s, err := NewScanner(cfg, zerolog.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return t0 }
	return s
}

func TestScanRanksBothKinds(t *testing.T) {
	s := newScanner(t, testConfig())
	res, err := s.Scan(context.Background(), Batch{Snapshots: market(t)})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ScanID)
	assert.Equal(t, 4, res.Evaluated, "two cycle directions and two cross directions")
	assert.Empty(t, res.Failures)

	require.Len(t, res.Triangular, 1)
	tri := res.Triangular[0]
	assert.Equal(t, "USDT->BTC->ETH->USDT", tri.Path)
	assert.Equal(t, "1040", tri.EndNotional.String())
	assert.Equal(t, "4", tri.ProfitPct.String())
	assert.True(t, tri.FullyFilled)
	assert.NotEmpty(t, tri.ID)

	require.Len(t, res.Cross, 1)
	cr := res.Cross[0]
	assert.Equal(t, []string{"binance", "kraken"}, cr.Exchanges)
	assert.Equal(t, "30", cr.Profit.String())
	assert.Equal(t, opportunity.CrossExchange, cr.Kind)
}

func TestScanIsDeterministic(t *testing.T) {
	s := newScanner(t, testConfig())
	a, err := s.Scan(context.Background(), Batch{Snapshots: market(t)})
	require.NoError(t, err)
	snaps := market(t)
	snaps[0], snaps[3] = snaps[3], snaps[0]
	b, err := s.Scan(context.Background(), Batch{Snapshots: snaps})
	require.NoError(t, err)

	paths := func(r Result) []string {
		var out []string
		for _, o := range append(r.Triangular, r.Cross...) {
			out = append(out, o.Path+o.ProfitPct.String())
		}
		return out
	}
	assert.Equal(t, paths(a), paths(b))
	assert.NotEqual(t, a.ScanID, b.ScanID)
}

func TestScanRecordsFailures(t *testing.T) {
	snaps := market(t)
	snaps[3].Timestamp = t0.Add(-30 * time.Second) // kraken lags by 30s
	crossed := book(t, "bybit", "BTC/USDT", [][2]string{{"101", "1"}}, [][2]string{{"102", "1"}}, t0)
	crossed.Bids[0].Price = crossed.Asks[0].Price.Add(crossed.Asks[0].Price)
	snaps = append(snaps, crossed)
	fetch := Failure{Stage: "fetch", Exchange: "okx", Subject: "markets", Reason: "error"}

	res, err := newScanner(t, testConfig()).Scan(context.Background(), Batch{Snapshots: snaps, Failures: []Failure{fetch}})
	require.NoError(t, err)

	reasons := map[string]int{}
	for _, f := range res.Failures {
		reasons[f.Stage+"/"+f.Reason]++
	}
	assert.Equal(t, map[string]int{
		"fetch/error":               1,
		"snapshot/invalid_snapshot": 1,
		"cross_exchange/stale":      2,
	}, reasons)
	assert.Len(t, res.Triangular, 1, "triangles still evaluate")
	assert.Empty(t, res.Cross)
}

func TestScanUsesPinnedTriangles(t *testing.T) {
	cfg := testConfig()
	cfg.Scan.CrossExchange = false
	cfg.Scan.Triangles = []config.Triangle{{Origin: "USDT", AB: "BTC/USDT", BC: "ETH/BTC", CA: "ETH/USDT"}}

	res, err := newScanner(t, cfg).Scan(context.Background(), Batch{Snapshots: market(t)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	require.Len(t, res.Triangular, 1)
	assert.Empty(t, res.Cross)
}

func TestNewScannerRejectsBrokenTriangle(t *testing.T) {
	cfg := testConfig()
	cfg.Scan.Triangles = []config.Triangle{{Origin: "USDT", AB: "BTC/USDT", BC: "ETH/BTC", CA: "SOL/USDT"}}
	_, err := NewScanner(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestScanStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScanner(t, testConfig()).Scan(ctx, Batch{Snapshots: market(t)})
	assert.ErrorIs(t, err, context.Canceled)
}
