package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

type stub struct {
	res arbitrage.Result
	ok  bool
}

func (s stub) Latest() (arbitrage.Result, bool) { return s.res, s.ok }

func sample() arbitrage.Result {
	mk := func(kind opportunity.Kind, ex []string, path string, end int64) opportunity.Opportunity {
		return opportunity.New(kind, ex, path, "USDT", decimal.NewFromInt(1000), decimal.NewFromInt(end), nil, time.Unix(0, 0))
	}
	return arbitrage.Result{
		ScanID: "scan-1",
		Triangular: []opportunity.Opportunity{
			mk(opportunity.Triangular, []string{"binance"}, "USDT->BTC->ETH->USDT", 1040),
			mk(opportunity.Triangular, []string{"binance"}, "USDT->ETH->BTC->USDT", 1010),
		},
		Cross:     []opportunity.Opportunity{mk(opportunity.CrossExchange, []string{"binance", "kraken"}, "BTC/USDT", 1030)},
		Failures:  []arbitrage.Failure{{Stage: "fetch", Exchange: "bybit", Reason: "error", Err: errors.New("boom")}},
		Evaluated: 4,
	}
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestNoScanYet(t *testing.T) {
	h := New(stub{}).Handler()
	for _, u := range []string{"/status", "/opportunities", "/failures"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(t, h, u).Code, u)
	}
}

func TestOpportunitiesFilters(t *testing.T) {
	h := New(stub{res: sample(), ok: true}).Handler()

	var body struct {
		ScanID  string               `json:"scan_id"`
		Records []opportunity.Record `json:"opportunities"`
	}
	rec := get(t, h, "/opportunities?kind=triangular&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "scan-1", body.ScanID)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "USDT->BTC->ETH->USDT", body.Records[0].Path)

	rec = get(t, h, "/opportunities")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Records, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/opportunities?kind=spot").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/opportunities?limit=-2").Code)
}

func TestStatusAndFailures(t *testing.T) {
	h := New(stub{res: sample(), ok: true}).Handler()

	var st statusBody
	require.NoError(t, json.Unmarshal(get(t, h, "/status").Body.Bytes(), &st))
	assert.Equal(t, 4, st.Evaluated)
	assert.Equal(t, 2, st.Triangular)
	assert.Equal(t, 1, st.Failures)

	var fails []failureBody
	require.NoError(t, json.Unmarshal(get(t, h, "/failures").Body.Bytes(), &fails))
	require.Len(t, fails, 1)
	assert.Equal(t, "boom", fails[0].Error)
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
		return rec.Code
	}())
}
