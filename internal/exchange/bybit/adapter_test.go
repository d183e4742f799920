package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/orderbook"
)

func serve(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(config.Exchange{BaseURL: ts.URL})
}

func TestListSymbolsFollowsCursor(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v5/market/instruments-info", r.URL.Path)
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"retCode":0,"result":{"list":[
				{"symbol":"BTCUSDT","baseCoin":"BTC","quoteCoin":"USDT","status":"Trading"},
				{"symbol":"OLDUSDT","baseCoin":"OLD","quoteCoin":"USDT","status":"Closed"}
			],"nextPageCursor":"p2"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"retCode":0,"result":{"list":[
			{"symbol":"ETHBTC","baseCoin":"ETH","quoteCoin":"BTC","status":"Trading"}
		],"nextPageCursor":""}}`))
	})
	syms, err := a.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []orderbook.Symbol{{Base: "BTC", Quote: "USDT"}, {Base: "ETH", Quote: "BTC"}}, syms)
}

func TestGetSnapshotUsesVenueTimestamp(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		assert.Equal(t, "ETHBTC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"retCode":0,"result":{"s":"ETHBTC",
			"b":[["0.0490","10"],["0.0489","5"]],
			"a":[["0.0500","1000"]],"ts":1700000000123}}`))
	})
	snap, err := a.GetSnapshot(context.Background(), orderbook.Symbol{Base: "ETH", Quote: "BTC"}, 3)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Equal(t, int64(1700000000123), snap.Timestamp.UnixMilli())
	assert.Equal(t, "0.049", snap.Bids[0].Price.String())
}

func TestGetSnapshotErrors(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "BADUSDT":
			_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"Not supported symbols"}`))
		case "EMPTYUSDT":
			_, _ = w.Write([]byte(`{"retCode":0,"result":{"b":[],"a":[["1","1"]],"ts":1}}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()
	_, err := a.GetSnapshot(ctx, orderbook.Symbol{Base: "BAD", Quote: "USDT"}, 5)
	assert.ErrorContains(t, err, "retCode 10001")
	_, err = a.GetSnapshot(ctx, orderbook.Symbol{Base: "EMPTY", Quote: "USDT"}, 5)
	assert.ErrorIs(t, err, common.ErrEmptyBook)
	_, err = a.GetSnapshot(ctx, orderbook.Symbol{Base: "BTC", Quote: "USDT"}, 5)
	assert.ErrorContains(t, err, "status 502")
}
