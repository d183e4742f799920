package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/orderbook"
)

const pairsDoc = `{"error":[],"result":{
	"XXBTZUSD":{"altname":"XBTUSD","wsname":"XBT/USD","status":"online"},
	"XDGUSDT":{"altname":"XDGUSDT","wsname":"XDG/USDT","status":"online"},
	"ETHUSDT":{"altname":"ETHUSDT","wsname":"ETH/USDT","status":"cancel_only"}
}}`

func serve(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	a := New(config.Exchange{BaseURL: ts.URL})
	a.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return a
}

func TestListSymbolsMapsLegacyCodes(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pairsDoc))
	})
	syms, err := a.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []orderbook.Symbol{{Base: "BTC", Quote: "USD"}, {Base: "DOGE", Quote: "USDT"}}, syms)
	assert.Equal(t, "XBTUSD", a.pair(orderbook.Symbol{Base: "BTC", Quote: "USD"}))
}

func TestGetSnapshotParsesMixedRows(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/public/Depth", r.URL.Path)
		assert.Equal(t, "XBTUSDT", r.URL.Query().Get("pair"))
		_, _ = w.Write([]byte(`{"error":[],"result":{"XBTUSDT":{
			"bids":[["103.0","5.0",1700000000],["102.5","1.0",1700000000]],
			"asks":[["104.0","2.0",1700000000]]}}}`))
	})
	snap, err := a.GetSnapshot(context.Background(), orderbook.Symbol{Base: "BTC", Quote: "USDT"}, 10)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Equal(t, "kraken", snap.Exchange)
	assert.Len(t, snap.Bids, 2)
	assert.Equal(t, "104", snap.Asks[0].Price.String())
}

func TestGetSnapshotSurfacesVenueErrors(t *testing.T) {
	a := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pair") == "FOOUSD" {
			_, _ = w.Write([]byte(`{"error":["EQuery:Unknown asset pair"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":[],"result":{"XBTUSD":{"bids":[],"asks":[]}}}`))
	})
	_, err := a.GetSnapshot(context.Background(), orderbook.Symbol{Base: "FOO", Quote: "USD"}, 5)
	assert.ErrorContains(t, err, "Unknown asset pair")
	_, err = a.GetSnapshot(context.Background(), orderbook.Symbol{Base: "BTC", Quote: "USD"}, 5)
	assert.ErrorIs(t, err, common.ErrEmptyBook)
}
