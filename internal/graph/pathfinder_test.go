package graph

import (
	"testing"

	"arbscreen/internal/orderbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(b, q string) orderbook.Symbol { return orderbook.Symbol{Base: b, Quote: q} }

func TestFindPathsTriangle(t *testing.T) {
	g := New("binance", []orderbook.Symbol{sym("BTC", "USDT"), sym("ETH", "USDT"), sym("ETH", "BTC"), sym("ETH", "BTC")})
	assert.Equal(t, []string{"BTC", "ETH", "USDT"}, g.Assets())

	paths := g.FindPaths(Node{"binance", "USDT"})
	require.Len(t, paths, 2)

	// USDT -> BTC (buy BTC/USDT) -> ETH (buy ETH/BTC) -> USDT (sell ETH/USDT)
	p := paths[0]
	assert.Equal(t, "BTC", p.Edges[0].To.Asset)
	assert.Equal(t, orderbook.Buy, p.Edges[0].Side)
	assert.Equal(t, orderbook.Buy, p.Edges[1].Side)
	assert.Equal(t, sym("ETH", "BTC"), p.Edges[1].Symbol)
	assert.Equal(t, orderbook.Sell, p.Edges[2].Side)
	assert.Equal(t, "USDT", p.Edges[2].To.Asset)

	// reverse direction
	assert.Equal(t, "ETH", paths[1].Edges[0].To.Asset)
}

func TestFindPathsNoCycle(t *testing.T) {
	g := New("kraken", []orderbook.Symbol{sym("BTC", "USD"), sym("ETH", "USD")})
	assert.Empty(t, g.FindPaths(Node{"kraken", "USD"}))
	assert.Empty(t, g.FindPaths(Node{"kraken", "DOGE"}))
}
