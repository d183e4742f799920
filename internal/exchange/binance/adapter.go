package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/infra/network"
	"arbscreen/internal/orderbook"
)

const name = "binance"

// depth limits accepted by /api/v3/depth
var limits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// Adapter reads public spot market data through the go-binance REST client.
type Adapter struct {
	client *gobinance.Client
	now    func() time.Time

	mu  sync.RWMutex
	ids map[orderbook.Symbol]string
}

func New(ex config.Exchange) *Adapter {
	c := gobinance.NewClient("", "")
	if ex.BaseURL != "" {
		c.BaseURL = ex.BaseURL
	}
	c.HTTPClient = network.NewHTTPClient(time.Duration(ex.TimeoutSecs) * time.Second)
	return &Adapter{client: c, now: func() time.Time { return time.Now().UTC() }, ids: map[orderbook.Symbol]string{}}
}

func (a *Adapter) Name() string { return name }

func (a *Adapter) ListSymbols(ctx context.Context) ([]orderbook.Symbol, error) {
	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchangeInfo: %w", err)
	}
	out := make([]orderbook.Symbol, 0, len(info.Symbols))
	ids := make(map[orderbook.Symbol]string, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || !s.IsSpotTradingAllowed {
			continue
		}
		sym, err := orderbook.ParseSymbol(s.BaseAsset + "/" + s.QuoteAsset)
		if err != nil {
			continue
		}
		ids[sym] = s.Symbol
		out = append(out, sym)
	}
	a.mu.Lock()
	a.ids = ids
	a.mu.Unlock()
	return out, nil
}

func (a *Adapter) GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error) {
	res, err := a.client.NewDepthService().Symbol(a.id(sym)).Limit(limitFor(depth)).Do(ctx)
	if err != nil {
		return orderbook.Snapshot{}, fmt.Errorf("binance depth %s: %w", sym, err)
	}
	ts := a.now()
	bids := make([][2]string, len(res.Bids))
	for i, b := range res.Bids {
		bids[i] = [2]string{b.Price, b.Quantity}
	}
	asks := make([][2]string, len(res.Asks))
	for i, x := range res.Asks {
		asks[i] = [2]string{x.Price, x.Quantity}
	}
	snap, err := orderbook.FromStrings(name, sym, bids, asks, depth, ts)
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return orderbook.Snapshot{}, fmt.Errorf("binance %s: %w", sym, common.ErrEmptyBook)
	}
	return snap, nil
}

// id maps BTC/USDT to BTCUSDT, preferring the listed id when known.
func (a *Adapter) id(sym orderbook.Symbol) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id, ok := a.ids[sym]; ok {
		return id
	}
	return strings.ToUpper(sym.Base + sym.Quote)
}

// limitFor rounds depth up to the nearest accepted limit.
func limitFor(depth int) int {
	for _, l := range limits {
		if depth <= l {
			return l
		}
	}
	return limits[len(limits)-1]
}
