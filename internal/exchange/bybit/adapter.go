package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/infra/network"
	"arbscreen/internal/orderbook"
)

const (
	name     = "bybit"
	maxLimit = 200 // spot orderbook limit
)

// Adapter reads Bybit v5 public spot endpoints.
type Adapter struct {
	baseURL string
	http    *http.Client

	mu  sync.RWMutex
	ids map[orderbook.Symbol]string
}

func New(ex config.Exchange) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(ex.BaseURL, "/"),
		http:    network.NewHTTPClient(time.Duration(ex.TimeoutSecs) * time.Second),
		ids:     map[orderbook.Symbol]string{},
	}
}

func (a *Adapter) Name() string { return name }

type envelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

func (e envelope[T]) err(what string) error {
	if e.RetCode != 0 {
		return fmt.Errorf("bybit %s: retCode %d: %s", what, e.RetCode, e.RetMsg)
	}
	return nil
}

type instrument struct {
	Symbol    string `json:"symbol"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
	Status    string `json:"status"`
}

func (a *Adapter) ListSymbols(ctx context.Context) ([]orderbook.Symbol, error) {
	var (
		out    []orderbook.Symbol
		ids    = map[orderbook.Symbol]string{}
		cursor string
	)
	for {
		q := url.Values{"category": {"spot"}, "limit": {"1000"}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var resp envelope[struct {
			List           []instrument `json:"list"`
			NextPageCursor string       `json:"nextPageCursor"`
		}]
		if err := common.GetJSON(ctx, a.http, a.baseURL+"/v5/market/instruments-info?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		if err := resp.err("instruments-info"); err != nil {
			return nil, err
		}
		for _, in := range resp.Result.List {
			if in.Status != "Trading" {
				continue
			}
			sym, err := orderbook.ParseSymbol(in.BaseCoin + "/" + in.QuoteCoin)
			if err != nil {
				continue
			}
			if _, dup := ids[sym]; !dup {
				out = append(out, sym)
			}
			ids[sym] = in.Symbol
		}
		cursor = resp.Result.NextPageCursor
		if cursor == "" {
			break
		}
	}
	a.mu.Lock()
	a.ids = ids
	a.mu.Unlock()
	return out, nil
}

func (a *Adapter) GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error) {
	limit := depth
	if limit < 1 || limit > maxLimit {
		limit = maxLimit
	}
	q := url.Values{"category": {"spot"}, "symbol": {a.id(sym)}, "limit": {strconv.Itoa(limit)}}
	var resp envelope[struct {
		Bids [][2]string `json:"b"`
		Asks [][2]string `json:"a"`
		TS   int64       `json:"ts"` // ms
	}]
	if err := common.GetJSON(ctx, a.http, a.baseURL+"/v5/market/orderbook?"+q.Encode(), &resp); err != nil {
		return orderbook.Snapshot{}, err
	}
	if err := resp.err("orderbook " + sym.String()); err != nil {
		return orderbook.Snapshot{}, err
	}
	ts := time.UnixMilli(resp.Result.TS).UTC()
	if resp.Result.TS == 0 {
		ts = time.Now().UTC()
	}
	snap, err := orderbook.FromStrings(name, sym, resp.Result.Bids, resp.Result.Asks, depth, ts)
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return orderbook.Snapshot{}, fmt.Errorf("bybit %s: %w", sym, common.ErrEmptyBook)
	}
	return snap, nil
}

func (a *Adapter) id(sym orderbook.Symbol) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id, ok := a.ids[sym]; ok {
		return id
	}
	return sym.Base + sym.Quote
}
