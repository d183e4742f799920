package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
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
	name     = "kraken"
	maxCount = 500
)

// legacy asset codes used in Kraken pair names
var aliases = map[string]string{"XBT": "BTC", "XDG": "DOGE"}

// Adapter reads Kraken public REST endpoints.
type Adapter struct {
	baseURL string
	http    *http.Client
	now     func() time.Time

	mu    sync.RWMutex
	pairs map[orderbook.Symbol]string // symbol -> altname
}

func New(ex config.Exchange) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(ex.BaseURL, "/"),
		http:    network.NewHTTPClient(time.Duration(ex.TimeoutSecs) * time.Second),
		now:     func() time.Time { return time.Now().UTC() },
		pairs:   map[orderbook.Symbol]string{},
	}
}

func (a *Adapter) Name() string { return name }

type envelope[T any] struct {
	Error  []string `json:"error"`
	Result T        `json:"result"`
}

func (e envelope[T]) err(what string) error {
	if len(e.Error) > 0 {
		return fmt.Errorf("kraken %s: %s", what, strings.Join(e.Error, "; "))
	}
	return nil
}

type assetPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
	Status  string `json:"status"`
}

func normalizeAsset(a string) string {
	a = strings.ToUpper(a)
	if n, ok := aliases[a]; ok {
		return n
	}
	return a
}

func (a *Adapter) ListSymbols(ctx context.Context) ([]orderbook.Symbol, error) {
	var resp envelope[map[string]assetPair]
	if err := common.GetJSON(ctx, a.http, a.baseURL+"/0/public/AssetPairs", &resp); err != nil {
		return nil, err
	}
	if err := resp.err("AssetPairs"); err != nil {
		return nil, err
	}
	pairs := make(map[orderbook.Symbol]string, len(resp.Result))
	for _, p := range resp.Result {
		if p.Status != "" && p.Status != "online" {
			continue
		}
		base, quote, ok := strings.Cut(p.WSName, "/")
		if !ok {
			continue
		}
		sym, err := orderbook.ParseSymbol(normalizeAsset(base) + "/" + normalizeAsset(quote))
		if err != nil {
			continue
		}
		pairs[sym] = p.Altname
	}
	out := make([]orderbook.Symbol, 0, len(pairs))
	for s := range pairs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	a.mu.Lock()
	a.pairs = pairs
	a.mu.Unlock()
	return out, nil
}

func (a *Adapter) GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error) {
	count := depth
	if count < 1 || count > maxCount {
		count = maxCount
	}
	q := url.Values{"pair": {a.pair(sym)}, "count": {strconv.Itoa(count)}}
	var resp envelope[map[string]struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}]
	if err := common.GetJSON(ctx, a.http, a.baseURL+"/0/public/Depth?"+q.Encode(), &resp); err != nil {
		return orderbook.Snapshot{}, err
	}
	if err := resp.err("Depth " + sym.String()); err != nil {
		return orderbook.Snapshot{}, err
	}
	ts := a.now()
	for _, book := range resp.Result {
		bids, err := rows(book.Bids)
		if err != nil {
			return orderbook.Snapshot{}, fmt.Errorf("kraken %s bids: %w", sym, err)
		}
		asks, err := rows(book.Asks)
		if err != nil {
			return orderbook.Snapshot{}, fmt.Errorf("kraken %s asks: %w", sym, err)
		}
		snap, err := orderbook.FromStrings(name, sym, bids, asks, depth, ts)
		if err != nil {
			return orderbook.Snapshot{}, err
		}
		if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
			break
		}
		return snap, nil
	}
	return orderbook.Snapshot{}, fmt.Errorf("kraken %s: %w", sym, common.ErrEmptyBook)
}

// rows keeps [price, volume] of each [price, volume, timestamp] entry.
func rows(in [][]json.RawMessage) ([][2]string, error) {
	out := make([][2]string, 0, len(in))
	for _, r := range in {
		if len(r) < 2 {
			return nil, fmt.Errorf("short level %d fields", len(r))
		}
		var p, v string
		if err := json.Unmarshal(r[0], &p); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(r[1], &v); err != nil {
			return nil, err
		}
		out = append(out, [2]string{p, v})
	}
	return out, nil
}

// pair maps BTC/USDT to the listed altname, else builds XBTUSDT.
func (a *Adapter) pair(sym orderbook.Symbol) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if p, ok := a.pairs[sym]; ok {
		return p
	}
	code := func(s string) string {
		for k, v := range aliases {
			if v == s {
				return k
			}
		}
		return s
	}
	return code(sym.Base) + code(sym.Quote)
}
