package orderbook

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FromStrings builds a snapshot from raw exchange rows of [price, qty].
// Rows with non-positive values are dropped, equal prices are merged, and
// each side is sorted best-first and trimmed to depth (depth <= 0 keeps all).
func FromStrings(exchange string, sym Symbol, bids, asks [][2]string, depth int, ts time.Time) (Snapshot, error) {
	b, err := parseRows(bids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s bids: %w", exchange, sym, err)
	}
	a, err := parseRows(asks)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s asks: %w", exchange, sym, err)
	}
	return Snapshot{
		Exchange:  exchange,
		Symbol:    sym,
		Bids:      Normalize(b, true, depth),
		Asks:      Normalize(a, false, depth),
		Timestamp: ts,
		Depth:     depth,
	}, nil
}

func parseRows(rows [][2]string) (Ladder, error) {
	out := make(Ladder, 0, len(rows))
	for _, r := range rows {
		p, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", r[0], err)
		}
		q, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, fmt.Errorf("qty %q: %w", r[1], err)
		}
		out = append(out, Level{Price: p, Qty: q})
	}
	return out, nil
}

// Normalize returns a new ladder sorted best-first with duplicates merged.
func Normalize(l Ladder, descending bool, depth int) Ladder {
	out := make(Ladder, 0, len(l))
	for _, lvl := range l {
		if lvl.Price.Sign() > 0 && lvl.Qty.Sign() > 0 {
			out = append(out, lvl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	merged := out[:0]
	for _, lvl := range out {
		if n := len(merged); n > 0 && merged[n-1].Price.Equal(lvl.Price) {
			merged[n-1].Qty = merged[n-1].Qty.Add(lvl.Qty)
			continue
		}
		merged = append(merged, lvl)
	}
	if depth > 0 && len(merged) > depth {
		merged = merged[:depth]
	}
	return merged
}
