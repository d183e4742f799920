package opportunity

import (
	"strings"
	"time"

	"arbscreen/internal/num"
	"arbscreen/internal/orderbook"
	"arbscreen/internal/slippage"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	Triangular    Kind = "triangular"
	CrossExchange Kind = "cross_exchange"
)

// Leg is one simulated trade kept for traceability.
type Leg struct {
	Exchange string
	Symbol   orderbook.Symbol
	Side     orderbook.Side
	Fill     slippage.FillResult
}

// Opportunity is the scored outcome of one cycle or one exchange pair.
// Unprofitable and partially filled outcomes are still opportunities; the
// ranker decides what surfaces.
type Opportunity struct {
	ID            string
	Kind          Kind
	Exchanges     []string // one for triangular, buy then sell for cross-exchange
	Path          string
	Asset         string // asset the notional is denominated in
	StartNotional decimal.Decimal
	EndNotional   decimal.Decimal
	Profit        decimal.Decimal
	ProfitPct     decimal.Decimal
	FullyFilled   bool
	Legs          []Leg
	EvaluatedAt   time.Time
}

// New scores a finished simulation.
func New(kind Kind, exchanges []string, path, asset string, start, end decimal.Decimal, legs []Leg, at time.Time) Opportunity {
	full := len(legs) > 0
	for _, l := range legs {
		full = full && l.Fill.FullyFilled
	}
	profit := num.Round(end.Sub(start))
	return Opportunity{
		Kind:          kind,
		Exchanges:     exchanges,
		Path:          path,
		Asset:         asset,
		StartNotional: start,
		EndNotional:   end,
		Profit:        profit,
		ProfitPct:     num.Pct(profit, start),
		FullyFilled:   full,
		Legs:          legs,
		EvaluatedAt:   at,
	}
}

// LiquidityConstrained reports that at least one leg ran out of depth.
func (o Opportunity) LiquidityConstrained() bool { return !o.FullyFilled }

// Record is the flat, export-friendly view of an Opportunity.
type Record struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	Exchange      string  `json:"exchange"`
	BuyExchange   string  `json:"buy_exchange,omitempty"`
	SellExchange  string  `json:"sell_exchange,omitempty"`
	Path          string  `json:"path"`
	Asset         string  `json:"asset"`
	StartNotional string  `json:"start_notional"`
	EndNotional   string  `json:"end_notional"`
	Profit        string  `json:"profit"`
	ProfitPct     string  `json:"profit_pct"`
	FullyFilled   bool    `json:"fully_filled"`
	SlippageBps   float64 `json:"max_slippage_bps"`
}

func (o Opportunity) Record() Record {
	r := Record{
		ID:            o.ID,
		Kind:          o.Kind,
		Exchange:      strings.Join(o.Exchanges, "->"),
		Path:          o.Path,
		Asset:         o.Asset,
		StartNotional: o.StartNotional.String(),
		EndNotional:   o.EndNotional.StringFixedBank(8),
		Profit:        o.Profit.StringFixedBank(8),
		ProfitPct:     o.ProfitPct.StringFixedBank(6),
		FullyFilled:   o.FullyFilled,
	}
	if o.Kind == CrossExchange && len(o.Exchanges) == 2 {
		r.BuyExchange, r.SellExchange = o.Exchanges[0], o.Exchanges[1]
	}
	var worst decimal.Decimal
	for _, l := range o.Legs {
		if l.Fill.SlippageBps.GreaterThan(worst) {
			worst = l.Fill.SlippageBps
		}
	}
	r.SlippageBps = worst.InexactFloat64()
	return r
}
