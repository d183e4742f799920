// Package fees applies per-exchange taker fees to simulated legs. Arbitrage
// legs are marketable, so every leg pays the taker rate.
package fees

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"arbscreen/internal/num"
	"arbscreen/internal/orderbook"
	"arbscreen/internal/slippage"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("taker fee rate must be in [0,1)")

var one = decimal.NewFromInt(1)

// Model is a taker-rate lookup keyed by lower-case exchange id.
type Model struct {
	taker    map[string]decimal.Decimal
	fallback decimal.Decimal
}

// New builds a model from fractional rates (0.001 = 10 bps). fallback is
// charged on exchanges missing from taker.
func New(taker map[string]decimal.Decimal, fallback decimal.Decimal) (Model, error) {
	if err := checkRate(fallback); err != nil {
		return Model{}, fmt.Errorf("default: %w", err)
	}
	m := Model{taker: make(map[string]decimal.Decimal, len(taker)), fallback: fallback}
	for ex, r := range taker {
		if err := checkRate(r); err != nil {
			return Model{}, fmt.Errorf("%s: %w", ex, err)
		}
		m.taker[strings.ToLower(ex)] = r
	}
	return m, nil
}

// FromBps converts a bps schedule, as configured, into a Model.
func FromBps(takerBps map[string]float64, fallbackBps float64) (Model, error) {
	rates := make(map[string]decimal.Decimal, len(takerBps))
	for ex, bps := range takerBps {
		rates[ex] = num.Quo(num.FromFloat(bps), num.TenThous)
	}
	return New(rates, num.Quo(num.FromFloat(fallbackBps), num.TenThous))
}

func checkRate(r decimal.Decimal) error {
	if r.Sign() < 0 || r.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: got %s", ErrInvalidRate, r)
	}
	return nil
}

// Rate returns the taker rate charged on exchange.
func (m Model) Rate(exchange string) decimal.Decimal {
	if r, ok := m.taker[strings.ToLower(exchange)]; ok {
		return r
	}
	return m.fallback
}

// Exchanges lists the exchanges with an explicit rate.
func (m Model) Exchanges() []string {
	out := make([]string, 0, len(m.taker))
	for ex := range m.taker {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

// Apply returns gross reduced by the taker fee. The fee is charged on the
// received asset, so the same reduction applies to either side.
func (m Model) Apply(gross decimal.Decimal, exchange string, _ orderbook.Side) decimal.Decimal {
	return num.Mul(gross, one.Sub(m.Rate(exchange)))
}

// ApplyFill charges the fee on a simulated leg's proceeds.
func (m Model) ApplyFill(f slippage.FillResult, exchange string) slippage.FillResult {
	gross := f.Proceeds()
	f.Net = m.Apply(gross, exchange, f.Side)
	f.Fee = gross.Sub(f.Net)
	return f
}
