package slippage

import (
	"arbscreen/internal/num"
	"arbscreen/internal/orderbook"

	"github.com/shopspring/decimal"
)

// FillResult describes what walking a ladder for a target actually achieved.
type FillResult struct {
	Side          orderbook.Side
	Target        decimal.Decimal // quote notional when TargetIsQuote, base quantity otherwise
	TargetIsQuote bool
	Filled        decimal.Decimal // base quantity consumed
	Notional      decimal.Decimal // quote spent on a buy, received on a sell
	AvgPrice      decimal.Decimal // volume-weighted
	SlippageBps   decimal.Decimal // AvgPrice versus the top level, always >= 0
	Levels        int
	Fee           decimal.Decimal
	Net           decimal.Decimal // Proceeds minus Fee
	FullyFilled   bool
}

// Proceeds is the asset received by the taker: base for a buy, quote for a sell.
func (f FillResult) Proceeds() decimal.Decimal {
	if f.Side == orderbook.Buy {
		return f.Filled
	}
	return f.Notional
}

// SimulateFill walks ladder best-first, consuming whole levels until target is
// met or the ladder runs out. With targetIsQuote the target is a quote
// notional and the last level is taken fractionally; otherwise the target is a
// base quantity. A remaining target below dust counts as met. The returned
// result carries no fee: Net equals Proceeds until a fee model is applied.
func SimulateFill(ladder orderbook.Ladder, side orderbook.Side, target decimal.Decimal, targetIsQuote bool, dust decimal.Decimal) FillResult {
	res := FillResult{Side: side, Target: target, TargetIsQuote: targetIsQuote}
	if target.Sign() <= 0 {
		return res
	}
	remaining := target
	var filled, notional decimal.Decimal
	for _, lvl := range ladder {
		if done(remaining, dust) {
			break
		}
		if lvl.Price.Sign() <= 0 || lvl.Qty.Sign() <= 0 {
			continue
		}
		take := lvl.Qty
		cost := num.Mul(lvl.Price, lvl.Qty)
		if targetIsQuote {
			if cost.GreaterThan(remaining) {
				take = num.Quo(remaining, lvl.Price)
				cost = remaining
			}
			remaining = remaining.Sub(cost)
		} else {
			if take.GreaterThan(remaining) {
				take = remaining
				cost = num.Mul(lvl.Price, take)
			}
			remaining = remaining.Sub(take)
		}
		filled = filled.Add(take)
		notional = notional.Add(cost)
		res.Levels++
	}
	if filled.Sign() <= 0 {
		return res
	}
	res.Filled = num.Round(filled)
	res.Notional = num.Round(notional)
	res.AvgPrice = num.Quo(res.Notional, res.Filled)
	res.SlippageBps = Bps(res.AvgPrice, ladder[0].Price, side)
	res.FullyFilled = done(remaining, dust)
	res.Net = res.Proceeds()
	return res
}

func done(remaining, dust decimal.Decimal) bool {
	return remaining.Sign() <= 0 || remaining.LessThan(dust)
}

// Bps is the adverse distance of avg from the top-of-book price in basis points.
func Bps(avg, top decimal.Decimal, side orderbook.Side) decimal.Decimal {
	if top.Sign() <= 0 || avg.Sign() <= 0 {
		return decimal.Zero
	}
	diff := avg.Sub(top)
	if side == orderbook.Sell {
		diff = top.Sub(avg)
	}
	if diff.Sign() < 0 {
		return decimal.Zero
	}
	return num.Bps(diff, top)
}
