package strategy

import (
	"fmt"
	"time"

	"arbscreen/internal/opportunity"
	"arbscreen/internal/orderbook"
	"arbscreen/internal/slippage"

	"github.com/shopspring/decimal"
)

// Cross buys start quote-notional of the symbol on buy's asks and sells the
// fee-adjusted base on sell's bids. Partial fills on either leg are scored and
// flagged, never dropped.
func (e Evaluator) Cross(buy, sell orderbook.Snapshot, start decimal.Decimal) (opportunity.Opportunity, error) {
	if start.Sign() <= 0 {
		return opportunity.Opportunity{}, fmt.Errorf("%w: %s", ErrNonPositiveNotional, start)
	}
	if err := buy.Validate(); err != nil {
		return opportunity.Opportunity{}, fmt.Errorf("buy side: %w", err)
	}
	if err := sell.Validate(); err != nil {
		return opportunity.Opportunity{}, fmt.Errorf("sell side: %w", err)
	}
	if buy.Symbol != sell.Symbol {
		return opportunity.Opportunity{}, fmt.Errorf("%w: %s vs %s", ErrSnapshotMismatch, buy.Symbol, sell.Symbol)
	}
	if buy.Exchange == sell.Exchange {
		return opportunity.Opportunity{}, fmt.Errorf("%w: both legs on %s", ErrSnapshotMismatch, buy.Exchange)
	}
	if gap := absDuration(buy.Timestamp.Sub(sell.Timestamp)); e.maxStaleness > 0 && gap > e.maxStaleness {
		return opportunity.Opportunity{}, fmt.Errorf("%w: %s %s and %s captured %s apart, tolerance %s",
			ErrStaleSnapshots, buy.Symbol, buy.Exchange, sell.Exchange, gap, e.maxStaleness)
	}

	bought := slippage.SimulateFill(buy.Asks, orderbook.Buy, start, true, e.dust)
	bought = e.fees.ApplyFill(bought, buy.Exchange)
	sold := slippage.SimulateFill(sell.Bids, orderbook.Sell, bought.Net, false, e.dust)
	sold = e.fees.ApplyFill(sold, sell.Exchange)

	legs := []opportunity.Leg{
		{Exchange: buy.Exchange, Symbol: buy.Symbol, Side: orderbook.Buy, Fill: bought},
		{Exchange: sell.Exchange, Symbol: sell.Symbol, Side: orderbook.Sell, Fill: sold},
	}
	return opportunity.New(opportunity.CrossExchange, []string{buy.Exchange, sell.Exchange},
		buy.Symbol.String(), buy.Symbol.Quote, start, sold.Net, legs, e.now()), nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
