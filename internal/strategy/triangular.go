package strategy

import (
	"fmt"

	"arbscreen/internal/opportunity"
	"arbscreen/internal/orderbook"
	"arbscreen/internal/slippage"

	"github.com/shopspring/decimal"
)

// Triangle carries start units of the cycle's origin asset through its three
// legs on one exchange. snaps[i] must be the book of leg i. Each leg walks the
// book with the holdings produced by the previous leg, net of the taker fee.
// A leg that runs out of depth does not abort the cycle: the amount actually
// filled is carried forward and the result is marked as not fully filled.
func (e Evaluator) Triangle(c Cycle, snaps [3]orderbook.Snapshot, start decimal.Decimal) (opportunity.Opportunity, error) {
	if start.Sign() <= 0 {
		return opportunity.Opportunity{}, fmt.Errorf("%w: %s", ErrNonPositiveNotional, start)
	}
	legs := c.Legs()
	exchange := snaps[0].Exchange
	for i, s := range snaps {
		if err := s.Validate(); err != nil {
			return opportunity.Opportunity{}, fmt.Errorf("leg %d: %w", i+1, err)
		}
		if s.Exchange != exchange {
			return opportunity.Opportunity{}, fmt.Errorf("%w: leg %d on %s, cycle on %s", ErrSnapshotMismatch, i+1, s.Exchange, exchange)
		}
		if s.Symbol != legs[i].Symbol {
			return opportunity.Opportunity{}, fmt.Errorf("%w: leg %d trades %s, snapshot is %s", ErrSnapshotMismatch, i+1, legs[i].Symbol, s.Symbol)
		}
	}

	holdings := start
	out := make([]opportunity.Leg, 0, 3)
	for i, l := range legs {
		fill := slippage.SimulateFill(snaps[i].Ladder(l.Side), l.Side, holdings, l.Side == orderbook.Buy, e.dust)
		fill = e.fees.ApplyFill(fill, exchange)
		out = append(out, opportunity.Leg{Exchange: exchange, Symbol: l.Symbol, Side: l.Side, Fill: fill})
		holdings = fill.Net
	}
	return opportunity.New(opportunity.Triangular, []string{exchange}, c.Path(), c.Origin(), start, holdings, out, e.now()), nil
}
