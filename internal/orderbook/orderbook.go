package orderbook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSnapshot marks a book that must not reach the simulator.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Symbol is an ordered (base, quote) pair, written BASE/QUOTE.
type Symbol struct {
	Base  string
	Quote string
}

// ParseSymbol accepts BASE/QUOTE or BASE-QUOTE.
func ParseSymbol(s string) (Symbol, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "/-")
	if sep <= 0 || sep == len(s)-1 {
		return Symbol{}, fmt.Errorf("symbol %q: expected BASE/QUOTE", s)
	}
	sym := Symbol{Base: strings.ToUpper(s[:sep]), Quote: strings.ToUpper(s[sep+1:])}
	if sym.Base == sym.Quote {
		return Symbol{}, fmt.Errorf("symbol %q: base equals quote", s)
	}
	return sym, nil
}

func (s Symbol) String() string { return s.Base + "/" + s.Quote }

type Level struct{ Price, Qty decimal.Decimal }

// Ladder is one side of a book, best price first.
type Ladder []Level

// Total returns the summed base quantity and quote notional of the ladder.
func (l Ladder) Total() (qty, notional decimal.Decimal) {
	for _, lvl := range l {
		qty = qty.Add(lvl.Qty)
		notional = notional.Add(lvl.Price.Mul(lvl.Qty))
	}
	return qty, notional
}

// Snapshot is an immutable capture of one symbol's book on one exchange.
type Snapshot struct {
	Exchange  string
	Symbol    Symbol
	Bids      Ladder // sorted desc by price
	Asks      Ladder // sorted asc by price
	Timestamp time.Time
	Depth     int // levels requested from the exchange
}

// Key identifies the snapshot inside a scan batch.
func (s Snapshot) Key() string { return s.Exchange + "|" + s.Symbol.String() }

// Ladder returns the side a taker consumes: asks for a buy, bids for a sell.
func (s Snapshot) Ladder(side Side) Ladder {
	if side == Buy {
		return s.Asks
	}
	return s.Bids
}

func (s Snapshot) BestBid() (Level, bool) {
	if len(s.Bids) == 0 {
		return Level{}, false
	}
	return s.Bids[0], true
}

func (s Snapshot) BestAsk() (Level, bool) {
	if len(s.Asks) == 0 {
		return Level{}, false
	}
	return s.Asks[0], true
}

// Validate enforces the ordering and positivity invariants of a book.
func (s Snapshot) Validate() error {
	if s.Exchange == "" {
		return fmt.Errorf("%w: missing exchange", ErrInvalidSnapshot)
	}
	if s.Symbol.Base == "" || s.Symbol.Quote == "" {
		return fmt.Errorf("%w: %s: missing symbol", ErrInvalidSnapshot, s.Exchange)
	}
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return fmt.Errorf("%w: %s: empty ladder", ErrInvalidSnapshot, s.Key())
	}
	if err := checkLadder(s.Bids, true); err != nil {
		return fmt.Errorf("%w: %s: bids %v", ErrInvalidSnapshot, s.Key(), err)
	}
	if err := checkLadder(s.Asks, false); err != nil {
		return fmt.Errorf("%w: %s: asks %v", ErrInvalidSnapshot, s.Key(), err)
	}
	if s.Bids[0].Price.GreaterThanOrEqual(s.Asks[0].Price) {
		return fmt.Errorf("%w: %s: crossed book bid %s >= ask %s", ErrInvalidSnapshot, s.Key(), s.Bids[0].Price, s.Asks[0].Price)
	}
	return nil
}

func checkLadder(l Ladder, descending bool) error {
	for i, lvl := range l {
		if lvl.Price.Sign() <= 0 || lvl.Qty.Sign() <= 0 {
			return fmt.Errorf("level %d: non-positive price or quantity", i)
		}
		if i == 0 {
			continue
		}
		prev := l[i-1].Price
		if descending && !lvl.Price.LessThan(prev) || !descending && !lvl.Price.GreaterThan(prev) {
			return fmt.Errorf("level %d: non-monotonic price %s after %s", i, lvl.Price, prev)
		}
	}
	return nil
}
