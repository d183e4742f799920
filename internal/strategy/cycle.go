package strategy

import (
	"errors"
	"fmt"
	"strings"

	"arbscreen/internal/orderbook"
)

var (
	ErrCycleNotClosed = errors.New("triangular cycle does not close")
	ErrCycleLegs      = errors.New("triangular cycle needs exactly 3 legs")
)

// Leg is one trade of a cycle. A buy spends the quote asset for the base, a
// sell spends the base for the quote.
type Leg struct {
	Symbol orderbook.Symbol
	Side   orderbook.Side
}

func (l Leg) Input() string {
	if l.Side == orderbook.Buy {
		return l.Symbol.Quote
	}
	return l.Symbol.Base
}

func (l Leg) Output() string {
	if l.Side == orderbook.Buy {
		return l.Symbol.Base
	}
	return l.Symbol.Quote
}

func (l Leg) String() string { return string(l.Side) + " " + l.Symbol.String() }

// Cycle is a closed three-leg path; build it with NewCycle.
type Cycle struct{ legs [3]Leg }

// NewCycle checks that each leg's output feeds the next leg and that the last
// leg returns to the first leg's input.
func NewCycle(legs ...Leg) (Cycle, error) {
	if len(legs) != 3 {
		return Cycle{}, fmt.Errorf("%w: got %d", ErrCycleLegs, len(legs))
	}
	var c Cycle
	for i, l := range legs {
		if l.Side != orderbook.Buy && l.Side != orderbook.Sell {
			return Cycle{}, fmt.Errorf("leg %d: unknown side %q", i+1, l.Side)
		}
		if l.Symbol.Base == "" || l.Symbol.Quote == "" {
			return Cycle{}, fmt.Errorf("leg %d: empty symbol", i+1)
		}
		c.legs[i] = l
	}
	for i := range c.legs {
		next := c.legs[(i+1)%3]
		if c.legs[i].Output() != next.Input() {
			return Cycle{}, fmt.Errorf("%w: leg %d yields %s but leg %d spends %s",
				ErrCycleNotClosed, i+1, c.legs[i].Output(), (i+1)%3+1, next.Input())
		}
	}
	a, b, d := c.legs[0].Input(), c.legs[1].Input(), c.legs[2].Input()
	if a == b || b == d || a == d {
		return Cycle{}, fmt.Errorf("%w: assets %s, %s, %s are not distinct", ErrCycleNotClosed, a, b, d)
	}
	return c, nil
}

// CycleFromSymbols derives the sides of a cycle that starts holding origin and
// trades the three symbols in order.
func CycleFromSymbols(origin string, symbols ...orderbook.Symbol) (Cycle, error) {
	if len(symbols) != 3 {
		return Cycle{}, fmt.Errorf("%w: got %d", ErrCycleLegs, len(symbols))
	}
	legs := make([]Leg, 0, 3)
	holding := strings.ToUpper(origin)
	for i, s := range symbols {
		switch holding {
		case s.Quote:
			legs = append(legs, Leg{Symbol: s, Side: orderbook.Buy})
		case s.Base:
			legs = append(legs, Leg{Symbol: s, Side: orderbook.Sell})
		default:
			return Cycle{}, fmt.Errorf("%w: leg %d %s does not trade %s", ErrCycleNotClosed, i+1, s, holding)
		}
		holding = legs[i].Output()
	}
	return NewCycle(legs...)
}

func (c Cycle) Legs() [3]Leg { return c.legs }

// Origin is the asset the cycle starts and ends in.
func (c Cycle) Origin() string { return c.legs[0].Input() }

// Path renders the asset chain, e.g. USDT->BTC->ETH->USDT.
func (c Cycle) Path() string {
	return c.legs[0].Input() + "->" + c.legs[0].Output() + "->" + c.legs[1].Output() + "->" + c.legs[2].Output()
}

func (c Cycle) String() string {
	return c.legs[0].String() + ", " + c.legs[1].String() + ", " + c.legs[2].String()
}

// Rotate returns the same trades starting from leg k.
func (c Cycle) Rotate(k int) Cycle {
	var r Cycle
	for i := range r.legs {
		r.legs[i] = c.legs[(i+k)%3]
	}
	return r
}

// key is identical for all rotations of a cycle.
func (c Cycle) key() string {
	best := ""
	for k := 0; k < 3; k++ {
		s := c.Rotate(k).String()
		if best == "" || s < best {
			best = s
		}
	}
	return best
}
