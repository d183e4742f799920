// Package num holds the decimal policy shared by the simulator and evaluators:
// every rounded value keeps Scale fractional digits and ties round half-even.
package num

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits kept after each rounded operation.
const Scale int32 = 12

// extra digits carried through a division before the final half-even rounding
const guardDigits int32 = 6

var (
	Hundred  = decimal.NewFromInt(100)
	TenThous = decimal.NewFromInt(10000)
)

// Round rounds d half-even at Scale.
func Round(d decimal.Decimal) decimal.Decimal { return d.RoundBank(Scale) }

// Mul returns a*b rounded half-even.
func Mul(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b).RoundBank(Scale) }

// Quo returns a/b rounded half-even. A zero divisor yields zero.
func Quo(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, Scale+guardDigits).RoundBank(Scale)
}

// FromFloat converts a configuration float into a rounded decimal.
func FromFloat(f float64) decimal.Decimal { return decimal.NewFromFloat(f).RoundBank(Scale) }

// Pct returns part/whole*100.
func Pct(part, whole decimal.Decimal) decimal.Decimal { return Quo(part.Mul(Hundred), whole) }

// Bps returns part/whole*10000.
func Bps(part, whole decimal.Decimal) decimal.Decimal { return Quo(part.Mul(TenThous), whole) }
