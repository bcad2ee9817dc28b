/*
Package currency provides fixed-point monetary arithmetic for the billing engine.

PURPOSE:
  Every monetary value in the system flows through this package. Each operation
  rounds its result to 2 decimal places immediately, emulating fixed-point
  ringgit-and-sen arithmetic on top of decimal storage. This prevents the
  float drift that otherwise compounds across many small per-tenant divisions.

KEY CONCEPTS:
  - Amount: A monetary quantity backed by decimal.Decimal
  - Half-up rounding, applied at EVERY operation, not just at display time
  - Div by zero is a precondition violation and panics (caller must guard)

USAGE:
  share := currency.FromFloat(89).Div(currency.FromInt(3))  // 29.67
  total := share.Add(currency.FromFloat(11.93))

SEE ALSO:
  - tariff: builds itemized bills out of Amounts
  - allocation: distributes Amounts across tenants
*/
package currency

import (
	"github.com/shopspring/decimal"
)

// Places is the rounding precision applied after every operation.
const Places = 2

// Amount is a monetary value with sen (2 decimal place) precision.
type Amount struct {
	value decimal.Decimal
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Zero is the zero amount.
func Zero() Amount { return Amount{value: decimal.Zero} }

// FromFloat creates an Amount from a float, rounded to 2 decimal places.
func FromFloat(v float64) Amount {
	return Amount{value: decimal.NewFromFloat(v).Round(Places)}
}

// FromInt creates an Amount from a whole number of ringgit.
func FromInt(v int) Amount {
	return Amount{value: decimal.NewFromInt(int64(v))}
}

// FromDecimal creates an Amount from a decimal, rounded to 2 decimal places.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{value: d.Round(Places)}
}

// FromString parses an Amount from its string form (e.g., "123.45").
// Returns Zero on malformed input.
func FromString(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero()
	}
	return Amount{value: d.Round(Places)}
}

// =============================================================================
// ARITHMETIC - every result rounds to 2 decimal places before returning
// =============================================================================

func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value).Round(Places)} }
func (a Amount) Sub(b Amount) Amount { return Amount{value: a.value.Sub(b.value).Round(Places)} }
func (a Amount) Mul(b Amount) Amount { return Amount{value: a.value.Mul(b.value).Round(Places)} }
func (a Amount) Neg() Amount         { return Amount{value: a.value.Neg()} }

// Div divides a by b, rounding to 2 decimal places. Dividing by zero is a
// contract breach in the calling layer (e.g., splitting across zero active
// tenants without the empty-list short-circuit) and panics.
func (a Amount) Div(b Amount) Amount {
	if b.value.IsZero() {
		panic("currency: division by zero amount")
	}
	return Amount{value: a.value.DivRound(b.value, Places)}
}

// MulFloat scales an Amount by a raw factor (e.g., kWh by a tariff rate).
func (a Amount) MulFloat(f float64) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromFloat(f)).Round(Places)}
}

// DivInt splits an Amount across n parts. Panics when n is zero.
func (a Amount) DivInt(n int) Amount {
	if n == 0 {
		panic("currency: division by zero count")
	}
	return Amount{value: a.value.DivRound(decimal.NewFromInt(int64(n)), Places)}
}

// =============================================================================
// PREDICATES AND ACCESSORS
// =============================================================================

func (a Amount) IsZero() bool              { return a.value.IsZero() }
func (a Amount) IsNegative() bool          { return a.value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.value.Equal(b.value) }
func (a Amount) GreaterThan(b Amount) bool { return a.value.GreaterThan(b.value) }
func (a Amount) LessThan(b Amount) bool    { return a.value.LessThan(b.value) }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// Float64 returns the amount as a float for serialization boundaries.
func (a Amount) Float64() float64 {
	f, _ := a.value.Float64()
	return f
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string { return a.value.StringFixed(Places) }

// Abs returns the absolute value.
func (a Amount) Abs() Amount { return Amount{value: a.value.Abs()} }

// WithinTolerance reports whether a and b differ by at most tol.
// Used when reconciling an authoritative total against a per-tenant sum,
// where rounding across N tenants can introduce a few sen of drift.
func (a Amount) WithinTolerance(b, tol Amount) bool {
	return !a.Sub(b).Abs().GreaterThan(tol)
}

// Sum adds a series of amounts through the rounding discipline.
func Sum(amounts ...Amount) Amount {
	total := Zero()
	for _, v := range amounts {
		total = total.Add(v)
	}
	return total
}
