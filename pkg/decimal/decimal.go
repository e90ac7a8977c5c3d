// Package decimal provides the fixed-precision decimal type used for
// every price and quantity field in the engine. Floating point is never
// used for these values: shopspring/decimal backs all arithmetic so that
// addition, subtraction, comparison, and min are exact.
package decimal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal and forbids negative values from ever
// entering the engine through its constructors.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// NewFromString parses a canonical decimal string such as "100.50".
// Returns an error if the string is malformed or negative.
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal: invalid value %q: %w", s, err)
	}
	if d.IsNegative() {
		return Decimal{}, fmt.Errorf("decimal: negative value %q not allowed", s)
	}
	return Decimal{d: d}, nil
}

// MustFromString is NewFromString that panics on error. Only for
// known-valid constants in tests and benchmarks.
func MustFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewFromInt builds a Decimal whose value is the integer n; no scale is
// applied (NewFromInt(150) is 150, not 1.50). Panics if n is negative; callers at system boundaries should validate
// first and use NewFromString for untrusted input instead.
func NewFromInt(n int64) Decimal {
	if n < 0 {
		panic("decimal: negative NewFromInt")
	}
	return Decimal{d: decimal.NewFromInt(n)}
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{d: d.d.Add(other.d)}
}

// Sub returns d - other. The result may be negative; callers that must
// not observe a negative remainder should check Cmp first.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{d: d.d.Sub(other.d)}
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{d: d.d.Mul(other.d)}
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.d.Cmp(other.d)
}

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.Cmp(other) < 0 }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.Cmp(other) > 0 }

// Equal reports whether d == other.
func (d Decimal) Equal(other Decimal) bool { return d.Cmp(other) == 0 }

// DivRound returns d / other rounded to precision decimal places. Spec.md
// §3 requires exactness only for Add, Sub, Cmp, and Min on price/quantity
// fields; division is explicitly not required there. This method exists
// solely to derive informational average-price fields on execution
// reports, which are never used in the core's quantity-conservation
// invariants.
func (d Decimal) DivRound(other Decimal, precision int32) Decimal {
	return Decimal{d: d.d.DivRound(other.d, precision)}
}

// Min returns the smaller of d and other.
func Min(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool { return d.d.IsZero() }

// IsPositive reports whether d is strictly greater than zero.
func (d Decimal) IsPositive() bool { return d.d.Sign() > 0 }

// IsNegative reports whether d is strictly less than zero.
func (d Decimal) IsNegative() bool { return d.d.Sign() < 0 }

// String returns the canonical decimal string representation.
func (d Decimal) String() string { return d.d.String() }

// MarshalJSON encodes d as a canonical decimal string, never a JSON number,
// per the wire-level note in spec.md §6.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number, per
// spec.md §6's wire-level note that numeric fields may arrive as either.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	var inner decimal.Decimal
	if err := inner.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	if inner.IsNegative() {
		return fmt.Errorf("decimal: negative value not allowed")
	}
	d.d = inner
	return nil
}
