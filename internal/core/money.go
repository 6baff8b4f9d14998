// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents; conversions go through shopspring/decimal
// so rounding never depends on float64.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseMoney converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values are rejected; zero is accepted and left to Validate.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12,345") -> 1235 (rounds half up)
//	ParseMoney("12.344") -> 1234
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal { return decimal.New(m.Cents, -2) }

func (m Money) String() string { return m.Decimal().StringFixed(2) }

// Float64 is for display and ratios only.
func (m Money) Float64() float64 { return float64(m.Cents) / 100 }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Normalize converts the amount into the project currency: round_half_up(cents × rate).
func (m Money) Normalize(rate Rate) Money {
	r := rate.Decimal
	if r.IsZero() {
		r = decimal.NewFromInt(1)
	}
	return Money{Cents: decimal.NewFromInt(m.Cents).Mul(r).Round(0).IntPart()}
}

// Ratio returns part/whole, or 0 when whole is zero.
func Ratio(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return float64(part.Cents) / float64(whole.Cents)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	v, err := ParseMoney(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Rate is an exchange rate into the project currency.
type Rate struct {
	decimal.Decimal
}

// OneRate is the default rate for expenses in the project currency.
var OneRate = Rate{Decimal: decimal.NewFromInt(1)}

// ParseRate parses a strictly positive decimal rate.
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Rate{}, ErrInvalidRate
	}
	if !d.IsPositive() {
		return Rate{}, ErrInvalidRate
	}
	return Rate{Decimal: d}, nil
}

// MustRate is for literals in tests and defaults.
func MustRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(fmt.Sprintf("core: bad rate %q", s))
	}
	return r
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.Decimal.String()), nil
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	v, err := ParseRate(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
