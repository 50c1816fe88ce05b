// Package core holds the value types and pure computations of the ledger:
// money handling, split calculation, balance derivation and settlement
// planning. Nothing in this package performs I/O.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in the currency's minor unit. All internal arithmetic
// is integer arithmetic on cents; floats never enter the ledger.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &InvalidAmountError{Field: "amount", Cents: m.Cents}
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// String renders the amount in major units with two decimals, e.g. "12.34".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// ParseDecimalToCents converts a decimal string in major units to cents.
// It is the inbound boundary for human-entered amounts: any transport or
// bot layer accepting "12.34"-style input converts here before anything
// else touches the value, so floats never enter the ledger.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The
// conversion goes through exact decimal arithmetic, never a binary float;
// a third decimal digit is rounded half-up. Negative and zero amounts are
// rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
