// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations. Cents are the
// only arithmetic unit; decimals are used at the edges.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid expense; negative values, exponents and garbage are rejected.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents (rounds up)
//	ParseMoney("0")      -> 0 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(maxSafeCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromDecimal rounds a decimal amount to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return ParseMoney(d.String())
}

const maxSafeCents = (1<<63 - 1) / 100

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Times multiplies a per-occurrence amount by an occurrence count. ok is
// false when the product does not fit in int64 cents.
func (m Money) Times(n int64) (product Money, ok bool) {
	if m.Cents == 0 || n == 0 {
		return Money{}, true
	}
	p := m.Cents * n
	if p/n != m.Cents || (n == -1 && m.Cents == math.MinInt64) {
		return Money{}, false
	}
	return Money{Cents: p}, true
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CheckedAdd is Add that reports int64 overflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (sum Money, ok bool) {
	s := m.Cents + o.Cents
	if (o.Cents > 0 && s < m.Cents) || (o.Cents < 0 && s > m.Cents) {
		return Money{}, false
	}
	return Money{Cents: s}, true
}

// Decimal returns the amount in currency units (two decimal places).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
