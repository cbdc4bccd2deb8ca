package core

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12,345", 1235, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(decimal.RequireFromString("19.999"))
	if err != nil || m.Cents != 2000 {
		t.Fatalf("expected 2000 cents, got %d (err=%v)", m.Cents, err)
	}
	if _, err := MoneyFromDecimal(decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1230:   "12.30",
		123456: "1234.56",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: 250}
	if got, ok := m.Times(4); !ok || got.Cents != 1000 {
		t.Errorf("Times(4) = %d, %v, want 1000", got.Cents, ok)
	}
	if got, ok := m.Times(0); !ok || got.Cents != 0 {
		t.Errorf("Times(0) = %d, %v, want 0", got.Cents, ok)
	}
	if got := m.Add(Money{Cents: 1}); got.Cents != 251 {
		t.Errorf("Add = %d, want 251", got.Cents)
	}
	if got, ok := m.CheckedAdd(Money{Cents: 1}); !ok || got.Cents != 251 {
		t.Errorf("CheckedAdd = %d, %v, want 251", got.Cents, ok)
	}
}

func TestMoneyOverflow(t *testing.T) {
	big, err := ParseMoney("900000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := big.Times(366); ok {
		t.Errorf("Times(366) on %s should overflow", big)
	}
	if got, ok := big.Times(1); !ok || got != big {
		t.Errorf("Times(1) = %v, %v", got, ok)
	}
	if _, ok := (Money{Cents: math.MinInt64}).Times(-1); ok {
		t.Error("MinInt64 * -1 should overflow")
	}
	if _, ok := (Money{Cents: math.MaxInt64}).CheckedAdd(Money{Cents: 1}); ok {
		t.Error("MaxInt64 + 1 should overflow")
	}
	if _, ok := (Money{Cents: math.MinInt64}).CheckedAdd(Money{Cents: -1}); ok {
		t.Error("MinInt64 - 1 should overflow")
	}
}
