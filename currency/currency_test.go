package currency_test

import (
	"testing"

	"github.com/warp/tenancy-billing/currency"
)

func TestAmount_RoundsEveryOperation(t *testing.T) {
	// GIVEN: Values whose exact results carry more than 2 decimal places
	// WHEN: Performing each arithmetic operation
	// THEN: The result is rounded half-up to 2 decimal places immediately

	cases := []struct {
		name string
		got  currency.Amount
		want string
	}{
		{"add", currency.FromFloat(0.105).Add(currency.Zero()), "0.11"},
		{"sub", currency.FromFloat(10).Sub(currency.FromFloat(3.333)), "6.67"},
		{"mul", currency.FromFloat(1.11).Mul(currency.FromFloat(1.11)), "1.23"},
		{"div", currency.FromFloat(100).Div(currency.FromInt(3)), "33.33"},
		{"div_int", currency.FromFloat(89).DivInt(3), "29.67"},
		{"mul_float", currency.FromFloat(120).MulFloat(0.4443), "53.32"},
	}

	for _, tc := range cases {
		if tc.got.String() != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, tc.got, tc.want)
		}
	}
}

func TestAmount_DivByZeroPanics(t *testing.T) {
	// Dividing by zero is a caller contract breach, not bad user data.
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	currency.FromFloat(10).Div(currency.Zero())
}

func TestAmount_DivIntByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero count")
		}
	}()
	currency.FromFloat(10).DivInt(0)
}

func TestAmount_WithinTolerance(t *testing.T) {
	a := currency.FromFloat(100.00)
	b := currency.FromFloat(100.02)

	if !a.WithinTolerance(b, currency.FromFloat(0.03)) {
		t.Error("0.02 drift should be within 0.03 tolerance")
	}
	if a.WithinTolerance(b, currency.FromFloat(0.01)) {
		t.Error("0.02 drift should exceed 0.01 tolerance")
	}
}

func TestSum_AccumulatesWithRounding(t *testing.T) {
	total := currency.Sum(
		currency.FromFloat(29.67),
		currency.FromFloat(29.67),
		currency.FromFloat(29.67),
	)
	if total.String() != "89.01" {
		t.Errorf("got %s, want 89.01", total)
	}
}

func TestFromString_MalformedReturnsZero(t *testing.T) {
	if !currency.FromString("not-a-number").IsZero() {
		t.Error("malformed input should parse to zero")
	}
	if currency.FromString("123.456").String() != "123.46" {
		t.Error("string input should round to 2 decimal places")
	}
}
