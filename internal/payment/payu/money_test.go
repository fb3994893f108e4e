package payu

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuantize(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"10", "PLN", 1000},
		{"10.50", "EUR", 1050},
		{"0.01", "USD", 1},
		{"1.005", "GBP", 101},
		{"1.004", "CZK", 100},
		{"0", "PLN", 0},
	}
	for _, c := range cases {
		amount, err := decimal.NewFromString(c.amount)
		if err != nil {
			t.Fatalf("bad test amount %s: %v", c.amount, err)
		}
		got, err := Quantize(amount, c.currency)
		if err != nil {
			t.Fatalf("Quantize(%s %s) error: %v", c.amount, c.currency, err)
		}
		if got != c.want {
			t.Fatalf("Quantize(%s %s) = %d, want %d", c.amount, c.currency, got, c.want)
		}
	}
}

func TestQuantizeUnsupportedCurrency(t *testing.T) {
	_, err := Quantize(decimal.NewFromInt(10), "JPY")
	if !errors.Is(err, ErrCurrencyUnsupported) {
		t.Fatalf("expected ErrCurrencyUnsupported, got: %v", err)
	}
}

func TestDequantize(t *testing.T) {
	amount, err := Dequantize(1050, "PLN")
	if err != nil {
		t.Fatalf("Dequantize error: %v", err)
	}
	if amount.String() != "10.5" {
		t.Fatalf("unexpected amount: %s", amount.String())
	}
	if _, err := Dequantize(100, "JPY"); !errors.Is(err, ErrCurrencyUnsupported) {
		t.Fatalf("expected ErrCurrencyUnsupported, got: %v", err)
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.01", "1.99", "123.45", "10"} {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			t.Fatalf("bad test amount %s: %v", raw, err)
		}
		minor, err := Quantize(amount, "PLN")
		if err != nil {
			t.Fatalf("Quantize error: %v", err)
		}
		back, err := Dequantize(minor, "PLN")
		if err != nil {
			t.Fatalf("Dequantize error: %v", err)
		}
		if !back.Equal(amount) {
			t.Fatalf("round trip mismatch: %s -> %d -> %s", raw, minor, back.String())
		}
	}
}
