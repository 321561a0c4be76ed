package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"12,344", "12.34", true},
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
		if !errors.Is(err, ErrInvalidAmount) || !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":         "0.00",
		"5":         "5.00",
		"999.9":     "999.90",
		"1000":      "1,000.00",
		"1234567.5": "1,234,567.50",
		"-1234.567": "-1,234.57",
		"100000":    "100,000.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}
