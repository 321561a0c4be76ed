package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string to an amount rounded
// half-up to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, zero
// and anything that is not a plain decimal number are rejected.
//
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0.004")  -> error (rounds to zero)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
		}
	}
	if s == "." {
		return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, invalid(0, "amount", ErrInvalidAmount)
	}
	return d, nil
}

// FormatAmount renders d with two decimals and comma thousands separators,
// e.g. 1234567.5 -> "1,234,567.50".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
