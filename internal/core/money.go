// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts as they are shown
// by external portals and converting them to fixed-point decimals.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseCurrency converts a displayed currency string to a decimal.
//
// It strips currency symbols, thousands separators and surrounding
// whitespace. A leading minus or accounting parentheses mark a negative
// amount. The result is rounded to two decimal places.
//
// Examples:
//
//	ParseCurrency("$1,234.56")  -> 1234.56, nil
//	ParseCurrency("NZ$ 80")     -> 80.00, nil
//	ParseCurrency("($12.50)")   -> -12.50, nil
//	ParseCurrency("")           -> 0, ErrInvalidAmount
func ParseCurrency(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.':
			b.WriteRune(r)
		case r == '-':
			negative = !negative
		case r == ',', unicode.IsSpace(r), unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
			// separators and currency markers
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}

// FormatAmount renders d with exactly two decimals, the form stored for
// overdue invoice amounts.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
