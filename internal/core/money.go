// Package core provides the payment domain model.
//
// This file contains functions for parsing monetary amounts from ledger
// cells and formatting them for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a loosely formatted amount cell to a decimal.
//
// It strips currency symbols, spaces and thousands separators. Both dot
// (1,234.50) and comma (1.234,50) decimal conventions are recognised: when
// both separators appear the rightmost one is the decimal mark, and a lone
// comma followed by exactly one or two digits is a decimal comma.
// Negative amounts and empty input are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1000")       -> 1000
//	ParseAmount("$1,234.50")  -> 1234.50
//	ParseAmount("1.234,50 €") -> 1234.50
//	ParseAmount("12,5")       -> 12.5
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(s))
	if cleaned == "" || strings.Trim(cleaned, ".,-") == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(cleaned, "-") {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		frac := len(cleaned) - lastComma - 1
		if strings.Count(cleaned, ",") == 1 && frac > 0 && frac <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals, e.g. "1234.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
