// Package core holds the ledger domain: entries, the append-only ledger and
// every derived view computed from it.
//
// This file contains the parsing used where amounts are typed in by a user.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	// inputPlaces is the number of decimals kept for user input.
	inputPlaces = 2

	// maxNumberLen bounds typed numbers so a goal cannot expand into a
	// huge decimal when formatted.
	maxNumberLen = 24
)

// ErrInvalidGoal is returned for a savings goal that is not a plain number.
var ErrInvalidGoal = errors.New("savings goal must be a number")

// ParseAmount parses a user-typed amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimals. Signs, exponents, grouping characters and inputs
// longer than maxNumberLen are rejected, as is anything that rounds to zero
// or less.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("0.004")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, ok := parsePlain(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(inputPlaces)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseGoal parses a user-typed savings goal. Blank means zero, which reports
// no progress. Unlike amounts the goal may be zero or negative, and it is
// kept at the precision typed.
func ParseGoal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	neg := strings.HasPrefix(s, "-")
	d, ok := parsePlain(strings.TrimPrefix(s, "-"))
	if !ok {
		return decimal.Zero, ErrInvalidGoal
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// parsePlain accepts digits with at most one dot or comma separator. Signs,
// exponents and grouping characters are rejected.
func parsePlain(s string) (decimal.Decimal, bool) {
	if s == "" || len(s) > maxNumberLen {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || s == "." {
		return decimal.Zero, false
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(inputPlaces)
}
