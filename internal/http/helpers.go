package http

import (
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// formatMoney renders an amount with two decimals and a leading minus for
// negative values.
func formatMoney(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

// formatPercent renders a percentage with one decimal ("62.5%").
func formatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// barWidth scales value against max to a CSS width percentage. Positive
// values never drop below 2 so that tiny amounts stay visible.
func barWidth(value, max decimal.Decimal) int {
	if !max.IsPositive() || !value.IsPositive() {
		return 0
	}
	w := int(value.Mul(hundred).Div(max).Round(0).IntPart())
	switch {
	case w < 2:
		return 2
	case w > 100:
		return 100
	}
	return w
}

// share returns value as a percentage of total, or zero when total is not
// positive.
func share(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Mul(hundred).Div(total)
}

// sanitizeInput folds line breaks to LF, removes the other control
// characters except tab, and trims whitespace.
func sanitizeInput(s string) string {
	s = core.NormalizeNewlines(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 {
			return -1
		}
		return r
	}, s)
}
