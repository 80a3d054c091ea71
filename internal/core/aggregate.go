package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type (
	// MonthTotal is the expense total of one calendar month.
	MonthTotal struct {
		Month string // YYYY-MM
		Total decimal.Decimal
	}

	// DayTotal is the expense total of one calendar day.
	DayTotal struct {
		Date  Date
		Total decimal.Decimal
	}

	// CategoryTotal is the expense total of one category label.
	CategoryTotal struct {
		Category string
		Total    decimal.Decimal
	}

	// CategoryTotals is sorted by category label ascending.
	CategoryTotals []CategoryTotal
)

// MonthlySpending sums Expense amounts per calendar month, ordered by month
// ascending. Months without expenses are absent rather than zero.
func (l Ledger) MonthlySpending() []MonthTotal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range l.entries {
		if !e.IsExpense() {
			continue
		}
		k := e.Date.MonthKey()
		sums[k] = sums[k].Add(e.Amount)
	}
	out := make([]MonthTotal, 0, len(sums))
	for m, t := range sums {
		out = append(out, MonthTotal{Month: m, Total: t})
	}
	// YYYY-MM sorts lexically in chronological order.
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// DailySpending sums Expense amounts per calendar day, ordered by date
// ascending. Days without expenses are absent.
func (l Ledger) DailySpending() []DayTotal {
	sums := make(map[string]*DayTotal)
	for _, e := range l.entries {
		if !e.IsExpense() {
			continue
		}
		k := e.Date.String()
		if d, ok := sums[k]; ok {
			d.Total = d.Total.Add(e.Amount)
			continue
		}
		sums[k] = &DayTotal{Date: e.Date, Total: e.Amount}
	}
	out := make([]DayTotal, 0, len(sums))
	for _, d := range sums {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// CategorySpending sums Expense amounts per exact category label. Labels are
// compared as-is: no case folding and no trimming.
func (l Ledger) CategorySpending() CategoryTotals {
	sums := make(map[string]decimal.Decimal)
	for _, e := range l.entries {
		if !e.IsExpense() {
			continue
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make(CategoryTotals, 0, len(sums))
	for c, t := range sums {
		out = append(out, CategoryTotal{Category: c, Total: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Empty reports whether there is nothing to break down. Charts over an empty
// breakdown must be replaced by an informational placeholder.
func (c CategoryTotals) Empty() bool { return len(c) == 0 }

// Map returns the breakdown as a category to total mapping.
func (c CategoryTotals) Map() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(c))
	for _, ct := range c {
		m[ct.Category] = ct.Total
	}
	return m
}

// Sum returns the total across all categories.
func (c CategoryTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, ct := range c {
		sum = sum.Add(ct.Total)
	}
	return sum
}

// TotalIncome sums the amounts of all Income entries.
func (l Ledger) TotalIncome() decimal.Decimal {
	return l.total(Income)
}

// TotalExpenses sums the amounts of all Expense entries.
func (l Ledger) TotalExpenses() decimal.Decimal {
	return l.total(Expense)
}

func (l Ledger) total(k Kind) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.entries {
		if e.Kind == k {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// CurrentSavings is total income minus total expenses. It is not floored and
// is zero for an empty ledger.
func (l Ledger) CurrentSavings() decimal.Decimal {
	return l.TotalIncome().Sub(l.TotalExpenses())
}

// GoalProgress is the ledger's savings as a percentage of goal.
func (l Ledger) GoalProgress(goal decimal.Decimal) decimal.Decimal {
	return GoalProgress(l.CurrentSavings(), goal)
}

// GoalProgress returns savings as a percentage of goal. A goal of zero or
// less yields 0. The result is not clamped, so it may be above 100 or below 0.
func GoalProgress(savings, goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() {
		return decimal.Zero
	}
	return savings.Mul(hundred).Div(goal)
}
