package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Messages shown in place of a view that has nothing to display.
const (
	EmptyHistoryMessage   = "No entries added yet!"
	EmptyTrendMessage     = "Add some expenses to see visualizations!"
	EmptyBreakdownMessage = "No expenses to break down yet."
)

// Report bundles every derived view of one ledger snapshot for a given goal.
type Report struct {
	Revision   int
	Entries    []Entry
	Monthly    []MonthTotal
	Daily      []DayTotal
	Categories CategoryTotals
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Savings    decimal.Decimal
	Goal       decimal.Decimal
	Progress   decimal.Decimal
}

// Report computes all derived views from the ledger.
func (l Ledger) Report(goal decimal.Decimal) Report {
	income, expenses := l.TotalIncome(), l.TotalExpenses()
	savings := income.Sub(expenses)
	return Report{
		Revision:   l.Revision(),
		Entries:    l.Entries(),
		Monthly:    l.MonthlySpending(),
		Daily:      l.DailySpending(),
		Categories: l.CategorySpending(),
		Income:     income,
		Expenses:   expenses,
		Savings:    savings,
		Goal:       goal,
		Progress:   GoalProgress(savings, goal),
	}
}

// HasEntries is false when the history table should show its empty state.
func (r Report) HasEntries() bool { return len(r.Entries) > 0 }

// HasSpending is false when there are no Expense entries to plot.
func (r Report) HasSpending() bool { return len(r.Monthly) > 0 }

// HasCategoryBreakdown is false when the category chart must be replaced by
// a placeholder.
func (r Report) HasCategoryBreakdown() bool { return !r.Categories.Empty() }

// GoalReached reports whether progress has reached 100 percent of a positive goal.
func (r Report) GoalReached() bool {
	return r.Goal.IsPositive() && r.Progress.GreaterThanOrEqual(hundred)
}

// EntriesNewestFirst returns the entries ordered by date descending. Entries
// sharing a date are listed latest appended first.
func (r Report) EntriesNewestFirst() []Entry {
	out := slices.Clone(r.Entries)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}
