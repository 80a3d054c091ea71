package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// barWidth is the number of cells of a full-length bar.
const barWidth = 30

var hundred = decimal.NewFromInt(100)

// Messages that only the terminal views print.
const (
	GoalAchievedMessage = "Goal achieved!"
	OverspendingMessage = "You are spending more than you earn."
	NoGoalMessage       = "Set a savings goal with --goal to track your progress."
)

// RenderEntryAdded confirms a stored entry.
func RenderEntryAdded(w io.Writer, e core.Entry, revision int) error {
	_, err := fmt.Fprintf(w, "%s\n", FormatSuccess(fmt.Sprintf("Entry added! #%d %s %s %s %s",
		revision, e.Date, e.Kind, core.FormatAmount(e.Amount), e.Category)))
	return err
}

// RenderTable prints the entry history, newest date first.
func RenderTable(w io.Writer, rep core.Report) error {
	if err := title(w, "Expense History"); err != nil {
		return err
	}
	if !rep.HasEntries() {
		return info(w, core.EmptyHistoryMessage)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("Date"),
		HeaderStyle.Render("Type"),
		HeaderStyle.Render("Amount"),
		HeaderStyle.Render("Category"),
		HeaderStyle.Render("Description"))
	for _, e := range rep.EntriesNewestFirst() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Date, e.Kind, core.FormatAmount(e.Amount), e.Category, e.Description)
	}
	return tw.Flush()
}

// RenderTrend prints monthly spending, and the per-day trend when daily is set.
func RenderTrend(w io.Writer, rep core.Report, daily bool) error {
	if err := title(w, "Monthly Spending"); err != nil {
		return err
	}
	if !rep.HasSpending() {
		return info(w, core.EmptyTrendMessage)
	}

	months := make([]barLine, len(rep.Monthly))
	for i, m := range rep.Monthly {
		months[i] = barLine{label: m.Month, value: m.Total}
	}
	if err := bars(w, months, false); err != nil {
		return err
	}
	if !daily {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := title(w, "Expense Trend Over Time"); err != nil {
		return err
	}
	days := make([]barLine, len(rep.Daily))
	for i, d := range rep.Daily {
		days[i] = barLine{label: d.Date.String(), value: d.Total}
	}
	return bars(w, days, false)
}

// RenderCategories prints the expense breakdown with each category's share.
func RenderCategories(w io.Writer, rep core.Report) error {
	if err := title(w, "Spending by Category"); err != nil {
		return err
	}
	if !rep.HasCategoryBreakdown() {
		return info(w, core.EmptyBreakdownMessage)
	}

	total := rep.Categories.Sum()
	lines := make([]barLine, len(rep.Categories))
	for i, c := range rep.Categories {
		lines[i] = barLine{label: c.Category, value: c.Total, share: c.Total.Mul(hundred).Div(total)}
	}
	if err := bars(w, lines, true); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total spent: %s\n", core.FormatAmount(total))
	return err
}

// RenderSavings prints totals, savings and progress towards the goal.
func RenderSavings(w io.Writer, rep core.Report) error {
	if err := title(w, "Savings Goal"); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total income\t%s\n", core.FormatAmount(rep.Income))
	fmt.Fprintf(tw, "Total expenses\t%s\n", core.FormatAmount(rep.Expenses))
	fmt.Fprintf(tw, "Current savings\t%s\n", core.FormatAmount(rep.Savings))
	if err := tw.Flush(); err != nil {
		return err
	}

	if rep.Savings.IsNegative() {
		if _, err := fmt.Fprintln(w, FormatWarning(OverspendingMessage)); err != nil {
			return err
		}
	}
	if !rep.Goal.IsPositive() {
		return info(w, NoGoalMessage)
	}

	// The bar is clamped for drawing; the printed progress is not.
	filled := scaled(decimal.Min(rep.Progress, hundred), hundred)
	bar := ProgressStyle.Render(strings.Repeat("█", filled)) +
		TrackStyle.Render(strings.Repeat("░", barWidth-filled))
	if _, err := fmt.Fprintf(w, "Goal %s  %s %s%%\n",
		core.FormatAmount(rep.Goal), bar, rep.Progress.StringFixed(1)); err != nil {
		return err
	}
	if rep.GoalReached() {
		_, err := fmt.Fprintln(w, FormatSuccess(GoalAchievedMessage))
		return err
	}
	return nil
}

type barLine struct {
	label string
	value decimal.Decimal
	share decimal.Decimal
}

// bars prints one scaled bar per line, optionally followed by the line's
// percentage of the whole.
func bars(w io.Writer, lines []barLine, withShare bool) error {
	top := decimal.Zero
	for _, l := range lines {
		top = decimal.Max(top, l.value)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, l := range lines {
		amount := core.FormatAmount(l.value)
		if withShare {
			amount += " (" + l.share.StringFixed(1) + "%)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.label, amount, BarStyle.Render(strings.Repeat("█", scaled(l.value, top))))
	}
	return tw.Flush()
}

// scaled maps value onto [0, barWidth] relative to top. Positive values get
// at least one cell.
func scaled(value, top decimal.Decimal) int {
	if !value.IsPositive() || !top.IsPositive() {
		return 0
	}
	n := int(value.Mul(decimal.NewFromInt(barWidth)).Div(top).Round(0).IntPart())
	return min(max(n, 1), barWidth)
}

func title(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, TitleStyle.Render(s))
	return err
}

func info(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, FormatInfo(s))
	return err
}
