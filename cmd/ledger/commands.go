package main

import (
	"fmt"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func addCmd(a *app) *cobra.Command {
	var in validation.EntryInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append an income or expense entry",
		Example: `  ledger add --amount 12.50 --category Food --description lunch
  ledger add --type Income --amount 2000 --category Salary --date 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := validation.New().Entry(in)
			if err != nil {
				return err
			}
			l, err := a.svc.Append(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return cli.RenderEntryAdded(cmd.OutOrStdout(), entry, l.Revision())
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Date, "date", time.Now().Format(core.DateLayout), "entry date (YYYY-MM-DD)")
	f.StringVar(&in.Type, "type", string(core.Expense), "Income or Expense")
	f.StringVar(&in.Amount, "amount", "", "amount, at least 0.01")
	f.StringVar(&in.Category, "category", "", "category label")
	f.StringVar(&in.Description, "description", "", "optional description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func tableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Show the entry history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.RenderTable(cmd.OutOrStdout(), a.svc.Report(decimal.Zero))
		},
	}
}

func trendCmd(a *app) *cobra.Command {
	var daily bool
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show spending per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.RenderTrend(cmd.OutOrStdout(), a.svc.Report(decimal.Zero), daily)
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", false, "also show spending per day")
	return cmd
}

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.RenderCategories(cmd.OutOrStdout(), a.svc.Report(decimal.Zero))
		},
	}
}

func savingsCmd(a *app) *cobra.Command {
	var goal string
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Show savings and progress towards a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := core.ParseGoal(goal)
			if err != nil {
				return fmt.Errorf("--goal %q: %w", goal, err)
			}
			return cli.RenderSavings(cmd.OutOrStdout(), a.svc.Report(g))
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "0", "savings goal")
	return cmd
}
