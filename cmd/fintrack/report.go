package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

var (
	reportAccount string
	reportUser    string
	reportAt      string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print analytics reports as JSON",
}

var reportQuarterlyCmd = &cobra.Command{
	Use:   "quarterly",
	Short: "Income, outcome and balance for the last three months",
	RunE:  runReport,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Current month summary with budgets and daily series",
	RunE:  runReport,
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportAccount, "account", "", "account id (default DEFAULT_ACCOUNT_ID)")
	reportCmd.PersistentFlags().StringVar(&reportUser, "user", "", "only report when the account belongs to this user")
	reportCmd.PersistentFlags().StringVar(&reportAt, "at", "", "reference date YYYY-MM-DD (default today)")
	reportCmd.AddCommand(reportQuarterlyCmd, reportSummaryCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := cli.Bootstrap(ctx, applog.ComponentAnalytics)
	if err != nil {
		return err
	}
	defer app.Close()

	agg, err := newAggregator(app)
	if err != nil {
		return err
	}
	now, err := referenceTime(reportAt, agg.Location())
	if err != nil {
		return err
	}

	accountID := reportAccount
	if accountID == "" {
		accountID = app.Config.DefaultAccountID
	}
	if err := checkOwner(ctx, app, accountID, reportUser); err != nil {
		return err
	}

	var report any
	switch cmd.Name() {
	case "quarterly":
		report, err = agg.Quarterly(ctx, accountID, now)
	default:
		report, err = agg.Summary(ctx, accountID, now)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func checkOwner(ctx context.Context, app *cli.App, accountID, userID string) error {
	if userID == "" {
		return nil
	}
	acc, err := app.Store.FindAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.UserID != userID {
		return fmt.Errorf("account %s: %w", accountID, core.ErrAccountNotFound)
	}
	return nil
}

func referenceTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", s, err)
	}
	return t, nil
}
