package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

var (
	mirrorYear  int
	mirrorLimit int
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Inspect and drive the spreadsheet mirror",
}

var mirrorSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror pending transactions once and exit",
	RunE:  runMirrorSync,
}

var mirrorRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "List mirrored rows for a year",
	RunE:  runMirrorRows,
}

func init() {
	mirrorSyncCmd.Flags().IntVar(&mirrorLimit, "limit", 100, "maximum transactions to sync")
	mirrorRowsCmd.Flags().IntVar(&mirrorYear, "year", 0, "year to list (default current year)")
	mirrorCmd.AddCommand(mirrorSyncCmd, mirrorRowsCmd)
	rootCmd.AddCommand(mirrorCmd)
}

func openMirror(cmd *cobra.Command) (*cli.App, *backend.MirrorResult, error) {
	ctx := cmd.Context()
	app, err := cli.Bootstrap(ctx, applog.ComponentSheets)
	if err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(app.Config)
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	res, err := backend.NewFactory(app.Logger.Logger).CreateMirror(ctx, bcfg)
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	return app, res, nil
}

func closeMirror(app *cli.App, res *backend.MirrorResult) {
	if res.Cleanup != nil {
		_ = res.Cleanup()
	}
	app.Close()
}

func runMirrorSync(cmd *cobra.Command, _ []string) error {
	app, res, err := openMirror(cmd)
	if err != nil {
		return err
	}
	defer closeMirror(app, res)

	w := worker.NewSyncWorker(app.Store, res.Mirror, app.Config.SyncBatchSize)
	sweep, err := w.ProcessPending(cmd.Context(), mirrorLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pending=%d synced=%d failed=%d\n", sweep.Total, sweep.Synced, sweep.Failed)
	if sweep.Failed > 0 {
		return fmt.Errorf("%d transactions failed to sync", sweep.Failed)
	}
	return nil
}

func runMirrorRows(cmd *cobra.Command, _ []string) error {
	app, res, err := openMirror(cmd)
	if err != nil {
		return err
	}
	defer closeMirror(app, res)

	year := mirrorYear
	if year == 0 {
		loc, err := app.Config.Location()
		if err != nil {
			return err
		}
		year = time.Now().In(loc).Year()
	}

	rows, err := res.Mirror.Rows(cmd.Context(), year)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tACCOUNT\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TransactionID, r.OccurredAt.Format("2006-01-02"), r.Account, r.Category, r.Amount, r.Description)
	}
	return tw.Flush()
}
