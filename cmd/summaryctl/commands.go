package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dan9191/allowance-service/internal/app"
	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/models"
	"github.com/Dan9191/allowance-service/internal/repository"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "summaryctl",
		Short:         "Operate the weekly allowance summary job",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(cfg), newMigrateCmd(cfg))
	return root
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate the trailing week into weekly summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseAsOf(asOf, time.Now())
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.LogLevel)
			ctx := cmd.Context()

			store, err := app.OpenStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			agg, cleanup := app.NewAggregator(cfg, store, logger)
			defer cleanup()

			report, err := agg.RunWeeklyAggregation(ctx, at)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Failed() {
				return fmt.Errorf("%d children failed", len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "end of the summarized window (RFC3339), defaults to now")
	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.StoreDriver != config.StorePostgres {
				return fmt.Errorf("migrations only apply to the %s store, STORE_DRIVER is %q", config.StorePostgres, cfg.StoreDriver)
			}
			db, err := repository.OpenPostgres(cmd.Context(), cfg.DBConn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := repository.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func parseAsOf(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", value, err)
	}
	return at, nil
}

func printReport(w io.Writer, report *models.RunReport) {
	fmt.Fprintf(w, "window %s - %s: %d summaries, %d fallbacks, %d failures (%s)\n",
		report.WeekStart.Format(time.RFC3339), report.AsOf.Format(time.RFC3339),
		len(report.Summaries), report.Fallbacks, len(report.Failures), report.Duration)
	for _, s := range report.Summaries {
		fmt.Fprintf(w, "  %s\t%s\t%d\n", s.ChildID, s.Tag, s.CreditScore)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.ChildID, f.Error)
	}
}
