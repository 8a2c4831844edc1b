package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/baderkha/fb-bronze/pkg/migrate"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the transfer once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.runner.Run(ctx)
			printSummary(cmd, sum)
			return err
		},
	}
}

func newRecoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover [run-id]",
		Short: "Rerun the tables that failed in a run, the last run by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var runID string
			if len(args) == 1 {
				runID = args[0]
			} else {
				last, err := s.runner.GetStateManager().GetLastRun()
				if err != nil {
					return err
				}
				if last == nil {
					return fmt.Errorf("no previous run to recover")
				}
				runID = last.RunID
			}
			sum, err := s.runner.Recover(ctx, runID)
			printSummary(cmd, sum)
			return err
		},
	}
}

func printSummary(cmd *cobra.Command, sum *migrate.Summary) {
	if sum == nil {
		return
	}
	out := cmd.OutOrStdout()
	for _, t := range sum.Tables {
		status := "ok"
		if t.Failed() {
			status = "FAILED : " + t.Err.Error()
		}
		fmt.Fprintf(out, "%-12s %12s rows  %6s rejected  %s\n", t.Table, humanize.Comma(int64(t.Offset)), humanize.Comma(int64(t.RowsRejected)), status)
	}
	fmt.Fprintf(out, "run %s : %d tables, %d failed, %s rows loaded\n", sum.RunID, len(sum.Tables), len(sum.Failed()), humanize.Comma(int64(sum.RowsLoaded())))
	fmt.Fprintf(out, "Time taken: %s\n", sum.Elapsed.Round(time.Millisecond))
}
