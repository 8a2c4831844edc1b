package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baderkha/fb-bronze/pkg/migrate/schedule"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the transfer on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if spec == "" {
				spec = s.cfg.Schedule
			}
			if spec == "" {
				return fmt.Errorf("no schedule : pass --cron or set schedule in the job file")
			}
			sched, err := schedule.New(spec, func(ctx context.Context) error {
				sum, err := s.runner.Run(ctx)
				printSummary(cmd, sum)
				return err
			}, s.log)
			if err != nil {
				return err
			}
			sched.Start(ctx)
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression, overrides the configured schedule")
	return cmd
}
