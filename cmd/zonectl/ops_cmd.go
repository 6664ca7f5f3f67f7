package main

import (
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/bootstrap"
	"github.com/spf13/cobra"
)

type runResult struct {
	Command   string `json:"command"`
	Processed int    `json:"processed"`
}

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Email outbox maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Deliver one batch of due emails and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(c *bootstrap.Container) error {
				n, err := c.NewNotificationProcessor().ProcessBatch(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(runResult{Command: "outbox flush", Processed: n})
			})
		},
	})
	return cmd
}

func newSchedulesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Report schedule maintenance",
	}
	runDue := &cobra.Command{
		Use:   "run-due",
		Short: "Queue exports for every schedule that is due and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(c *bootstrap.Container) error {
				if limit <= 0 {
					limit = c.Config.Scheduler.BatchSize
				}
				n, err := c.Services.Schedules.RunDue(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeJSON(runResult{Command: "schedules run-due", Processed: n})
			})
		},
	}
	runDue.Flags().IntVar(&limit, "limit", 0, "Maximum schedules to run (defaults to scheduler.batch_size)")
	cmd.AddCommand(runDue)
	return cmd
}
