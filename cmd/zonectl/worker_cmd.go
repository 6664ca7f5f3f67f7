package main

import (
	"context"
	"errors"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const stopTimeout = 30 * time.Second

func newWorkerCmd() *cobra.Command {
	var (
		noScheduler bool
		noOutbox    bool
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the job queue worker, the email outbox and the report scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(c *bootstrap.Container) error {
				return runWorker(cmd.Context(), c, !noOutbox, !noScheduler)
			})
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Do not run scheduled report exports")
	cmd.Flags().BoolVar(&noOutbox, "no-outbox", false, "Do not deliver queued emails")
	return cmd
}

// runWorker blocks until ctx is cancelled or the queue worker fails
func runWorker(ctx context.Context, c *bootstrap.Container, outbox, schedules bool) error {
	log := c.Logger
	g, ctx := errgroup.WithContext(ctx)

	worker := c.NewWorker()
	g.Go(func() error { return worker.Run(ctx) })

	if outbox {
		processor := c.NewNotificationProcessor()
		if err := processor.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return processor.Stop(stopCtx)
		})
	}

	if schedules && c.Config.Scheduler.Enabled {
		sched := c.NewScheduler()
		if err := sched.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	}

	log.Info("Worker started",
		zap.Bool("outbox", outbox),
		zap.Bool("scheduler", schedules && c.Config.Scheduler.Enabled))
	err := g.Wait()
	log.Info("Worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
