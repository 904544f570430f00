package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/queue"
)

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append reservation lifecycle events to the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			qc := config.LoadQueueConfig()
			logger.Info().Str("queue", qc.Queue).Str("file", qc.LogFile).Msg("consumer starting")
			return queue.NewConsumer(qc, logger).Run(ctx)
		},
	}
}
