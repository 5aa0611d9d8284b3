package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"joblinker/api/internal/config"
	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/repositories"
	"joblinker/api/internal/services"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-emit events for resumes and applications the pipeline never finished",
	RunE: func(cmd *cobra.Command, _ []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		limit, _ := cmd.Flags().GetInt("limit")
		retention, _ := cmd.Flags().GetDuration("step-retention")

		return backfill(cmd, services.BackfillOptions{
			OlderThan:     olderThan,
			Limit:         limit,
			StepRetention: retention,
		})
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().Duration("older-than", 10*time.Minute, "only requeue rows untouched for at least this long")
	backfillCmd.Flags().IntP("limit", "l", 100, "maximum rows to requeue per kind")
	backfillCmd.Flags().Duration("step-retention", 7*24*time.Hour, "delete memoized step outputs older than this, 0 keeps them")
}

func backfill(cmd *cobra.Command, opts services.BackfillOptions) error {
	log := newLogger()
	defer log.Sync()

	cfg := config.Load(log)

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	broker, err := dispatch.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, 0, log)
	if err != nil {
		return fmt.Errorf("initializing rabbitmq: %w", err)
	}
	defer broker.Close()

	runner := services.NewBackfill(
		repositories.NewResumeRepository(db),
		repositories.NewApplicationRepository(db),
		services.NewStorageService(cfg.Storage.UploadPath),
		broker,
		repositories.NewStepRepository(db),
		log,
	)

	report, err := runner.Run(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("running backfill: %w", err)
	}

	if report.Failures > 0 {
		log.Warn("some rows could not be requeued", zap.Int("failures", report.Failures))
	}

	return nil
}
