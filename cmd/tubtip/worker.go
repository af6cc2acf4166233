package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tubtip/tubtip/internal/pkg/cache"
	"github.com/tubtip/tubtip/internal/pkg/jobqueue"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued notification jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		statsInterval, _ := cmd.Flags().GetDuration("stats-interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := cache.NewClient(cfg.Cache)
		defer client.Close()
		if err := cache.Ping(ctx, client); err != nil {
			return err
		}

		manager := jobqueue.NewManager(newQueue(client, cfg), statsInterval)
		manager.Start()
		log := logger.WithComponent("worker")
		log.Info().Int("workers", cfg.Queue.Workers).Msg("worker running")

		<-ctx.Done()
		manager.Stop()
		return nil
	},
}

func init() {
	workerCmd.Flags().Duration("stats-interval", time.Minute, "how often queue depth is logged (0 disables)")
}
