package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tubtip/tubtip/internal/pkg/jobqueue"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. With QUEUE_INPROCESS=true the notification
workers run inside the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.WithComponent("serve")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, err := NewApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		if cfg.Queue.InProcess {
			manager := jobqueue.NewManager(application.Queue, time.Minute)
			manager.Start()
			defer manager.Stop()
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.App.Addr()).Msg("listening")
			errCh <- application.App.Listen(cfg.App.Addr())
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return application.App.ShutdownWithContext(shutdownCtx)
	},
}
