package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/env"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tubtip",
	Short:         "TubTip - tips for YouTube creators",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("tubtip version %s\nCommit: %s\n", Version, Commit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads .env and the environment, then initialises logging.
func loadConfig() (*config.Config, error) {
	env.SetupEnvFile()
	cfg, err := config.Load(env.GetEnv)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, JSONOutput: cfg.Log.JSON})
	return cfg, nil
}
