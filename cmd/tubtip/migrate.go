package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tubtip/tubtip/internal/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func withMigrator(fn func(m *database.Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := database.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m, args)
	}
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withMigrator(func(m *database.Migrator, _ []string) error {
		if err := m.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: withMigrator(func(m *database.Migrator, _ []string) error {
		if err := m.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		fmt.Println("rolled back one migration")
		return nil
	}),
}

var migrateGotoCmd = &cobra.Command{
	Use:   "goto VERSION",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *database.Migrator, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		if err := m.Goto(uint(version)); err != nil {
			return fmt.Errorf("migrate goto %d: %w", version, err)
		}
		fmt.Printf("migrated to version %d\n", version)
		return nil
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: withMigrator(func(m *database.Migrator, _ []string) error {
		version, dirty, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Printf("version: %d, dirty: %t\n", version, dirty)
		return nil
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateGotoCmd, migrateStatusCmd)
}
