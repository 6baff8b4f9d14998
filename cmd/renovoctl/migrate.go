package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"renovo/internal/backend"
	"renovo/internal/cli"
	"renovo/internal/storage"
)

var flagMigrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured database",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&flagMigrateStatus, "status", false, "Print the schema version without migrating")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if !bcfg.Migratable() {
		return fmt.Errorf("backend %q has no schema to migrate", bcfg.Type)
	}

	if !flagMigrateStatus {
		if err := storage.RunMigrations(bcfg.Dialect(), bcfg.DSN()); err != nil {
			return err
		}
	}
	version, dirty, err := storage.MigrationVersion(bcfg.Dialect(), bcfg.DSN())
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (%s)\n", bcfg.Dialect(), version, state)
	return nil
}
