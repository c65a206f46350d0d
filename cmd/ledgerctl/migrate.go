package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/infrastructure/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrator := func() *postgres.Migrator {
		return postgres.NewMigrator(c.cfg.DatabaseURL, c.cfg.MigrationsPath, log.Logger)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return migrator().Up()
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return migrator().Down(steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			v, dirty, err := migrator().Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
