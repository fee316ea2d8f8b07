package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibbank/bureau-service/internal/infrastructure/config"
	pgRepo "github.com/bibbank/bureau-service/internal/infrastructure/persistence/postgres"
	pkgpostgres "github.com/bibbank/bureau-service/pkg/postgres"
)

func migrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the bureau database schema",
		Long: `Apply or roll back the embedded schema migrations. The database is
taken from --dsn or, when empty, from the DB_* environment used by bureaud.`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres connection URL")

	resolve := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		return pkgpostgres.Config{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			Database: cfg.DB.Name,
			SSLMode:  cfg.DB.SSLMode,
		}.DSN(), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			if err := pgRepo.Migrations.Up(target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			return pgRepo.Migrations.Down(target, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "migrations to roll back; 0 rolls back everything")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			v, dirty, err := pgRepo.Migrations.Version(target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
