package main

import (
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/sushihentaime/blogdesk/internal/common"
)

const sourceFlag = "source"

func migrationFlags() map[string]cobraflags.Flag {
	flags := connectionFlags()
	flags[sourceFlag] = &cobraflags.StringFlag{
		Name:  sourceFlag,
		Value: "file://migrations",
		Usage: "Location of the migration files",
	}
	return flags
}

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Apply or roll back schema migrations",
	}

	migrateCmd.AddCommand(newMigrationCommand("up", "Apply every pending migration", func(m *migrate.Migrate) error {
		return m.Up()
	}))
	migrateCmd.AddCommand(newMigrationCommand("down", "Roll back the most recent migration", func(m *migrate.Migrate) error {
		return m.Steps(-1)
	}))
	migrateCmd.AddCommand(newMigrationCommand("version", "Print the current schema version", nil))

	return migrateCmd
}

// newMigrationCommand runs step, if any, and then reports the schema version.
func newMigrationCommand(use, short string, step func(m *migrate.Migrate) error) *cobra.Command {
	flags := migrationFlags()

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := databaseURL(flags)
			if err != nil {
				return err
			}

			m, err := common.NewMigrator(flags[sourceFlag].GetString(), dsn)
			if err != nil {
				return fmt.Errorf("error opening migrations: %w", err)
			}
			defer m.Close()

			if step != nil {
				err := step(m)
				switch {
				case errors.Is(err, migrate.ErrNoChange):
					fmt.Fprintln(cmd.OutOrStdout(), "no change")
				case err != nil:
					return fmt.Errorf("error running migration: %w", err)
				}
			}

			version, dirty, err := m.Version()
			switch {
			case errors.Is(err, migrate.ErrNilVersion):
				fmt.Fprintln(cmd.OutOrStdout(), "version: none")
				return nil
			case err != nil:
				return fmt.Errorf("error reading version: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", version, dirty)
			return nil
		},
	}

	cobraflags.RegisterMap(cmd, flags)
	return cmd
}
