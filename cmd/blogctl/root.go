package main

import (
	"database/sql"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/config"
)

const (
	configFlag = "config"
	dsnFlag    = "dsn"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "blogctl",
		Short:        "Operate a blogdesk installation",
		Long:         "blogctl applies schema migrations and manages admin accounts of a blogdesk database.",
		SilenceUsage: true,
	}

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newAdminCommand())

	return root
}

// connectionFlags are shared by every command that talks to the database.
// Each command gets its own set.
func connectionFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		configFlag: &cobraflags.StringFlag{
			Name:  configFlag,
			Value: ".env",
			Usage: "Path to the dotenv config file",
		},
		dsnFlag: &cobraflags.StringFlag{
			Name:  dsnFlag,
			Value: "",
			Usage: "Postgres connection string. Overrides the database settings of the config file",
		},
	}
}

// databaseURL prefers --dsn and falls back to the config file.
func databaseURL(flags map[string]cobraflags.Flag) (string, error) {
	if dsn := flags[dsnFlag].GetString(); dsn != "" {
		return dsn, nil
	}

	cfg, err := config.Load(flags[configFlag].GetString())
	if err != nil {
		return "", fmt.Errorf("error loading config: %w", err)
	}

	return cfg.DatabaseURL(), nil
}

func openDB(flags map[string]cobraflags.Flag) (*sql.DB, error) {
	dsn, err := databaseURL(flags)
	if err != nil {
		return nil, err
	}

	db, err := common.NewDB(dsn, common.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	return db, nil
}
