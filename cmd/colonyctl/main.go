package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pavitra93/colony-rent-manager/shared/config"
)

// dbOpener opens the database a command works against
type dbOpener func() (*gorm.DB, error)

func newRootCmd(open dbOpener, app config.AppConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "colonyctl",
		Short:         "Colony rent manager operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		MigrateCmd(open),
		ReportCmd(open, app),
		ProrateCmd(),
	)
	return rootCmd
}

func main() {
	_ = godotenv.Load()

	app := config.Load("")
	config.InitLogger(app.Env)

	if err := newRootCmd(config.ConnectDatabase, app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
