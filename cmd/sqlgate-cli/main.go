package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sqlgate/sqlgate/pkg/adapter"
	"github.com/sqlgate/sqlgate/pkg/logger"

	_ "github.com/sqlgate/sqlgate/pkg/drivers/mssql"
	_ "github.com/sqlgate/sqlgate/pkg/drivers/mysql"
	_ "github.com/sqlgate/sqlgate/pkg/drivers/postgres"
)

var (
	driverName string
	dsn        string
	username   string
	password   string
	verbose    bool

	version = "0.1.0"
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("sqlgate-cli v%s\n", version)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("Drivers: %v\n", adapter.ListRegistered())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sqlgate-cli",
	Short: "Interactive SQL client for sqlgate drivers",
	Long: "A small SQL client exercising the sqlgate access layer: connect to PostgreSQL, " +
		"MySQL/MariaDB or SQL Server, run statements, and control transactions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// openAdapter builds an adapter from the global flags. The connection itself
// opens lazily on first use.
func openAdapter() (*adapter.Adapter, error) {
	log := logger.New("sqlgate-cli")
	if !verbose {
		log.DisableConsoleOutput()
	}
	return adapter.New(driverName, adapter.Config{
		DSN:      dsn,
		Username: username,
		Password: password,
	}, log)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driverName, "driver", "postgres", "Database driver (postgres, mysql, mariadb, mssql)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("SQLGATE_DSN"), "Connection string")
	rootCmd.PersistentFlags().StringVar(&username, "user", "", "Username (overrides the DSN)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password (overrides the DSN)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log executed SQL")
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
