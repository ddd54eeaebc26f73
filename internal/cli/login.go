package cli

import (
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fastreports/clickhouse"
)

var loginSkipPing bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the connection string in the OS keychain",
	Long: `Check the connection string given with --dsn (or $CLICKHOUSE_DSN) and
save it in the OS keychain. Later commands use it when neither is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dsn == "" {
			dsn = envDSN()
		}

		if dsn == "" {
			return errors.New("pass the connection string to save with --dsn")
		}

		config, err := loadConfig()

		if err != nil {
			return err
		}

		defer config.Logger.Sync()

		if !loginSkipPing {
			spinner, _ := pterm.DefaultSpinner.Start("Checking connection...")

			connection := clickhouse.NewConnection(config)
			err := connection.Ping(cmd.Context())
			connection.Close()

			if err != nil {
				spinner.Fail(err.Error())
				return err
			}

			spinner.Success("Server is reachable")
		}

		store, err := openStore()

		if err != nil {
			return err
		}

		if err := store.SaveDSN(dsn); err != nil {
			return err
		}

		pterm.Success.Printfln("Saved %s", maskDSN(dsn))

		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved connection string",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()

		if err != nil {
			return err
		}

		if err := store.ClearDSN(); err != nil {
			return err
		}

		pterm.Success.Println("Removed the saved connection string")

		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginSkipPing, "no-ping", false, "save without checking the server")
}
