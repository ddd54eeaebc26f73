package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fastreports/clickhouse"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()

		if err != nil {
			return err
		}

		defer config.Logger.Sync()

		connection := clickhouse.NewConnection(config)
		defer connection.Close()

		if err := connection.Ping(cmd.Context()); err != nil {
			pterm.Error.Printfln("%s is not reachable", config.URL)
			return err
		}

		pterm.Success.Printfln("%s is reachable", config.URL)

		return nil
	},
}
