package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fastreports/clickhouse"
)

var (
	queryParams   []string
	querySettings []string
	queryFormat   string
	queryRaw      bool
)

var queryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run a query and print the result",
	Long: `Run a query and print the result as a table.

Parameters bind {name:Type} placeholders:

  chq query 'SELECT {id:UInt32} AS id' --param id=42

With --raw the response is copied to stdout unchanged; combine it with
--format to pick a text format such as TSV or JSONEachRow. Interrupting a
running query tears down the request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()

		if err != nil {
			return err
		}

		defer config.Logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		connection := clickhouse.NewConnection(config)
		defer connection.Close()

		command := connection.CreateCommand(args[0])

		if err := bindFlags(command); err != nil {
			return err
		}

		if queryRaw {
			return runRaw(ctx, command, cmd.OutOrStdout())
		}

		result, err := command.ExecuteBuffered(ctx)

		if err != nil {
			return reportError(err)
		}

		return renderResult(result)
	},
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryParams, "param", "p", nil, "query parameter as name=value")
	queryCmd.Flags().StringArrayVarP(&querySettings, "setting", "s", nil, "extra query string entry as key=value")
	queryCmd.Flags().StringVar(&queryFormat, "format", "", "response format for --raw")
	queryCmd.Flags().BoolVar(&queryRaw, "raw", false, "copy the response body to stdout")
}

func bindFlags(command *clickhouse.Command) error {
	for _, param := range queryParams {
		name, value, ok := strings.Cut(param, "=")

		if !ok || name == "" {
			return fmt.Errorf("invalid --param %q, expected name=value", param)
		}

		command.Parameters().SetByName(name, command.CreateParameter(name, value))
	}

	for _, setting := range querySettings {
		key, value, ok := strings.Cut(setting, "=")

		if !ok || key == "" {
			return fmt.Errorf("invalid --setting %q, expected key=value", setting)
		}

		if key == "default_format" && !queryRaw {
			return errors.New("default_format can only be changed together with --raw")
		}

		command.SetCustomParameter(key, value)
	}

	if queryFormat != "" {
		if !queryRaw {
			return errors.New("--format requires --raw")
		}

		command.SetCustomParameter("default_format", queryFormat)
	}

	return nil
}

func runRaw(ctx context.Context, command *clickhouse.Command, out io.Writer) error {
	raw, err := command.ExecuteRaw(ctx)

	if err != nil {
		return reportError(err)
	}

	defer raw.Close()

	if _, err := io.Copy(out, raw); err != nil {
		return reportError(err)
	}

	return nil
}

func renderResult(result *clickhouse.BufferedResult) error {
	columns := result.Columns()

	if len(columns) == 0 {
		pterm.Success.Printfln("OK (query id %s)", result.QueryID)
		return nil
	}

	header := make([]string, len(columns))

	for i, column := range columns {
		header[i] = column.Name
	}

	data := pterm.TableData{header}

	for _, row := range result.All() {
		cells := make([]string, len(row))

		for i, value := range row {
			cells[i] = formatCell(value)
		}

		data = append(data, cells)
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	pterm.Info.Printfln("%d rows, %d rows read", result.Len(), result.Summary.ReadRows)

	return nil
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}

	return fmt.Sprint(value)
}

func reportError(err error) error {
	var serverErr *clickhouse.ServerError

	switch {
	case errors.Is(err, context.Canceled):
		pterm.Warning.Println("query cancelled")
		return nil
	case errors.As(err, &serverErr):
		pterm.Error.Printfln("server error %d", serverErr.Code)
		pterm.Println(serverErr.Message)
	}

	return err
}
