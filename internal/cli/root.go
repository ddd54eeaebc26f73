// Package cli implements the chq command-line client on top of the driver:
// running queries, checking connectivity and printing parsed type trees.
package cli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastreports/clickhouse"
	"github.com/fastreports/clickhouse/internal/keychain"
)

// Version is set at build time using -ldflags.
var Version = "0.0.0-dev"

var (
	dsn     string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "chq",
	Short:         "Query a ClickHouse server over its HTTP interface",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "connection string, defaults to $CLICKHOUSE_DSN")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(queryCmd, pingCmd, typeCmd, loginCmd, logoutCmd)
}

// openStore is replaced in tests.
var openStore = keychain.Open

// resolveDSN picks the connection string from the --dsn flag, then
// $CLICKHOUSE_DSN, then the keychain entry saved by "chq login".
func resolveDSN() (string, error) {
	if value := strings.TrimSpace(dsn); value != "" {
		return value, nil
	}

	if value := envDSN(); value != "" {
		return value, nil
	}

	store, err := openStore()

	if err == nil {
		value, err := store.LoadDSN()

		if err == nil {
			return value, nil
		}

		if !errors.Is(err, keychain.ErrNoDSN) {
			return "", fmt.Errorf("reading keychain: %w", err)
		}
	}

	return "", errors.New("no connection string: pass --dsn or run chq login")
}

func envDSN() string {
	return strings.TrimSpace(os.Getenv("CLICKHOUSE_DSN"))
}

func loadConfig() (*clickhouse.Config, error) {
	value, err := resolveDSN()

	if err != nil {
		return nil, err
	}

	config, err := clickhouse.ParseDSN(value)

	if err != nil {
		return nil, fmt.Errorf("%w (dsn: %s)", err, maskDSN(value))
	}

	logger, err := newLogger()

	if err != nil {
		return nil, err
	}

	config.Logger = logger

	return config, nil
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}

	return zap.NewDevelopment()
}

var rePassword = regexp.MustCompile(`(?i)(password=)(\S+)`)

// maskDSN hides the password in a connection string.
func maskDSN(s string) string {
	return rePassword.ReplaceAllString(s, "$1***")
}
