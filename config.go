package clickhouse

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/fastreports/clickhouse/types"
)

const (
	DefaultMaxOpenRequests = 10
	DefaultTimeout         = 30 * time.Second

	settingsPrefix = "settings."
)

var dsnKeys = []string{
	"compress",
	"database",
	"max_depth",
	"max_open_requests",
	"password",
	"query_in_body",
	"session_id",
	"timeout",
	"url",
	"user",
}

// Config lists every option the driver understands.
type Config struct {
	URL       string
	Database  string
	User      string
	Password  string
	SessionID string

	// Compress asks for gzip responses and compresses request bodies.
	Compress bool

	// QueryInBody sends the SQL text as the POST body instead of the query
	// string.
	QueryInBody bool

	Timeout         time.Duration
	MaxOpenRequests int

	// MaxDepth limits nesting in column type descriptions.
	MaxDepth int

	// CustomParameters are added to every query string last and may override
	// any key the driver sets itself.
	CustomParameters map[string]string

	Logger     *zap.Logger
	HTTPClient *http.Client
}

func NewConfig(url string) *Config {
	return &Config{
		URL:              url,
		Timeout:          DefaultTimeout,
		MaxOpenRequests:  DefaultMaxOpenRequests,
		MaxDepth:         types.DefaultMaxDepth,
		CustomParameters: map[string]string{},
		Logger:           zap.NewNop(),
	}
}

// ParseDSN reads a connection string of space separated key=value pairs, for
// example "url=http://localhost:8123 database=default compress=true".
// Keys of the form settings.<name> become custom parameters.
func ParseDSN(dsn string) (*Config, error) {
	args := make(map[string]string)
	config := NewConfig("")

	for _, pair := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(pair, "=")

		if !ok {
			return nil, fmt.Errorf("clickhouse: malformed dsn entry %q", pair)
		}

		if name, ok := strings.CutPrefix(key, settingsPrefix); ok && name != "" {
			config.CustomParameters[name] = value
			continue
		}

		if !slices.Contains(dsnKeys, key) {
			return nil, fmt.Errorf("clickhouse: unknown dsn key %q", key)
		}

		args[key] = value
	}

	if args["url"] == "" {
		return nil, errors.New("clickhouse: url is required")
	}

	config.URL = args["url"]
	config.Database = args["database"]
	config.User = args["user"]
	config.Password = args["password"]
	config.SessionID = args["session_id"]

	var err error

	if config.Compress, err = parseBoolArg(args, "compress", false); err != nil {
		return nil, err
	}

	if config.QueryInBody, err = parseBoolArg(args, "query_in_body", false); err != nil {
		return nil, err
	}

	if config.MaxOpenRequests, err = parseIntArg(args, "max_open_requests", DefaultMaxOpenRequests); err != nil {
		return nil, err
	}

	if config.MaxDepth, err = parseIntArg(args, "max_depth", types.DefaultMaxDepth); err != nil {
		return nil, err
	}

	if value := args["timeout"]; value != "" {
		if config.Timeout, err = time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("clickhouse: invalid timeout: %w", err)
		}
	}

	return config, nil
}

func parseBoolArg(args map[string]string, key string, fallback bool) (bool, error) {
	value := args[key]

	if value == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(value)

	if err != nil {
		return false, fmt.Errorf("clickhouse: invalid %s: %w", key, err)
	}

	return b, nil
}

func parseIntArg(args map[string]string, key string, fallback int) (int, error) {
	value := args[key]

	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)

	if err != nil || n <= 0 {
		return 0, fmt.Errorf("clickhouse: invalid %s %q", key, value)
	}

	return n, nil
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: c.Timeout,
	}

	// No client timeout: streamed bodies are bounded by the request context.
	return &http.Client{
		Timeout:   0,
		Transport: transport,
	}
}
