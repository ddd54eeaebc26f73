package clickhouse

import (
	"context"
	"database/sql/driver"

	"golang.org/x/sync/semaphore"
)

// Connector opens connections for database/sql. All connections of one
// connector share a limit on requests in flight.
type Connector struct {
	config  *Config
	driver  driver.Driver
	limiter *semaphore.Weighted
}

// NewConnector is meant for sql.OpenDB when a Config is built in code, for
// instance to set a logger.
func NewConnector(config *Config) *Connector {
	maxOpenRequests := config.MaxOpenRequests

	if maxOpenRequests <= 0 {
		maxOpenRequests = DefaultMaxOpenRequests
	}

	return &Connector{
		config:  config,
		driver:  &Driver{},
		limiter: semaphore.NewWeighted(int64(maxOpenRequests)),
	}
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	return &Conn{
		connection: newConnection(c.config, c.limiter),
	}, nil
}

func (c *Connector) Driver() driver.Driver {
	return c.driver
}
