package clickhouse

import (
	"context"
	"database/sql/driver"
	"errors"
)

var ErrTransactionsUnsupported = errors.New("clickhouse: transactions are not supported")

// Conn adapts a Connection to database/sql. Every call builds a fresh
// Command, so database/sql's own serialization of a conn is all that is
// needed.
type Conn struct {
	connection *Connection
}

// Connection exposes the native connection, for use with sql.Conn.Raw.
func (c *Conn) Connection() *Connection {
	return c.connection
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, ErrTransactionsUnsupported
}

func (c *Conn) Close() error {
	return c.connection.Close()
}

func (c *Conn) Prepare(sql string) (driver.Stmt, error) {
	return NewStatement(c, sql), nil
}

func (c *Conn) PrepareContext(ctx context.Context, sql string) (driver.Stmt, error) {
	return c.Prepare(sql)
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.connection.Ping(ctx)
}

func (c *Conn) IsValid() bool {
	return !c.connection.closed
}

func (c *Conn) ResetSession(ctx context.Context) error {
	if c.connection.closed {
		return driver.ErrBadConn
	}

	return nil
}

// CheckNamedValue accepts every value the driver can format as a query
// parameter, slices and UUIDs included.
func (c *Conn) CheckNamedValue(value *driver.NamedValue) error {
	if _, err := formatParameterValue(value.Value); err == nil {
		return nil
	}

	if valuer, ok := value.Value.(driver.Valuer); ok {
		converted, err := valuer.Value()

		if err != nil {
			return err
		}

		value.Value = converted
	}

	_, err := formatParameterValue(value.Value)

	return err
}

func (c *Conn) ExecContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Result, error) {
	command, err := c.command(sql, args)

	if err != nil {
		return nil, err
	}

	written, err := command.ExecuteNonQuery(ctx)

	if err != nil {
		return nil, err
	}

	return NewResult(written), nil
}

func (c *Conn) QueryContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Rows, error) {
	command, err := c.command(sql, args)

	if err != nil {
		return nil, err
	}

	raw, err := command.ExecuteRaw(ctx)

	if err != nil {
		return nil, err
	}

	rows, err := raw.Rows()

	if err != nil {
		raw.Close()
		return nil, err
	}

	return rows, nil
}

func (c *Conn) command(sql string, args []driver.NamedValue) (*Command, error) {
	parameters, err := prepareParameters(parsePlaceholders(sql), args)

	if err != nil {
		return nil, err
	}

	command := c.connection.CreateCommand(sql)
	command.parameters = parameters

	return command, nil
}
