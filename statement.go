package clickhouse

import (
	"context"
	"database/sql/driver"
	"errors"
)

// Statement is a query text kept for repeated execution. The server has no
// prepared statements, so nothing is sent until it runs.
type Statement struct {
	closed       bool
	conn         *Conn
	placeholders []placeholder
	SQL          string
}

func NewStatement(conn *Conn, sql string) *Statement {
	return &Statement{
		conn:         conn,
		placeholders: parsePlaceholders(sql),
		SQL:          sql,
	}
}

func (s *Statement) Close() error {
	if s.closed {
		return errors.New("statement is already closed")
	}

	s.closed = true

	return nil
}

// NumInput is the number of distinct {name:Type} placeholders.
func (s *Statement) NumInput() int {
	return len(s.placeholders)
}

func (s *Statement) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *Statement) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.SQL, args)
}

func (s *Statement) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *Statement) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.SQL, args)
}

func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))

	for i, arg := range args {
		named[i] = driver.NamedValue{
			Ordinal: i + 1,
			Value:   arg,
		}
	}

	return named
}
