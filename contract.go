package clickhouse

import (
	"context"
)

// DbParameter is what a command needs from a parameter.
type DbParameter interface {
	Name() string
	Value() any
	ServerType() string
	Direction() Direction
	SetDirection(Direction)
}

// DbCommand executes one SQL text with the parameters bound to it. A
// command is used by one goroutine at a time: bind, execute, then consume
// the result before touching it again.
type DbCommand[P DbParameter] interface {
	CommandText() string
	SetCommandText(text string)
	CreateParameter(name string, value any) P
	Parameters() *ParameterCollection
	State() CommandState
	Reset()

	ExecuteBuffered(ctx context.Context) (*BufferedResult, error)
	ExecuteRaw(ctx context.Context) (*RawResult, error)
	ExecuteNonQuery(ctx context.Context) (int64, error)
}

// DbConnection creates commands bound to its own parameter type.
type DbConnection[P DbParameter, C DbCommand[P]] interface {
	CreateCommand(text string) C
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ DbParameter                        = (*Parameter)(nil)
	_ DbCommand[*Parameter]              = (*Command)(nil)
	_ DbConnection[*Parameter, *Command] = (*Connection)(nil)
)
