package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CommandState int

const (
	CommandIdle CommandState = iota
	CommandExecuting
	CommandCompleted
	CommandFailed
	CommandCancelled
)

func (s CommandState) String() string {
	switch s {
	case CommandIdle:
		return "idle"
	case CommandExecuting:
		return "executing"
	case CommandCompleted:
		return "completed"
	case CommandFailed:
		return "failed"
	case CommandCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("CommandState(%d)", int(s))
	}
}

func (s CommandState) terminal() bool {
	return s == CommandCompleted || s == CommandFailed || s == CommandCancelled
}

var ErrCommandNotIdle = errors.New("clickhouse: command is not idle")

// Command is one SQL text plus its parameters. It moves from idle to
// executing and ends completed, failed or cancelled; Reset makes it
// executable again. Commands are not safe for concurrent use.
type Command struct {
	connection       *Connection
	customParameters map[string]string
	parameters       *ParameterCollection
	queryID          string
	state            CommandState
	text             string
}

func (c *Command) CommandText() string {
	return c.text
}

func (c *Command) SetCommandText(text string) {
	c.text = text
}

func (c *Command) Parameters() *ParameterCollection {
	return c.parameters
}

// CreateParameter returns a new parameter without adding it to the command.
func (c *Command) CreateParameter(name string, value any) *Parameter {
	return NewParameter(name, value)
}

// SetCustomParameter adds a query string entry for this command only. It
// is applied after everything else and can replace any key.
func (c *Command) SetCustomParameter(key, value string) {
	if c.customParameters == nil {
		c.customParameters = map[string]string{}
	}

	c.customParameters[key] = value
}

func (c *Command) State() CommandState {
	return c.state
}

// QueryID is the id sent with the most recent execution.
func (c *Command) QueryID() string {
	return c.queryID
}

// Reset returns a finished command to idle so it can run again.
func (c *Command) Reset() {
	if c.state.terminal() {
		c.state = CommandIdle
	}
}

func (c *Command) newRequest() *QueryRequest {
	config := c.connection.config
	custom := maps.Clone(config.CustomParameters)

	if custom == nil {
		custom = map[string]string{}
	}

	maps.Copy(custom, c.customParameters)

	return &QueryRequest{
		Endpoint:         config.URL,
		SQL:              c.text,
		Compress:         config.Compress,
		Database:         config.Database,
		SessionID:        config.SessionID,
		QueryID:          c.queryID,
		CustomParameters: custom,
	}
}

func (c *Command) begin(ctx context.Context) (*RawResult, error) {
	if c.state != CommandIdle {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotIdle, c.state)
	}

	c.state = CommandExecuting
	c.queryID = uuid.NewString()

	request := c.newRequest()

	if err := request.Bind(c.parameters); err != nil {
		c.finish(err)
		return nil, err
	}

	resp, err := c.connection.send(ctx, request)

	if err != nil {
		c.finish(err)
		return nil, err
	}

	return &RawResult{
		QueryID: c.queryID,
		Summary: parseSummary(resp.Header.Get(summaryHeader), c.connection.logger),
		body:    resp.Body,
		ctx:     ctx,
		finish:  c.finish,
		parser:  c.connection.parser,
	}, nil
}

func (c *Command) finish(err error) {
	switch {
	case err == nil:
		c.state = CommandCompleted
	case errors.Is(err, context.Canceled):
		c.state = CommandCancelled

		c.connection.logger.Debug("query cancelled", zap.String("query_id", c.queryID))
	default:
		c.state = CommandFailed
	}
}

// ExecuteRaw starts the query and returns the response stream in the wire
// format. Cancelling ctx tears the stream down instead of draining it.
func (c *Command) ExecuteRaw(ctx context.Context) (*RawResult, error) {
	return c.begin(ctx)
}

// ExecuteBuffered runs the query and reads the whole result into memory.
func (c *Command) ExecuteBuffered(ctx context.Context) (*BufferedResult, error) {
	raw, err := c.begin(ctx)

	if err != nil {
		return nil, err
	}

	defer raw.Close()

	rows, err := raw.Rows()

	if err != nil {
		return nil, err
	}

	result := &BufferedResult{
		QueryID: raw.QueryID,
		Summary: raw.Summary,
		columns: rows.columns,
	}

	for {
		values := make([]any, len(rows.columns))

		err := rows.next(values)

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		result.rows = append(result.rows, values)
	}

	return result, nil
}

// ExecuteNonQuery runs a statement, discards any output and returns the
// number of rows the server reports as written.
func (c *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	raw, err := c.begin(ctx)

	if err != nil {
		return 0, err
	}

	defer raw.Close()

	if _, err := io.Copy(io.Discard, raw); err != nil {
		return 0, err
	}

	return int64(raw.Summary.WrittenRows), nil
}
