package clickhouse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/fastreports/clickhouse/types"
)

const summaryHeader = "X-ClickHouse-Summary"

// Summary holds the counters the server reports in the response headers.
type Summary struct {
	ReadRows     uint64 `json:"read_rows,string"`
	ReadBytes    uint64 `json:"read_bytes,string"`
	WrittenRows  uint64 `json:"written_rows,string"`
	WrittenBytes uint64 `json:"written_bytes,string"`
	ResultRows   uint64 `json:"result_rows,string"`
	ResultBytes  uint64 `json:"result_bytes,string"`
}

func parseSummary(header string, logger *zap.Logger) Summary {
	var summary Summary

	if header == "" {
		return summary
	}

	if err := json.Unmarshal([]byte(header), &summary); err != nil {
		logger.Debug("ignoring malformed summary header", zap.Error(err))
	}

	return summary
}

// RawResult is the forward only response stream of a query. Reading it to
// the end completes the command; closing it early or cancelling the
// context of the execution ends the command as cancelled.
type RawResult struct {
	QueryID string
	Summary Summary

	body   io.ReadCloser
	ctx    context.Context
	done   bool
	finish func(error)
	parser *types.Parser
}

func (r *RawResult) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.end(nil)
	case r.ctx.Err() != nil:
		err = r.ctx.Err()
		r.end(err)
	default:
		err = &TransportError{Op: "read response", Err: err}
		r.end(err)
	}

	return n, err
}

func (r *RawResult) Close() error {
	r.end(context.Canceled)

	return r.body.Close()
}

// Rows decodes the stream into rows. The RawResult must not be read
// directly afterwards.
func (r *RawResult) Rows() (*Rows, error) {
	rows, err := newRows(r, r.parser)

	if err != nil {
		r.fail(err)
		return nil, err
	}

	rows.fail = r.fail

	return rows, nil
}

// fail ends the command with err even when the stream already reached EOF,
// as a truncated row is only noticed after the last read.
func (r *RawResult) fail(err error) {
	r.done = true

	if r.finish != nil {
		r.finish(err)
	}
}

func (r *RawResult) end(err error) {
	if r.done {
		return
	}

	r.done = true

	if r.finish != nil {
		r.finish(err)
	}
}

// BufferedResult is a fully read result. It can be iterated any number of
// times.
type BufferedResult struct {
	QueryID string
	Summary Summary

	columns []ColumnDefinition
	rows    [][]any
}

func (r *BufferedResult) Columns() []ColumnDefinition {
	return r.columns
}

func (r *BufferedResult) Len() int {
	return len(r.rows)
}

func (r *BufferedResult) Row(i int) []any {
	return r.rows[i]
}

// All yields every row with its index.
func (r *BufferedResult) All() iter.Seq2[int, []any] {
	return func(yield func(int, []any) bool) {
		for i, row := range r.rows {
			if !yield(i, row) {
				return
			}
		}
	}
}
