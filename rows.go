package clickhouse

import (
	"database/sql/driver"
	"errors"
	"io"
	"reflect"

	"github.com/fastreports/clickhouse/types"
)

// Rows decodes a response stream one row at a time.
type Rows struct {
	body    io.ReadCloser
	columns []ColumnDefinition
	fail    func(error)
	names   []string
	reader  *binaryReader
	values  []any
}

func newRows(body io.ReadCloser, parser *types.Parser) (*Rows, error) {
	reader := newBinaryReader(body)
	columns, err := readHeader(reader, parser)

	if err != nil {
		return nil, err
	}

	names := make([]string, len(columns))

	for i, column := range columns {
		names[i] = column.Name
	}

	return &Rows{
		body:    body,
		columns: columns,
		names:   names,
		reader:  reader,
		values:  make([]any, len(columns)),
	}, nil
}

func (r *Rows) Columns() []string {
	return r.names
}

func (r *Rows) ColumnDefinitions() []ColumnDefinition {
	return r.columns
}

func (r *Rows) Close() error {
	return r.body.Close()
}

func (r *Rows) Next(dest []driver.Value) error {
	if err := r.next(r.values); err != nil {
		return err
	}

	for i, value := range r.values {
		dest[i] = value
	}

	return nil
}

func (r *Rows) next(dest []any) error {
	if len(r.columns) == 0 {
		return io.EOF
	}

	err := readRow(r.reader, r.columns, dest)

	// A row cut short may follow the final read, which already ended the
	// command as completed.
	if err != nil && !errors.Is(err, io.EOF) && r.fail != nil {
		r.fail(err)
	}

	return err
}

func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	return r.columns[index].Type
}

func (r *Rows) ColumnTypeScanType(index int) reflect.Type {
	return r.columns[index].ScanType()
}

func (r *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.columns[index].Nullable(), true
}
