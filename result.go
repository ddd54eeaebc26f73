package clickhouse

import (
	"errors"
)

var ErrLastInsertIDUnsupported = errors.New("clickhouse: LastInsertId is not supported")

type Result struct {
	rowsAffected int64
}

func NewResult(rowsAffected int64) *Result {
	return &Result{
		rowsAffected: rowsAffected,
	}
}

func (r *Result) LastInsertId() (int64, error) {
	return 0, ErrLastInsertIDUnsupported
}

func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
