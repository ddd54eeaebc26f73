package clickhouse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var codePattern = regexp.MustCompile(`[0-9]+`)

// ServerError is a query failure reported by the server. The connection that
// produced it remains usable.
type ServerError struct {
	Code    int
	Message string
	Query   string
}

// DecodeServerError turns the body of a failed response into a ServerError.
// The code is the first run of digits in the text, or -1 when there is none.
func DecodeServerError(text, query string) *ServerError {
	code := -1

	if digits := codePattern.FindString(text); digits != "" {
		if parsed, err := strconv.Atoi(digits); err == nil {
			code = parsed
		}
	}

	return &ServerError{
		Code:    code,
		Message: strings.TrimSpace(text),
		Query:   query,
	}
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("clickhouse: server error %d: %s", e.Code, e.Message)
}

func IsServerError(err error) bool {
	var serverErr *ServerError

	return errors.As(err, &serverErr)
}

// TransportError wraps a failure to reach the server or read its response.
// These are never retried by the driver.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("clickhouse: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
