package clickhouse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/fastreports/clickhouse/types"
)

// maxErrorBodySize caps how much of a failed response is read.
const maxErrorBodySize = 1 << 20

var ErrConnectionClosed = errors.New("clickhouse: connection is closed")

// Connection talks to one server endpoint over HTTP. It owns its HTTP
// client and must not be shared between goroutines.
type Connection struct {
	client  *http.Client
	closed  bool
	config  *Config
	id      string
	limiter *semaphore.Weighted
	logger  *zap.Logger
	parser  *types.Parser
}

func NewConnection(config *Config) *Connection {
	return newConnection(config, nil)
}

func newConnection(config *Config, limiter *semaphore.Weighted) *Connection {
	id := uuid.NewString()

	return &Connection{
		client:  config.httpClient(),
		config:  config,
		id:      id,
		limiter: limiter,
		logger:  config.logger().With(zap.String("connection_id", id)),
		parser:  &types.Parser{MaxDepth: config.MaxDepth},
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) CreateCommand(text string) *Command {
	return &Command{
		connection: c,
		parameters: NewParameterCollection(),
		text:       text,
	}
}

func (c *Connection) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	if c.config.HTTPClient == nil {
		c.client.CloseIdleConnections()
	}

	return nil
}

// Ping checks that the server answers on its /ping endpoint.
func (c *Connection) Ping(ctx context.Context) error {
	if c.closed {
		return ErrConnectionClosed
	}

	endpoint, err := url.JoinPath(c.config.URL, "ping")

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)

	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return &TransportError{Op: "ping", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "ping", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return nil
}

// send executes the request and returns the response once the server has
// accepted the query. The caller must close the response body.
func (c *Connection) send(ctx context.Context, request *QueryRequest) (*http.Response, error) {
	if c.closed {
		return nil, ErrConnectionClosed
	}

	sql := request.SQL

	var body io.Reader = http.NoBody

	if c.config.QueryInBody {
		request.SQL = ""

		encoded, err := c.encodeBody(sql)

		if err != nil {
			return nil, err
		}

		body = encoded
	}

	endpoint, err := request.URL()

	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)

	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	if c.config.User != "" {
		req.Header.Set("X-ClickHouse-User", c.config.User)
		req.Header.Set("X-ClickHouse-Key", c.config.Password)
	}

	if c.config.Compress {
		req.Header.Set("Accept-Encoding", "gzip")

		if c.config.QueryInBody {
			req.Header.Set("Content-Encoding", "gzip")
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	release := func() {
		if c.limiter != nil {
			c.limiter.Release(1)
		}
	}

	c.logger.Debug("sending query",
		zap.String("query_id", request.QueryID),
		zap.String("database", request.Database),
		zap.Int("parameters", len(request.Parameters)),
	)

	resp, err := c.client.Do(req)

	if err != nil {
		release()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &TransportError{Op: "send query", Err: err}
	}

	reader, err := c.decodeBody(resp)

	if err != nil {
		resp.Body.Close()
		release()

		return nil, &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer release()
		defer resp.Body.Close()

		text, err := io.ReadAll(io.LimitReader(reader, maxErrorBodySize))

		if err != nil {
			return nil, &TransportError{Op: "read error response", Err: err}
		}

		serverErr := DecodeServerError(string(text), sql)

		c.logger.Warn("query failed",
			zap.String("query_id", request.QueryID),
			zap.Int("code", serverErr.Code),
			zap.Int("status", resp.StatusCode),
		)

		return nil, serverErr
	}

	resp.Body = &responseBody{
		Reader:  reader,
		body:    resp.Body,
		release: release,
	}

	return resp, nil
}

func (c *Connection) encodeBody(sql string) (io.Reader, error) {
	if !c.config.Compress {
		return strings.NewReader(sql), nil
	}

	buffer := &bytes.Buffer{}
	writer := gzip.NewWriter(buffer)

	if _, err := writer.Write([]byte(sql)); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buffer, nil
}

func (c *Connection) decodeBody(resp *http.Response) (io.Reader, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, nil
	}

	reader, err := gzip.NewReader(resp.Body)

	// Statements without output may answer with an empty gzip body.
	if errors.Is(err, io.EOF) {
		return http.NoBody, nil
	}

	return reader, err
}

// responseBody releases the request slot exactly once when closed.
type responseBody struct {
	io.Reader
	body    io.Closer
	once    sync.Once
	release func()
}

func (b *responseBody) Close() error {
	err := b.body.Close()

	b.once.Do(b.release)

	return err
}
