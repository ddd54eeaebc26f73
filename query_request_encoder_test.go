package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRequestEncodeOrder(t *testing.T) {
	request := &QueryRequest{
		SQL:       "SELECT {id:UInt32}",
		Compress:  true,
		Database:  "analytics",
		SessionID: "s1",
		QueryID:   "q1",
		Parameters: []BoundParameter{
			{Name: "id", Value: "7"},
		},
		CustomParameters: map[string]string{
			"max_threads":             "4",
			"max_block_size":          "1000",
			"enable_http_compression": "false",
		},
	}

	assert.Equal(t,
		"enable_http_compression=false"+
			"&default_format=RowBinaryWithNamesAndTypes"+
			"&database=analytics"+
			"&session_id=s1"+
			"&query_id=q1"+
			"&query=SELECT+%7Bid%3AUInt32%7D"+
			"&param_id=7"+
			"&max_block_size=1000"+
			"&max_threads=4",
		request.Encode(),
	)
}

func TestQueryRequestEncodeIsDeterministic(t *testing.T) {
	build := func() *QueryRequest {
		return &QueryRequest{
			SQL:      "SELECT 1",
			Database: "default",
			CustomParameters: map[string]string{
				"z": "1", "a": "2", "m": "3", "b": "4", "y": "5",
			},
		}
	}

	first := build().Encode()

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, build().Encode())
	}
}

func TestQueryRequestEncodeOmitsEmptyValues(t *testing.T) {
	request := &QueryRequest{SQL: "SELECT 1"}

	encoded := request.Encode()

	assert.Equal(t, "enable_http_compression=false&default_format=RowBinaryWithNamesAndTypes&query=SELECT+1", encoded)
	assert.NotContains(t, encoded, "database=")
	assert.NotContains(t, encoded, "session_id=")
	assert.NotContains(t, encoded, "query_id=")

	request.SQL = ""

	assert.NotContains(t, request.Encode(), "query=")
}

func TestQueryRequestBind(t *testing.T) {
	parameters := NewParameterCollection()
	parameters.AddWithValue("name", "a\tb")
	parameters.AddWithValue("ids", []int{1, 2})
	parameters.AddWithValue("missing", nil)

	request := &QueryRequest{}
	require.NoError(t, request.Bind(parameters))

	assert.Equal(t, []BoundParameter{
		{Name: "name", Value: `a\tb`},
		{Name: "ids", Value: "[1,2]"},
		{Name: "missing", Value: `\N`},
	}, request.Parameters)

	assert.Contains(t, request.Encode(), "param_name=a%5Ctb&param_ids=%5B1%2C2%5D&param_missing=%5CN")

	parameters.AddWithValue("bad", struct{}{})
	assert.ErrorIs(t, (&QueryRequest{}).Bind(parameters), ErrUnsupportedParameterType)
}

func TestQueryRequestURL(t *testing.T) {
	request := &QueryRequest{
		Endpoint: "http://localhost:8123/?ignored=1",
		SQL:      "SELECT 1",
	}

	u, err := request.URL()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8123/?enable_http_compression=false&default_format=RowBinaryWithNamesAndTypes&query=SELECT+1", u)

	request.Endpoint = "http://[::1"
	_, err = request.URL()
	assert.Error(t, err)
}
