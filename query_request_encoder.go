package clickhouse

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultFormat is the response format requested for every query. Its header
// carries the name and type of each column before the rows.
const DefaultFormat = "RowBinaryWithNamesAndTypes"

const (
	keyCompression   = "enable_http_compression"
	keyDatabase      = "database"
	keyDefaultFormat = "default_format"
	keyQuery         = "query"
	keyQueryID       = "query_id"
	keySessionID     = "session_id"
	parameterPrefix  = "param_"
)

// BoundParameter is a parameter value already formatted for the wire.
type BoundParameter struct {
	Name  string
	Value string
}

// QueryRequest holds everything that ends up in the query string of a
// request. Encoding depends only on these fields.
type QueryRequest struct {
	Endpoint         string
	SQL              string
	Compress         bool
	Database         string
	SessionID        string
	QueryID          string
	Parameters       []BoundParameter
	CustomParameters map[string]string
}

// Bind formats the parameters and appends them in collection order.
func (r *QueryRequest) Bind(parameters *ParameterCollection) error {
	for _, parameter := range parameters.All() {
		value, err := parameter.FormattedValue()

		if err != nil {
			return err
		}

		r.Parameters = append(r.Parameters, BoundParameter{
			Name:  parameter.Name(),
			Value: value,
		})
	}

	return nil
}

// Encode renders the query string. Keys come out in a fixed order: the
// compression flag and format, then database, session, query id and SQL
// text (each only when non-empty), then bound parameters, then custom
// parameters sorted by key. A custom parameter replaces an earlier key of
// the same name in place.
func (r *QueryRequest) Encode() string {
	values := &orderedValues{}

	values.set(keyCompression, formatBool(r.Compress))
	values.set(keyDefaultFormat, DefaultFormat)
	values.setOrRemove(keyDatabase, r.Database)
	values.setOrRemove(keySessionID, r.SessionID)
	values.setOrRemove(keyQueryID, r.QueryID)
	values.setOrRemove(keyQuery, r.SQL)

	for _, parameter := range r.Parameters {
		values.set(parameterPrefix+parameter.Name, parameter.Value)
	}

	keys := make([]string, 0, len(r.CustomParameters))

	for key := range r.CustomParameters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		values.set(key, r.CustomParameters[key])
	}

	return values.encode()
}

// URL joins the endpoint and the encoded query string.
func (r *QueryRequest) URL() (string, error) {
	endpoint, err := url.Parse(r.Endpoint)

	if err != nil {
		return "", err
	}

	endpoint.RawQuery = r.Encode()

	return endpoint.String(), nil
}

func formatBool(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

type orderedValues struct {
	keys   []string
	values map[string]string
}

func (v *orderedValues) set(key, value string) {
	if v.values == nil {
		v.values = map[string]string{}
	}

	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}

	v.values[key] = value
}

func (v *orderedValues) remove(key string) {
	if _, ok := v.values[key]; !ok {
		return
	}

	delete(v.values, key)

	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// setOrRemove drops the key instead of sending it with an empty value.
func (v *orderedValues) setOrRemove(key, value string) {
	if value == "" {
		v.remove(key)
		return
	}

	v.set(key, value)
}

func (v *orderedValues) encode() string {
	var builder strings.Builder

	for i, key := range v.keys {
		if i > 0 {
			builder.WriteByte('&')
		}

		builder.WriteString(url.QueryEscape(key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(v.values[key]))
	}

	return builder.String()
}
