package clickhouse

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterDirectionIsAlwaysInput(t *testing.T) {
	p := NewParameter("id", 1)

	p.SetDirection(DirectionOutput)
	assert.Equal(t, DirectionInput, p.Direction())

	p.SetDirection(DirectionReturnValue)
	assert.Equal(t, DirectionInput, p.Direction())
	assert.Equal(t, "input", p.Direction().String())
}

func TestParameterServerType(t *testing.T) {
	testCases := []struct {
		value    any
		expected string
	}{
		{value: "text", expected: "String"},
		{value: []byte("raw"), expected: "String"},
		{value: int64(1), expected: "Int64"},
		{value: int32(1), expected: "Int32"},
		{value: uint8(1), expected: "UInt8"},
		{value: 1.5, expected: "Float64"},
		{value: true, expected: "Bool"},
		{value: nil, expected: "Nullable(Nothing)"},
		{value: time.Time{}, expected: "DateTime64(9, 'UTC')"},
		{value: uuid.Nil, expected: "UUID"},
		{value: []string{"a"}, expected: "Array(String)"},
		{value: [][]int32{{1}}, expected: "Array(Array(Int32))"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, NewParameter("p", tc.value).ServerType())
		})
	}
}

func TestParameterDeclaredType(t *testing.T) {
	p := NewParameter("code", "AB")
	p.SetSize(2)
	assert.Equal(t, "FixedString(2)", p.ServerType())

	p.SetNullable(true)
	assert.Equal(t, "Nullable(FixedString(2))", p.ServerType())

	p.SetServerType("Nullable(String)")
	assert.Equal(t, "Nullable(String)", p.ServerType())
}

func TestParameterFormattedValue(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	at := time.Date(2024, 3, 1, 12, 30, 0, 5, time.FixedZone("CET", 3600))

	testCases := []struct {
		desc     string
		value    any
		expected string
	}{
		{desc: "nil", value: nil, expected: `\N`},
		{desc: "string", value: "plain", expected: "plain"},
		{desc: "escapes", value: "a\tb\nc\\d", expected: `a\tb\nc\\d`},
		{desc: "int", value: int64(-42), expected: "-42"},
		{desc: "float", value: 0.25, expected: "0.25"},
		{desc: "bool", value: false, expected: "false"},
		{desc: "uuid", value: id, expected: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{desc: "time", value: at, expected: "2024-03-01 11:30:00.000000005"},
		{desc: "string array", value: []string{"a", "it's"}, expected: `['a','it\'s']`},
		{desc: "int array", value: []int{1, 2, 3}, expected: "[1,2,3]"},
		{desc: "nested array", value: [][]string{{"x"}, {}}, expected: "[['x'],[]]"},
		{desc: "mixed array", value: []any{nil, 1, "b"}, expected: "[NULL,1,'b']"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			formatted, err := NewParameter("p", tc.value).FormattedValue()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, formatted)
		})
	}

	_, err := NewParameter("p", struct{}{}).FormattedValue()
	assert.ErrorIs(t, err, ErrUnsupportedParameterType)
}

func TestPrepareParameters(t *testing.T) {
	placeholders := parsePlaceholders("SELECT {id:UInt32}, {name: String}, {id:UInt32}")

	parameters, err := prepareParameters(placeholders, []driver.NamedValue{
		{Ordinal: 1, Value: int64(7)},
		{Ordinal: 2, Value: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, parameters.Len())

	assert.Equal(t, "id", parameters.At(0).Name())
	assert.Equal(t, "UInt32", parameters.At(0).ServerType())
	assert.Equal(t, "name", parameters.At(1).Name())
	assert.Equal(t, "String", parameters.At(1).ServerType())

	named, err := prepareParameters(placeholders, []driver.NamedValue{
		{Name: "name", Ordinal: 1, Value: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "name", named.At(0).Name())

	_, err = prepareParameters(placeholders, []driver.NamedValue{
		{Ordinal: 1, Value: 1},
		{Ordinal: 2, Value: 2},
		{Ordinal: 3, Value: 3},
	})
	assert.Error(t, err)
}
