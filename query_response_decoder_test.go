package clickhouse

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastreports/clickhouse/types"
)

// rowBinary builds RowBinaryWithNamesAndTypes payloads.
type rowBinary struct {
	bytes.Buffer
}

func newRowBinary(columns ...string) *rowBinary {
	b := &rowBinary{}
	b.uvarint(uint64(len(columns) / 2))

	for i := 0; i < len(columns); i += 2 {
		b.str(columns[i])
	}

	for i := 1; i < len(columns); i += 2 {
		b.str(columns[i])
	}

	return b
}

func (b *rowBinary) uvarint(n uint64) *rowBinary {
	b.Write(binary.AppendUvarint(nil, n))
	return b
}

func (b *rowBinary) str(s string) *rowBinary {
	b.uvarint(uint64(len(s)))
	b.WriteString(s)
	return b
}

func (b *rowBinary) le(v any) *rowBinary {
	if err := binary.Write(&b.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}

	return b
}

func decodeAll(t *testing.T, payload []byte) ([]ColumnDefinition, [][]any, error) {
	t.Helper()

	reader := newBinaryReader(bytes.NewReader(payload))
	columns, err := readHeader(reader, types.NewParser())
	require.NoError(t, err)

	var rows [][]any

	for {
		values := make([]any, len(columns))
		err := readRow(reader, columns, values)

		if err == io.EOF {
			return columns, rows, nil
		}

		if err != nil {
			return columns, rows, err
		}

		rows = append(rows, values)
	}
}

func TestDecodeScalarColumns(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	payload := newRowBinary(
		"n", "Int32",
		"name", "String",
		"ok", "Bool",
		"ratio", "Float64",
		"id", "UUID",
		"code", "FixedString(3)",
		"big", "UInt64",
	)

	payload.le(int32(-5)).str("first").le(uint8(1)).le(0.5)
	payload.le(binary.BigEndian.Uint64(id[:8])).le(binary.BigEndian.Uint64(id[8:]))
	payload.WriteString("abc")
	payload.le(uint64(1 << 40))

	payload.le(int32(7)).str("").le(uint8(0)).le(-1.25)
	payload.le(uint64(0)).le(uint64(0))
	payload.WriteString("xyz")
	payload.le(uint64(0))

	columns, rows, err := decodeAll(t, payload.Bytes())
	require.NoError(t, err)
	require.Len(t, columns, 7)
	require.Len(t, rows, 2)

	assert.Equal(t, "name", columns[1].Name)
	assert.Equal(t, "FixedString(3)", columns[5].Type)
	assert.Equal(t, []any{int32(-5), "first", true, 0.5, id, "abc", uint64(1 << 40)}, rows[0])
	assert.Equal(t, []any{int32(7), "", false, -1.25, uuid.Nil, "xyz", uint64(0)}, rows[1])
}

func TestDecodeTemporalColumns(t *testing.T) {
	payload := newRowBinary(
		"d", "Date",
		"d32", "Date32",
		"ts", "DateTime('UTC')",
		"ts64", "DateTime64(3, 'UTC')",
	)

	payload.le(uint16(19000)).le(int32(-1)).le(uint32(1700000000)).le(int64(1500))

	_, rows, err := decodeAll(t, payload.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, time.Unix(19000*86400, 0).Equal(rows[0][0].(time.Time)))
	assert.True(t, time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC).Equal(rows[0][1].(time.Time)))
	assert.True(t, time.Unix(1700000000, 0).Equal(rows[0][2].(time.Time)))
	assert.True(t, time.Unix(1, 500_000_000).Equal(rows[0][3].(time.Time)))
}

func TestDecodeCompositeColumns(t *testing.T) {
	payload := newRowBinary(
		"tags", "Array(Nullable(String))",
		"pair", "Tuple(id UInt64, name String)",
		"attrs", "Map(String, UInt16)",
		"level", "Enum8('low' = 1, 'high' = 2)",
		"city", "LowCardinality(String)",
		"nothing", "Nullable(Nothing)",
	)

	payload.uvarint(2).le(uint8(0)).str("a").le(uint8(1))
	payload.le(uint64(9)).str("nine")
	payload.uvarint(1).str("k").le(uint16(3))
	payload.le(int8(2))
	payload.str("Oslo")
	payload.le(uint8(1))

	columns, rows, err := decodeAll(t, payload.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, []any{"a", nil}, rows[0][0])
	assert.Equal(t, []any{uint64(9), "nine"}, rows[0][1])
	assert.Equal(t, map[any]any{"k": uint16(3)}, rows[0][2])
	assert.Equal(t, "high", rows[0][3])
	assert.Equal(t, "Oslo", rows[0][4])
	assert.Nil(t, rows[0][5])

	assert.Equal(t, "Array", columns[0].Tree.Value)
	assert.Equal(t, "Nullable(String)", columns[0].Tree.Children[0].String())
}

func TestDecodeEmptyBody(t *testing.T) {
	columns, err := readHeader(newBinaryReader(bytes.NewReader(nil)), types.NewParser())

	require.NoError(t, err)
	assert.Empty(t, columns)
}

func TestDecodeHeaderOnly(t *testing.T) {
	columns, rows, err := decodeAll(t, newRowBinary("n", "UInt8").Bytes())

	require.NoError(t, err)
	assert.Len(t, columns, 1)
	assert.Empty(t, rows)
}

func TestDecodeTruncatedRow(t *testing.T) {
	payload := newRowBinary("n", "UInt32", "s", "String")
	payload.le(uint32(1)).uvarint(10).WriteString("short")

	_, _, err := decodeAll(t, payload.Bytes())

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// allocatedBy reports the bytes allocated while fn runs.
func allocatedBy(fn func()) uint64 {
	var before, after runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&before)

	fn()

	runtime.ReadMemStats(&after)

	return after.TotalAlloc - before.TotalAlloc
}

func TestDecodeOversizedLengths(t *testing.T) {
	const limit = 16 << 20

	tests := []struct {
		name    string
		payload *rowBinary
	}{
		{
			name:    "string",
			payload: newRowBinary("s", "String").uvarint(1 << 28).str("abc"),
		},
		{
			name:    "array",
			payload: newRowBinary("a", "Array(UInt8)").uvarint(1 << 30).le([]uint8{1, 2, 3}),
		},
		{
			name:    "map",
			payload: newRowBinary("m", "Map(UInt8, UInt8)").uvarint(1 << 30).le([]uint8{1, 2}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error

			allocated := allocatedBy(func() {
				_, _, err = decodeAll(t, tt.payload.Bytes())
			})

			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.Less(t, allocated, uint64(limit))
		})
	}
}

func TestDecodeLargeString(t *testing.T) {
	value := strings.Repeat("x", 3*maxPreallocatedBytes+5)

	payload := newRowBinary("s", "String").str(value)

	_, rows, err := decodeAll(t, payload.Bytes())
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, value, rows[0][0])
}

func TestDecodeEnumLabelWithEquals(t *testing.T) {
	payload := newRowBinary("e", "Enum8('a=b' = 1, 'c' = 2)")
	payload.le(int8(1)).le(int8(2))

	_, rows, err := decodeAll(t, payload.Bytes())
	require.NoError(t, err)

	assert.Equal(t, [][]any{{"a=b"}, {"c"}}, rows)
}

func TestDecodeUnknownEnumValue(t *testing.T) {
	payload := newRowBinary("level", "Enum16('a' = 1000)")
	payload.le(int16(7))

	_, _, err := decodeAll(t, payload.Bytes())

	assert.ErrorContains(t, err, "unknown enum value 7")
}

func TestDecodeHeaderErrors(t *testing.T) {
	testCases := []struct {
		desc     string
		typeName string
		err      error
	}{
		{desc: "unsupported", typeName: "AggregateFunction(sum, UInt64)", err: ErrUnsupportedColumnType},
		{desc: "unbalanced", typeName: "Array(String", err: types.ErrUnclosed},
		{desc: "nullable arity", typeName: "Nullable(String, String)", err: types.ErrNotSingleChild},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			payload := newRowBinary("c", tc.typeName)

			_, err := readHeader(newBinaryReader(bytes.NewReader(payload.Bytes())), types.NewParser())

			assert.ErrorIs(t, err, tc.err)
			assert.ErrorContains(t, err, `column "c"`)
		})
	}
}

func TestDecodeHeaderRespectsMaxDepth(t *testing.T) {
	payload := newRowBinary("c", "Array(Array(Array(UInt8)))")

	_, err := readHeader(newBinaryReader(bytes.NewReader(payload.Bytes())), &types.Parser{MaxDepth: 2})

	assert.ErrorIs(t, err, types.ErrTooDeep)
}

func TestColumnDefinition(t *testing.T) {
	parser := types.NewParser()

	column, err := newColumnDefinition("city", "LowCardinality(Nullable(String))", parser)
	require.NoError(t, err)

	assert.True(t, column.Nullable())
	assert.Equal(t, reflect.PointerTo(reflect.TypeOf("")), column.ScanType())

	column, err = newColumnDefinition("n", "UInt16", parser)
	require.NoError(t, err)

	assert.False(t, column.Nullable())
	assert.Equal(t, reflect.TypeOf(uint16(0)), column.ScanType())
}
