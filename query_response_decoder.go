package clickhouse

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fastreports/clickhouse/types"
)

var ErrUnsupportedColumnType = errors.New("unsupported column type")

type decodeFunc func(r *binaryReader) (any, error)

type binaryReader struct {
	reader  *bufio.Reader
	scratch [16]byte
}

func newBinaryReader(r io.Reader) *binaryReader {
	return &binaryReader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// atEOF reports whether the stream ended cleanly before the next value.
func (r *binaryReader) atEOF() (bool, error) {
	_, err := r.reader.Peek(1)

	if errors.Is(err, io.EOF) {
		return true, nil
	}

	return false, err
}

func (r *binaryReader) readFixed(n int) ([]byte, error) {
	buf := r.scratch[:n]

	if _, err := io.ReadFull(r.reader, buf); err != nil {
		return nil, unexpectedEOF(err)
	}

	return buf, nil
}

// Lengths and counts come from the wire, so buffers above these sizes grow
// with the data actually received instead of being allocated up front.
const (
	maxPreallocatedBytes    = 64 * 1024
	maxPreallocatedElements = 1024
)

func (r *binaryReader) readBytes(n int) ([]byte, error) {
	if n <= maxPreallocatedBytes {
		buf := make([]byte, n)

		if _, err := io.ReadFull(r.reader, buf); err != nil {
			return nil, unexpectedEOF(err)
		}

		return buf, nil
	}

	var buffer bytes.Buffer

	if _, err := io.CopyN(&buffer, r.reader, int64(n)); err != nil {
		return nil, unexpectedEOF(err)
	}

	return buffer.Bytes(), nil
}

func (r *binaryReader) readUvarint() (uint64, error) {
	n, err := binary.ReadUvarint(r.reader)

	return n, unexpectedEOF(err)
}

func (r *binaryReader) readString() (string, error) {
	length, err := r.readUvarint()

	if err != nil {
		return "", err
	}

	if length > math.MaxInt32 {
		return "", fmt.Errorf("clickhouse: string length %d out of range", length)
	}

	data, err := r.readBytes(int(length))

	return string(data), err
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

// readHeader reads the column names and types that precede the rows. An
// empty body, as returned for statements without a result set, has no
// columns.
func readHeader(r *binaryReader, parser *types.Parser) ([]ColumnDefinition, error) {
	if eof, err := r.atEOF(); eof || err != nil {
		return nil, err
	}

	count, err := r.readUvarint()

	if err != nil {
		return nil, err
	}

	if count > math.MaxUint16 {
		return nil, fmt.Errorf("clickhouse: column count %d out of range", count)
	}

	names := make([]string, count)

	for i := range names {
		if names[i], err = r.readString(); err != nil {
			return nil, err
		}
	}

	columns := make([]ColumnDefinition, count)

	for i := range columns {
		declared, err := r.readString()

		if err != nil {
			return nil, err
		}

		if columns[i], err = newColumnDefinition(names[i], declared, parser); err != nil {
			return nil, fmt.Errorf("clickhouse: column %q: %w", names[i], err)
		}
	}

	return columns, nil
}

// readRow decodes one row into dest. It returns io.EOF when the stream ends
// cleanly between rows.
func readRow(r *binaryReader, columns []ColumnDefinition, dest []any) error {
	if eof, err := r.atEOF(); err != nil {
		return err
	} else if eof {
		return io.EOF
	}

	for i, column := range columns {
		value, err := column.decode(r)

		if err != nil {
			return fmt.Errorf("clickhouse: column %q: %w", column.Name, err)
		}

		dest[i] = value
	}

	return nil
}

// typeName is the name of the type a node describes. Elements of named
// tuples carry their field name in front ("id UInt64").
func typeName(node *types.Node) string {
	value := strings.TrimSpace(node.Value)

	if index := strings.LastIndexByte(value, ' '); index >= 0 {
		return value[index+1:]
	}

	return value
}

var (
	typeOfAny    = reflect.TypeOf((*any)(nil)).Elem()
	typeOfTime   = reflect.TypeOf(time.Time{})
	typeOfUUID   = reflect.TypeOf(uuid.UUID{})
	typeOfString = reflect.TypeOf("")
)

// newDecoder derives the decode plan for a column from its type tree.
func newDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	name := typeName(node)

	switch name {
	case "Int8":
		return fixedDecoder(1, func(b []byte) any { return int8(b[0]) }), reflect.TypeOf(int8(0)), nil
	case "Int16":
		return fixedDecoder(2, func(b []byte) any { return int16(binary.LittleEndian.Uint16(b)) }), reflect.TypeOf(int16(0)), nil
	case "Int32":
		return fixedDecoder(4, func(b []byte) any { return int32(binary.LittleEndian.Uint32(b)) }), reflect.TypeOf(int32(0)), nil
	case "Int64":
		return fixedDecoder(8, func(b []byte) any { return int64(binary.LittleEndian.Uint64(b)) }), reflect.TypeOf(int64(0)), nil
	case "UInt8":
		return fixedDecoder(1, func(b []byte) any { return b[0] }), reflect.TypeOf(uint8(0)), nil
	case "UInt16":
		return fixedDecoder(2, func(b []byte) any { return binary.LittleEndian.Uint16(b) }), reflect.TypeOf(uint16(0)), nil
	case "UInt32":
		return fixedDecoder(4, func(b []byte) any { return binary.LittleEndian.Uint32(b) }), reflect.TypeOf(uint32(0)), nil
	case "UInt64":
		return fixedDecoder(8, func(b []byte) any { return binary.LittleEndian.Uint64(b) }), reflect.TypeOf(uint64(0)), nil
	case "Float32":
		return fixedDecoder(4, func(b []byte) any { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }), reflect.TypeOf(float32(0)), nil
	case "Float64":
		return fixedDecoder(8, func(b []byte) any { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }), reflect.TypeOf(float64(0)), nil
	case "Bool":
		return fixedDecoder(1, func(b []byte) any { return b[0] != 0 }), reflect.TypeOf(false), nil
	case "String":
		return func(r *binaryReader) (any, error) { return r.readString() }, typeOfString, nil
	case "FixedString":
		return fixedStringDecoder(node)
	case "UUID":
		return fixedDecoder(16, decodeUUID), typeOfUUID, nil
	case "Date":
		return fixedDecoder(2, func(b []byte) any {
			return time.Unix(int64(binary.LittleEndian.Uint16(b))*86400, 0).UTC()
		}), typeOfTime, nil
	case "Date32":
		return fixedDecoder(4, func(b []byte) any {
			return time.Unix(int64(int32(binary.LittleEndian.Uint32(b)))*86400, 0).UTC()
		}), typeOfTime, nil
	case "DateTime":
		return dateTimeDecoder(node)
	case "DateTime64":
		return dateTime64Decoder(node)
	case "Enum8", "Enum16":
		return enumDecoder(node, name == "Enum16")
	case "Nothing":
		return func(*binaryReader) (any, error) { return nil, nil }, typeOfAny, nil
	case "Nullable":
		return nullableDecoder(node)
	case "LowCardinality":
		inner, err := node.SingleChild()

		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", node, err)
		}

		return newDecoder(inner)
	case "Array":
		return arrayDecoder(node)
	case "Tuple":
		return tupleDecoder(node)
	case "Map":
		return mapDecoder(node)
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedColumnType, node)
}

func fixedDecoder(size int, convert func([]byte) any) decodeFunc {
	return func(r *binaryReader) (any, error) {
		b, err := r.readFixed(size)

		if err != nil {
			return nil, err
		}

		return convert(b), nil
	}
}

// UUIDs travel as two little endian 64 bit halves, high half first.
func decodeUUID(b []byte) any {
	var id uuid.UUID

	binary.BigEndian.PutUint64(id[:8], binary.LittleEndian.Uint64(b[:8]))
	binary.BigEndian.PutUint64(id[8:], binary.LittleEndian.Uint64(b[8:16]))

	return id
}

func intArgument(node *types.Node, index int) (int, error) {
	if index >= len(node.Children) {
		return 0, fmt.Errorf("%s: missing argument %d", node, index+1)
	}

	n, err := strconv.Atoi(node.Children[index].Value)

	if err != nil {
		return 0, fmt.Errorf("%s: %w", node, err)
	}

	return n, nil
}

func locationArgument(node *types.Node, index int) *time.Location {
	if index >= len(node.Children) {
		return time.UTC
	}

	name := strings.Trim(node.Children[index].Value, "'")
	location, err := time.LoadLocation(name)

	if err != nil {
		return time.UTC
	}

	return location
}

func fixedStringDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	size, err := intArgument(node, 0)

	if err != nil {
		return nil, nil, err
	}

	return func(r *binaryReader) (any, error) {
		b, err := r.readBytes(size)

		if err != nil {
			return nil, err
		}

		return string(b), nil
	}, typeOfString, nil
}

func dateTimeDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	location := locationArgument(node, 0)

	return fixedDecoder(4, func(b []byte) any {
		return time.Unix(int64(binary.LittleEndian.Uint32(b)), 0).In(location)
	}), typeOfTime, nil
}

func dateTime64Decoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	precision, err := intArgument(node, 0)

	if err != nil {
		return nil, nil, err
	}

	if precision < 0 || precision > 9 {
		return nil, nil, fmt.Errorf("%s: precision out of range", node)
	}

	location := locationArgument(node, 1)
	scale := int64(math.Pow10(9 - precision))

	return fixedDecoder(8, func(b []byte) any {
		ticks := int64(binary.LittleEndian.Uint64(b))

		return time.Unix(0, ticks*scale).In(location)
	}), typeOfTime, nil
}

// Enum arguments look like 'name' = value.
func enumDecoder(node *types.Node, wide bool) (decodeFunc, reflect.Type, error) {
	names := make(map[int16]string, len(node.Children))

	for _, child := range node.Children {
		// Labels may contain '=' themselves; the number follows the last one.
		index := strings.LastIndexByte(child.Value, '=')

		if index < 0 {
			return nil, nil, fmt.Errorf("%s: malformed enum value %q", node, child.Value)
		}

		label, number := child.Value[:index], child.Value[index+1:]

		n, err := strconv.ParseInt(strings.TrimSpace(number), 10, 16)

		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", node, err)
		}

		names[int16(n)] = strings.Trim(strings.TrimSpace(label), "'")
	}

	size := 1

	if wide {
		size = 2
	}

	return func(r *binaryReader) (any, error) {
		b, err := r.readFixed(size)

		if err != nil {
			return nil, err
		}

		value := int16(int8(b[0]))

		if wide {
			value = int16(binary.LittleEndian.Uint16(b))
		}

		name, ok := names[value]

		if !ok {
			return nil, fmt.Errorf("unknown enum value %d", value)
		}

		return name, nil
	}, typeOfString, nil
}

func nullableDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	inner, err := node.SingleChild()

	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", node, err)
	}

	decode, goType, err := newDecoder(inner)

	if err != nil {
		return nil, nil, err
	}

	return func(r *binaryReader) (any, error) {
		b, err := r.readFixed(1)

		if err != nil {
			return nil, err
		}

		if b[0] != 0 {
			return nil, nil
		}

		return decode(r)
	}, reflect.PointerTo(goType), nil
}

func readCount(r *binaryReader) (int, error) {
	count, err := r.readUvarint()

	if err != nil {
		return 0, err
	}

	if count > math.MaxInt32 {
		return 0, fmt.Errorf("clickhouse: element count %d out of range", count)
	}

	return int(count), nil
}

func arrayDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	inner, err := node.SingleChild()

	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", node, err)
	}

	decode, _, err := newDecoder(inner)

	if err != nil {
		return nil, nil, err
	}

	return func(r *binaryReader) (any, error) {
		count, err := readCount(r)

		if err != nil {
			return nil, err
		}

		values := make([]any, 0, min(count, maxPreallocatedElements))

		for i := 0; i < count; i++ {
			value, err := decode(r)

			if err != nil {
				return nil, err
			}

			values = append(values, value)
		}

		return values, nil
	}, reflect.TypeOf([]any{}), nil
}

func tupleDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	if node.IsLeaf() {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedColumnType, node)
	}

	decoders := make([]decodeFunc, len(node.Children))

	for i, child := range node.Children {
		decode, _, err := newDecoder(child)

		if err != nil {
			return nil, nil, err
		}

		decoders[i] = decode
	}

	return func(r *binaryReader) (any, error) {
		values := make([]any, len(decoders))

		for i, decode := range decoders {
			value, err := decode(r)

			if err != nil {
				return nil, err
			}

			values[i] = value
		}

		return values, nil
	}, reflect.TypeOf([]any{}), nil
}

func mapDecoder(node *types.Node) (decodeFunc, reflect.Type, error) {
	if len(node.Children) != 2 {
		return nil, nil, fmt.Errorf("%s: map needs a key and a value type", node)
	}

	decodeKey, _, err := newDecoder(node.Children[0])

	if err != nil {
		return nil, nil, err
	}

	decodeValue, _, err := newDecoder(node.Children[1])

	if err != nil {
		return nil, nil, err
	}

	return func(r *binaryReader) (any, error) {
		count, err := readCount(r)

		if err != nil {
			return nil, err
		}

		values := make(map[any]any, min(count, maxPreallocatedElements))

		for i := 0; i < count; i++ {
			key, err := decodeKey(r)

			if err != nil {
				return nil, err
			}

			value, err := decodeValue(r)

			if err != nil {
				return nil, err
			}

			values[key] = value
		}

		return values, nil
	}, reflect.TypeOf(map[any]any{}), nil
}
