package clickhouse

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direction of a parameter. The protocol only has input parameters.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionInputOutput
	DirectionReturnValue
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	case DirectionInputOutput:
		return "input/output"
	case DirectionReturnValue:
		return "return value"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

const nullValue = `\N`

var ErrUnsupportedParameterType = errors.New("unsupported parameter type")

// Parameter is a named query parameter sent to the server as param_<name>.
// ServerType is the ClickHouse type used in {name:Type} placeholders; when it
// is empty the type is inferred from the value.
type Parameter struct {
	name       string
	value      any
	serverType string
	size       int
	nullable   bool
}

func NewParameter(name string, value any) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
	}
}

func (p *Parameter) Name() string           { return p.name }
func (p *Parameter) SetName(name string)    { p.name = name }
func (p *Parameter) Value() any             { return p.value }
func (p *Parameter) SetValue(value any)     { p.value = value }
func (p *Parameter) Size() int              { return p.size }
func (p *Parameter) SetSize(size int)       { p.size = size }
func (p *Parameter) Nullable() bool         { return p.nullable }
func (p *Parameter) SetNullable(b bool)     { p.nullable = b }
func (p *Parameter) SetServerType(t string) { p.serverType = t }
func (p *Parameter) Direction() Direction   { return DirectionInput }

// SetDirection ignores every direction other than input.
func (p *Parameter) SetDirection(Direction) {}

// ServerType returns the declared type, or the type inferred from the value.
// Nullable parameters are wrapped in Nullable(...).
func (p *Parameter) ServerType() string {
	serverType := p.serverType

	if serverType == "" {
		serverType = inferServerType(p.value)

		if p.size > 0 && serverType == "String" {
			serverType = fmt.Sprintf("FixedString(%d)", p.size)
		}
	}

	if p.nullable && !strings.HasPrefix(serverType, "Nullable(") {
		serverType = "Nullable(" + serverType + ")"
	}

	return serverType
}

// FormattedValue renders the value the way the server expects param_ values.
func (p *Parameter) FormattedValue() (string, error) {
	return formatParameterValue(p.value)
}

func inferServerType(value any) string {
	switch v := value.(type) {
	case nil:
		return "Nullable(Nothing)"
	case string, []byte:
		return "String"
	case bool:
		return "Bool"
	case int8:
		return "Int8"
	case int16:
		return "Int16"
	case int32:
		return "Int32"
	case int, int64:
		return "Int64"
	case uint8:
		return "UInt8"
	case uint16:
		return "UInt16"
	case uint32:
		return "UInt32"
	case uint, uint64:
		return "UInt64"
	case float32:
		return "Float32"
	case float64:
		return "Float64"
	case time.Time:
		return "DateTime64(9, 'UTC')"
	case uuid.UUID:
		return "UUID"
	default:
		rv := reflect.ValueOf(v)

		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			element := reflect.Zero(rv.Type().Elem()).Interface()

			return "Array(" + inferServerType(element) + ")"
		}

		return "String"
	}
}

func formatParameterValue(value any) (string, error) {
	if value == nil {
		return nullValue, nil
	}

	switch v := value.(type) {
	case string:
		return escapeText(v), nil
	case []byte:
		return escapeText(string(v)), nil
	case time.Time, uuid.UUID, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return formatScalar(v), nil
	}

	rv := reflect.ValueOf(value)

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedParameterType, value)
	}

	return formatArrayLiteral(rv)
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format("2006-01-02 15:04:05.000000000")
	case uuid.UUID:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Array elements use the quoted literal syntax: ['a', 'b'] or [1, 2].
func formatArrayLiteral(rv reflect.Value) (string, error) {
	var builder strings.Builder

	builder.WriteByte('[')

	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			builder.WriteByte(',')
		}

		element := rv.Index(i).Interface()

		switch v := element.(type) {
		case nil:
			builder.WriteString("NULL")
		case string:
			builder.WriteString(quoteLiteral(v))
		case []byte:
			builder.WriteString(quoteLiteral(string(v)))
		case time.Time, uuid.UUID:
			builder.WriteString(quoteLiteral(formatScalar(v)))
		case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			builder.WriteString(formatScalar(v))
		default:
			inner := reflect.ValueOf(element)

			if inner.Kind() != reflect.Slice && inner.Kind() != reflect.Array {
				return "", fmt.Errorf("%w: %T", ErrUnsupportedParameterType, element)
			}

			literal, err := formatArrayLiteral(inner)

			if err != nil {
				return "", err
			}

			builder.WriteString(literal)
		}
	}

	builder.WriteByte(']')

	return builder.String(), nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteLiteral(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// prepareParameters turns database/sql arguments into parameters. Positional
// arguments take their names, in order, from the query placeholders.
func prepareParameters(placeholders []placeholder, args []driver.NamedValue) (*ParameterCollection, error) {
	parameters := NewParameterCollection()

	for _, arg := range args {
		name := arg.Name
		serverType := ""

		if name == "" {
			index := arg.Ordinal - 1

			if index < 0 || index >= len(placeholders) {
				return nil, fmt.Errorf("clickhouse: argument %d has no matching placeholder", arg.Ordinal)
			}

			name = placeholders[index].name
			serverType = placeholders[index].serverType
		} else if p, ok := findPlaceholder(placeholders, name); ok {
			serverType = p.serverType
		}

		if _, err := formatParameterValue(arg.Value); err != nil {
			return nil, err
		}

		parameter := NewParameter(name, arg.Value)
		parameter.SetServerType(serverType)
		parameters.Add(parameter)
	}

	return parameters, nil
}
