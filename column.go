package clickhouse

import (
	"reflect"

	"github.com/fastreports/clickhouse/types"
)

// ColumnDefinition describes one result column as announced in the response
// header.
type ColumnDefinition struct {
	Name string
	Type string
	Tree *types.Node

	decode decodeFunc
	goType reflect.Type
}

func newColumnDefinition(name, typeName string, parser *types.Parser) (ColumnDefinition, error) {
	tree, err := parser.Parse(typeName)

	if err != nil {
		return ColumnDefinition{}, err
	}

	decode, goType, err := newDecoder(tree)

	if err != nil {
		return ColumnDefinition{}, err
	}

	return ColumnDefinition{
		Name:   name,
		Type:   typeName,
		Tree:   tree,
		decode: decode,
		goType: goType,
	}, nil
}

// ScanType is the Go type values of this column decode to.
func (c ColumnDefinition) ScanType() reflect.Type {
	return c.goType
}

func (c ColumnDefinition) Nullable() bool {
	node := c.Tree

	for node != nil && typeName(node) == "LowCardinality" {
		node, _ = node.SingleChild()
	}

	return node != nil && typeName(node) == "Nullable"
}
