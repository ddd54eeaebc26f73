package types

import (
	"errors"
	"strings"
)

var ErrNotSingleChild = errors.New("node does not have exactly one child")

// Node is one element of a parsed type description. A node without children
// is an atomic type; otherwise the children are its type arguments in order.
type Node struct {
	Value    string
	Children []*Node
}

func NewNode(value string, children ...*Node) *Node {
	return &Node{
		Value:    value,
		Children: children,
	}
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// SingleChild returns the only child of the node. It fails for leaves and for
// nodes with more than one child.
func (n *Node) SingleChild() (*Node, error) {
	if len(n.Children) != 1 {
		return nil, ErrNotSingleChild
	}

	return n.Children[0], nil
}

func (n *Node) String() string {
	var builder strings.Builder

	n.render(&builder)

	return builder.String()
}

func (n *Node) render(builder *strings.Builder) {
	builder.WriteString(n.Value)

	if len(n.Children) == 0 {
		return
	}

	builder.WriteByte('(')

	for i, child := range n.Children {
		if i > 0 {
			builder.WriteString(", ")
		}

		child.render(builder)
	}

	builder.WriteByte(')')
}

// Equal reports whether both trees have the same values and children order.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}

	if n.Value != other.Value || len(n.Children) != len(other.Children) {
		return false
	}

	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}

	return true
}
