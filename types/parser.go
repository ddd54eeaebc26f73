package types

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds how deeply type arguments may nest.
const DefaultMaxDepth = 256

var (
	ErrEmpty           = errors.New("missing type")
	ErrTooDeep         = errors.New("type nesting too deep")
	ErrUnbalanced      = errors.New("unbalanced ')'")
	ErrUnclosed        = errors.New("unclosed '('")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// SyntaxError describes why a type description could not be parsed.
type SyntaxError struct {
	Input string
	Token Token
	Err   error
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid type %q: %v", e.Input, e.Err)
	}

	return fmt.Sprintf("invalid type %q at %q: %v", e.Input, e.Token, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

type Parser struct {
	MaxDepth int
}

func NewParser() *Parser {
	return &Parser{MaxDepth: DefaultMaxDepth}
}

// Parse parses input with the default nesting limit.
func Parse(input string) (*Node, error) {
	return NewParser().Parse(input)
}

// Parse builds the type tree for input. Open groups are kept on an explicit
// stack so the nesting depth is limited by MaxDepth, not by the call stack.
func (p *Parser) Parse(input string) (*Node, error) {
	maxDepth := p.MaxDepth

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var (
		current *Node
		stack   []*Node
	)

	fail := func(token Token, err error) (*Node, error) {
		return nil, &SyntaxError{Input: input, Token: token, Err: err}
	}

	tokenizer := NewTokenizer(input)

	for token, ok := tokenizer.Next(); ok; token, ok = tokenizer.Next() {
		switch token {
		case "(":
			if current == nil {
				return fail(token, ErrEmpty)
			}

			// A completed group cannot take a second argument list.
			if !current.IsLeaf() {
				return fail(token, ErrUnexpectedToken)
			}

			if len(stack) >= maxDepth {
				return fail(token, ErrTooDeep)
			}

			stack = append(stack, current)
			current = nil
		case ",", ")":
			if len(stack) == 0 {
				if token == ")" {
					return fail(token, ErrUnbalanced)
				}

				return fail(token, ErrUnexpectedToken)
			}

			if current == nil {
				return fail(token, ErrEmpty)
			}

			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, current)
			current = nil

			if token == ")" {
				stack = stack[:len(stack)-1]
				current = parent
			}
		default:
			if current != nil {
				return fail(token, ErrUnexpectedToken)
			}

			current = &Node{Value: string(token)}
		}
	}

	if len(stack) > 0 {
		return fail("", ErrUnclosed)
	}

	if current == nil {
		return fail("", ErrEmpty)
	}

	return current, nil
}
