package clickhouse

import (
	"golang.org/x/exp/slices"
)

// ParameterCollection is an ordered list of parameters. Names may repeat;
// lookups by name act on the first match and positions address everything
// else.
type ParameterCollection struct {
	parameters []*Parameter
}

func NewParameterCollection(parameters ...*Parameter) *ParameterCollection {
	return &ParameterCollection{
		parameters: slices.Clone(parameters),
	}
}

func (c *ParameterCollection) Len() int {
	return len(c.parameters)
}

func (c *ParameterCollection) Add(parameter *Parameter) int {
	c.parameters = append(c.parameters, parameter)

	return len(c.parameters) - 1
}

func (c *ParameterCollection) AddWithValue(name string, value any) *Parameter {
	parameter := NewParameter(name, value)
	c.Add(parameter)

	return parameter
}

// At panics when index is out of range, like a slice index.
func (c *ParameterCollection) At(index int) *Parameter {
	return c.parameters[index]
}

func (c *ParameterCollection) Set(index int, parameter *Parameter) {
	c.parameters[index] = parameter
}

func (c *ParameterCollection) Insert(index int, parameter *Parameter) {
	c.parameters = slices.Insert(c.parameters, index, parameter)
}

func (c *ParameterCollection) RemoveAt(index int) {
	c.parameters = slices.Delete(c.parameters, index, index+1)
}

// IndexOf returns the position of the first parameter called name, or -1.
func (c *ParameterCollection) IndexOf(name string) int {
	return slices.IndexFunc(c.parameters, func(p *Parameter) bool {
		return p.name == name
	})
}

func (c *ParameterCollection) Contains(name string) bool {
	return c.IndexOf(name) >= 0
}

func (c *ParameterCollection) Get(name string) (*Parameter, bool) {
	index := c.IndexOf(name)

	if index < 0 {
		return nil, false
	}

	return c.parameters[index], true
}

// SetByName replaces the first parameter called name in place, or appends
// the parameter when there is none.
func (c *ParameterCollection) SetByName(name string, parameter *Parameter) {
	index := c.IndexOf(name)

	if index < 0 {
		c.parameters = append(c.parameters, parameter)
		return
	}

	c.parameters[index] = parameter
}

// Remove deletes only the first parameter called name.
func (c *ParameterCollection) Remove(name string) bool {
	index := c.IndexOf(name)

	if index < 0 {
		return false
	}

	c.RemoveAt(index)

	return true
}

func (c *ParameterCollection) Clear() {
	c.parameters = nil
}

// All returns a copy of the parameters in order.
func (c *ParameterCollection) All() []*Parameter {
	return slices.Clone(c.parameters)
}
