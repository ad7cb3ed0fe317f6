// Package schema loads a theme JSON Schema with its external definition
// fragments, resolves local $ref pointers and flattens the property tree.
package schema

import (
	"encoding/json"
	"fmt"
)

// Node is the subset of a JSON Schema node the indexer understands.
type Node struct {
	Ref         string           `json:"$ref,omitempty"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Type        TypeSet          `json:"type,omitempty"`
	Properties  map[string]*Node `json:"properties,omitempty"`
	Items       *Node            `json:"-"`
	OneOf       []*Node          `json:"oneOf,omitempty"`
	AnyOf       []*Node          `json:"anyOf,omitempty"`
	AllOf       []*Node          `json:"allOf,omitempty"`
	Enum        []any            `json:"enum,omitempty"`
	Minimum     *float64         `json:"minimum,omitempty"`
	Maximum     *float64         `json:"maximum,omitempty"`
	Definitions map[string]*Node `json:"definitions,omitempty"`
}

// UnmarshalJSON accepts "items" as either a schema or a tuple of schemas;
// for tuples the first element is used.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var aux struct {
		plain
		Items json.RawMessage `json:"items,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = Node(aux.plain)
	if len(aux.Items) == 0 || string(aux.Items) == "null" {
		return nil
	}
	switch aux.Items[0] {
	case '{':
		var item Node
		if err := json.Unmarshal(aux.Items, &item); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		n.Items = &item
	case '[':
		var tuple []*Node
		if err := json.Unmarshal(aux.Items, &tuple); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		if len(tuple) > 0 {
			n.Items = tuple[0]
		}
	}
	return nil
}

// alternatives returns the oneOf, anyOf and allOf branches in that order.
func (n *Node) alternatives() []*Node {
	if len(n.OneOf)+len(n.AnyOf)+len(n.AllOf) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(n.OneOf)+len(n.AnyOf)+len(n.AllOf))
	out = append(out, n.OneOf...)
	out = append(out, n.AnyOf...)
	out = append(out, n.AllOf...)
	return out
}

// TypeSet is a JSON Schema "type" keyword, which may be a string or a list.
type TypeSet []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeSet) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TypeSet{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	*t = list
	return nil
}

// Has reports whether the set contains typ.
func (t TypeSet) Has(typ string) bool {
	for _, s := range t {
		if s == typ {
			return true
		}
	}
	return false
}
