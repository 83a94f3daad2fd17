package schemas

import (
	"encoding/json"
	"sort"
)

// Schema type tags. Object and array nodes are containers, everything else
// is a leaf. Leaf tags beyond "sample" are opaque to the walker.
const (
	TypeObject   = "object"
	TypeArray    = "array"
	TypeSample   = "sample"
	TypeText     = "text"
	TypeBool     = "bool"
	TypeQuantity = "quantity"
	TypeDatetime = "datetime"
	TypeTags     = "tags"
)

// Schema describes the shape of an object's data. It mirrors the JSON
// descriptor stored alongside every object version.
type Schema struct {
	Type          string             `json:"type"`
	Title         string             `json:"title,omitempty"`
	Properties    map[string]*Schema `json:"properties,omitempty"`
	PropertyOrder []string           `json:"propertyOrder,omitempty"`
	Required      []string           `json:"required,omitempty"`
	Items         *Schema            `json:"items,omitempty"`
}

// Parse decodes a JSON schema descriptor.
func Parse(raw []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// orderedPropertyNames returns the schema's property names, honoring
// propertyOrder for the names it lists and appending the remaining declared
// properties in sorted order. Enumeration stays deterministic either way.
func (s *Schema) orderedPropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
