package schemas

import "encoding/json"

// Path locates a value inside an object's data. Elements are property names
// (string) for object nodes and indexes (int) for array nodes.
type Path []any

// Resolve traverses data along the path. The second return value is false as
// soon as a key is missing or an index is out of range.
func (p Path) Resolve(data any) (any, bool) {
	node := data
	for _, elem := range p {
		switch key := elem.(type) {
		case string:
			m, ok := node.(map[string]any)
			if !ok {
				return nil, false
			}
			node, ok = m[key]
			if !ok {
				return nil, false
			}
		case int:
			items, ok := node.([]any)
			if !ok || key < 0 || key >= len(items) {
				return nil, false
			}
			node = items[key]
		default:
			return nil, false
		}
	}
	return node, true
}

// Property is a single leaf of an object's data together with its location
// and declared schema.
type Property struct {
	Path   Path
	Schema *Schema
	Value  any
}

// Enumerate lists every leaf property of data, paired with its path and the
// schema node that declares it. Object properties missing from the data are
// skipped, array elements are paired with the items schema. The schema and
// data are assumed structurally consistent; anything else is the caller's
// problem.
func Enumerate(schema *Schema, data any) []Property {
	var properties []Property
	enumerate(nil, schema, data, &properties)
	return properties
}

func enumerate(path Path, schema *Schema, data any, out *[]Property) {
	if schema == nil {
		return
	}
	switch schema.Type {
	case TypeObject:
		dataMap, _ := data.(map[string]any)
		for _, name := range schema.orderedPropertyNames() {
			value, ok := dataMap[name]
			if !ok {
				continue
			}
			enumerate(appendPath(path, name), schema.Properties[name], value, out)
		}
	case TypeArray:
		items, _ := data.([]any)
		for index, item := range items {
			enumerate(appendPath(path, index), schema.Items, item, out)
		}
	default:
		*out = append(*out, Property{Path: path, Schema: schema, Value: data})
	}
}

// appendPath copies before appending so yielded paths never alias each other.
func appendPath(path Path, elem any) Path {
	next := make(Path, len(path), len(path)+1)
	copy(next, path)
	return append(next, elem)
}

// SampleRef extracts the referenced object id from a sample leaf value.
// A sample value is either nil or {"object_id": <id>}, where the id may be
// nil as well. The second return value is false when no reference is set.
func SampleRef(value any) (int64, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return 0, false
	}
	raw, ok := m["object_id"]
	if !ok || raw == nil {
		return 0, false
	}
	switch id := raw.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
