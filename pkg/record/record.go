// Package record defines the nested field tree edited by form sessions and
// the path-addressed accessors used to read and write it without mutation.
package record

import (
	"reflect"
	"strings"
)

// Record is an arbitrarily deep tree of named fields. Leaf values are strings,
// numbers, booleans, or nil; interior nodes are nested Records. Field values
// may be absent prior to first edit.
type Record map[string]any

// PathSeparator joins field names into a dotted path.
const PathSeparator = "."

// SplitPath returns the individual field names of a dotted path.
func SplitPath(path string) []string {
	return strings.Split(path, PathSeparator)
}

// JoinPath builds a dotted path from field names.
func JoinPath(names ...string) string {
	return strings.Join(names, PathSeparator)
}

// Get reads the value at a dotted path. Missing intermediate nodes yield
// ok=false rather than an error.
func Get(r Record, path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	names := SplitPath(path)
	current := r
	for i, name := range names {
		value, ok := current[name]
		if !ok {
			return nil, false
		}
		if i == len(names)-1 {
			return value, true
		}
		sub, ok := value.(Record)
		if !ok {
			if m, isMap := value.(map[string]any); isMap {
				sub = Record(m)
			} else {
				return nil, false
			}
		}
		current = sub
	}
	return nil, false
}

// GetString reads the value at path coerced to a string. Non-string leaves
// and missing paths yield the empty string.
func GetString(r Record, path string) string {
	value, ok := Get(r, path)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// Set returns a new record with the leaf at path replaced. Every ancestor
// along the path is shallow-copied so untouched branches are shared with the
// input, which is never mutated. Missing intermediate nodes are created as
// empty sub-records.
func Set(r Record, path string, value any) Record {
	if path == "" {
		return r
	}
	return setNames(r, SplitPath(path), value)
}

func setNames(r Record, names []string, value any) Record {
	copied := make(Record, len(r)+1)
	for k, v := range r {
		copied[k] = v
	}
	name := names[0]
	if len(names) == 1 {
		copied[name] = value
		return copied
	}
	var child Record
	switch existing := copied[name].(type) {
	case Record:
		child = existing
	case map[string]any:
		child = Record(existing)
	default:
		child = Record{}
	}
	copied[name] = setNames(child, names[1:], value)
	return copied
}

// Clone returns a deep copy of the record. Nested maps are copied; leaf
// values are shared (leaves are immutable scalars).
func Clone(r Record) Record {
	if r == nil {
		return nil
	}
	copied := make(Record, len(r))
	for k, v := range r {
		switch sub := v.(type) {
		case Record:
			copied[k] = Clone(sub)
		case map[string]any:
			copied[k] = Clone(Record(sub))
		default:
			copied[k] = v
		}
	}
	return copied
}

// Equal reports deep structural equality of two records.
func Equal(a, b Record) bool {
	return reflect.DeepEqual(a, b)
}
