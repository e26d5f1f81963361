package hydrate

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidShape is returned when a dynamic fetch shape cannot be parsed.
var ErrInvalidShape = errors.New("invalid fetch shape")

// Kind is the cardinality of a fetched relation.
type Kind int

const (
	// One attaches a single related record.
	One Kind = iota
	// Many attaches an ordered list of related records.
	Many
)

func (k Kind) String() string {
	if k == Many {
		return "many"
	}
	return "one"
}

// Shape describes one relation to attach and its own nested relations.
type Shape struct {
	Kind  Kind
	Fetch Fetch
}

// Fetch maps aliases to the relations attached under them.
type Fetch map[string]Shape

// OneOf returns a singular relation shape.
func OneOf(nested Fetch) Shape { return Shape{Kind: One, Fetch: nested} }

// ManyOf returns a plural relation shape.
func ManyOf(nested Fetch) Shape { return Shape{Kind: Many, Fetch: nested} }

// Merge returns a new fetch with other's entries layered over f.
func (f Fetch) Merge(other Fetch) Fetch {
	if len(f) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Fetch, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Aliases returns the aliases of f, sorted.
func (f Fetch) Aliases() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseFetch converts a decoded JSON or YAML value into a Fetch. The value
// must be an object; each member is a string (one), an array of at most one
// element (many, element 0 being the nested shape) or an object (one, with
// a nested shape).
func ParseFetch(v any) (Fetch, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := asObject(v)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidShape, v)
	}
	fetch := make(Fetch, len(m))
	for alias, raw := range m {
		shape, err := ParseShape(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", alias, err)
		}
		fetch[alias] = shape
	}
	return fetch, nil
}

// ParseShape converts one dynamic shape value.
func ParseShape(v any) (Shape, error) {
	switch t := v.(type) {
	case Shape:
		return t, nil
	case string, bool:
		return OneOf(nil), nil
	case []any:
		if len(t) > 1 {
			return Shape{}, fmt.Errorf("%w: plural relation takes at most one element, got %d", ErrInvalidShape, len(t))
		}
		if len(t) == 0 {
			return ManyOf(nil), nil
		}
		nested, err := parseNested(t[0])
		if err != nil {
			return Shape{}, err
		}
		return ManyOf(nested), nil
	default:
		if _, ok := asObject(v); ok {
			nested, err := ParseFetch(v)
			if err != nil {
				return Shape{}, err
			}
			return OneOf(nested), nil
		}
		return Shape{}, fmt.Errorf("%w: unsupported value %T", ErrInvalidShape, v)
	}
}

// parseNested reads the element of a plural shape: a string means no
// further nesting, an object is a nested fetch.
func parseNested(v any) (Fetch, error) {
	switch v.(type) {
	case string, bool, nil:
		return nil, nil
	}
	return ParseFetch(v)
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Fetch:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}
