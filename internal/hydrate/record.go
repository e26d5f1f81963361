package hydrate

import (
	"bytes"
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Record is a materialized row: named fields in insertion order, a loaded
// marker, and for keyless entities a snapshot of the last known column values.
type Record struct {
	fields   map[string]any
	order    []string
	loaded   bool
	snapshot map[string]any
}

// NewRecord builds an unloaded record from field values.
func NewRecord(values map[string]any) *Record {
	r := &Record{fields: make(map[string]any, len(values))}
	for _, k := range sortedKeys(values) {
		r.Set(k, values[k])
	}
	return r
}

// Get returns a field value and whether it is present.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Value returns a field value or nil.
func (r *Record) Value(field string) any {
	return r.fields[field]
}

// Has reports whether the field is present, even when nil.
func (r *Record) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Set stores a field value.
func (r *Record) Set(field string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[field]; !ok {
		r.order = append(r.order, field)
	}
	r.fields[field] = value
}

// Delete removes a field.
func (r *Record) Delete(field string) {
	if _, ok := r.fields[field]; !ok {
		return
	}
	delete(r.fields, field)
	for i, name := range r.order {
		if name == field {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Fields returns field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Loaded reports whether the record is known to exist in the database.
func (r *Record) Loaded() bool { return r.loaded }

// MarkLoaded sets the loaded marker.
func (r *Record) MarkLoaded(loaded bool) { r.loaded = loaded }

// Snapshot returns the last known column values of a keyless record, keyed
// by column name, or nil.
func (r *Record) Snapshot() map[string]any { return r.snapshot }

// SetSnapshot replaces the keyless snapshot with a deep copy of values.
func (r *Record) SetSnapshot(values map[string]any) {
	if values == nil {
		r.snapshot = nil
		return
	}
	r.snapshot = deepCopyMap(values)
}

// One returns a singular relation attached under field.
func (r *Record) One(field string) *Record {
	child, _ := r.fields[field].(*Record)
	return child
}

// Many returns a plural relation attached under field.
func (r *Record) Many(field string) []*Record {
	children, _ := r.fields[field].([]*Record)
	return children
}

// Map returns the fields as plain maps, converting attached relations. A
// record reached again through its own relations renders as nil.
func (r *Record) Map() map[string]any {
	return r.plainMap(map[*Record]bool{})
}

func (r *Record) plainMap(path map[*Record]bool) map[string]any {
	path[r] = true
	defer delete(path, r)
	out := make(map[string]any, len(r.fields))
	for _, k := range r.order {
		out[k] = plain(r.fields[k], path)
	}
	return out
}

func plain(v any, path map[*Record]bool) any {
	switch t := v.(type) {
	case *Record:
		if t == nil || path[t] {
			return nil
		}
		return t.plainMap(path)
	case []*Record:
		out := make([]any, len(t))
		for i, child := range t {
			if child != nil && !path[child] {
				out[i] = child.plainMap(path)
			}
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes fields in insertion order. Cycles encode as null,
// like Map.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf, map[*Record]bool{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) writeJSON(buf *bytes.Buffer, path map[*Record]bool) error {
	path[r] = true
	defer delete(path, r)
	buf.WriteByte('{')
	for i, k := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeJSONValue(buf, r.fields[k], path); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v any, path map[*Record]bool) error {
	switch t := v.(type) {
	case *Record:
		if t == nil || path[t] {
			buf.WriteString("null")
			return nil
		}
		return t.writeJSON(buf, path)
	case []*Record:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i, child := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONValue(buf, child, path); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(val)
	return nil
}

// Decode copies fields into out, a pointer to a struct or map. Struct fields
// match field names case-insensitively or by their json tag.
func (r *Record) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(r.Map())
}
