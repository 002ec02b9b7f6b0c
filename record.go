package esm

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// lookupPrefixes are the table names tried, in order, when a field is not
// found under its bare name. Event columns come back qualified, so
// Lookup("LastTime") finds "Alert.LastTime".
var lookupPrefixes = []string{
	"",
	"Alert.",
	"Rule.",
	"Action.",
	"ThirdPartyType.",
	"GeoLoc_src.",
	"GeoLoc_dst.",
}

// Record is one appliance entity: an event, alarm, datasource or watchlist.
// Fields keep their insertion order. List valued fields holding objects are
// wrapped as nested Collections.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from m. Keys are ordered alphabetically since a
// Go map carries no order; use Set to control order.
func NewRecord(m map[string]any) *Record {
	r := &Record{values: make(map[string]any, len(m))}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Set adds or replaces a field. New fields are appended.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = wrapValue(value)
}

// Get returns the value stored under key exactly.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Lookup returns the value for field, trying the bare name first and then
// each known table prefix.
func (r *Record) Lookup(field string) (any, bool) {
	for _, prefix := range lookupPrefixes {
		if v, ok := r.Get(prefix + field); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the looked up field formatted as text, or "" when absent.
func (r *Record) String(field string) string {
	v, ok := r.Lookup(field)
	if !ok {
		return ""
	}
	return formatValue(v)
}

// ID returns the first present identifier field formatted as text.
func (r *Record) ID(fields ...string) string {
	for _, f := range fields {
		if v, ok := r.Lookup(f); ok {
			if m, isMap := v.(map[string]any); isMap {
				if inner, ok := m["value"]; ok {
					return formatValue(inner)
				}
				if inner, ok := m["id"]; ok {
					return formatValue(inner)
				}
			}
			return formatValue(v)
		}
	}
	return ""
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Delete removes a field.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
}

// Merge copies every field of other into r, replacing existing values.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		r.Set(k, cloneValue(other.values[k]))
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   slices.Clone(r.keys),
		values: make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

// Map returns the record as plain nested maps and slices.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = plainValue(v)
	}
	return out
}

// MarshalJSON encodes the record as an object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// wrapValue turns list values whose elements are all objects or lists into a
// nested Collection. Anything else is stored as is.
func wrapValue(v any) any {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return v
	}
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any, *Record, *Collection:
		default:
			return v
		}
	}
	coll, err := NewCollection(items...)
	if err != nil {
		return v
	}
	return coll
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Clone()
	case *Collection:
		return t.clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Map()
	case *Collection:
		return t.Plain()
	default:
		return v
	}
}

// formatValue renders a field value as a single string.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case *Record, *Collection, map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
