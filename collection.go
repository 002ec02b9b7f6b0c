package esm

import (
	"bytes"
	"iter"
	"regexp"

	"github.com/goccy/go-json"
)

// Collection is an ordered list of Records and nested Collections. It is the
// result type of every query and listing.
type Collection struct {
	items []any
}

// NewCollection builds a collection. Items may be *Record, *Collection,
// map[string]any (wrapped as a Record) or []any (wrapped as a nested
// Collection). Any other type is a ConfigurationError.
func NewCollection(items ...any) (*Collection, error) {
	c := &Collection{items: make([]any, 0, len(items))}
	for _, item := range items {
		if err := c.Append(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newRecordCollection(records []*Record) *Collection {
	c := &Collection{items: make([]any, len(records))}
	for i, r := range records {
		c.items[i] = r
	}
	return c
}

// Append adds one item; see NewCollection for accepted types.
func (c *Collection) Append(item any) error {
	switch t := item.(type) {
	case *Record:
		if t == nil {
			return configErr("collection element", "nil record")
		}
		c.items = append(c.items, t)
	case *Collection:
		if t == nil {
			return configErr("collection element", "nil collection")
		}
		c.items = append(c.items, t)
	case map[string]any:
		c.items = append(c.items, NewRecord(t))
	case []any:
		nested, err := NewCollection(t...)
		if err != nil {
			return err
		}
		c.items = append(c.items, nested)
	default:
		return configErr("collection element", "unsupported type %T", item)
	}
	return nil
}

// Len returns the number of items.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// At returns item i: a *Record or a *Collection.
func (c *Collection) At(i int) any {
	return c.items[i]
}

// Records returns the record items, skipping nested collections.
func (c *Collection) Records() []*Record {
	if c == nil {
		return nil
	}
	out := make([]*Record, 0, len(c.items))
	for _, item := range c.items {
		if r, ok := item.(*Record); ok {
			out = append(out, r)
		}
	}
	return out
}

// All returns an iterator over the record items.
func (c *Collection) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		if c == nil {
			return
		}
		for i, item := range c.items {
			r, ok := item.(*Record)
			if !ok {
				continue
			}
			if !yield(i, r) {
				return
			}
		}
	}
}

// SearchOptions narrows Search.
type SearchOptions struct {
	// Fields restricts matching to these fields. Empty means every field
	// of each record.
	Fields []string
	// Invert keeps the items that do not match.
	Invert bool
}

// Search is SearchWith with default options.
func (c *Collection) Search(patterns ...string) (*Collection, error) {
	return c.SearchWith(SearchOptions{}, patterns...)
}

// SearchWith filters the collection with case-insensitive regular expressions.
// Patterns chain as a logical AND. Within one pattern an item matches when any
// of its fields matches. The source collection is not modified.
//
// Matching records are returned as deep copies. Nested collections are
// matched on their JSON text and returned as the same value, not a copy.
func (c *Collection) SearchWith(opts SearchOptions, patterns ...string) (*Collection, error) {
	regs := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, configErr("search pattern", "%q: %v", p, err)
		}
		regs = append(regs, re)
	}

	current := c.items
	for _, re := range regs {
		next := make([]any, 0, len(current))
		for _, item := range current {
			if matchItem(item, re, opts.Fields) != opts.Invert {
				next = append(next, item)
			}
		}
		current = next
	}

	out := &Collection{items: make([]any, len(current))}
	for i, item := range current {
		if r, ok := item.(*Record); ok {
			out.items[i] = r.Clone()
			continue
		}
		out.items[i] = item
	}
	return out, nil
}

func matchItem(item any, re *regexp.Regexp, fields []string) bool {
	r, ok := item.(*Record)
	if !ok {
		return re.MatchString(formatValue(item))
	}
	if len(fields) == 0 {
		fields = r.keys
	}
	for _, f := range fields {
		v, ok := r.Lookup(f)
		if !ok {
			continue
		}
		if re.MatchString(formatValue(v)) {
			return true
		}
	}
	return false
}

// Keys returns the sorted union of record field names.
func (c *Collection) Keys() []string {
	seen := make(map[string]struct{})
	for _, r := range c.Records() {
		for _, k := range r.keys {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Plain returns the items as plain maps and slices.
func (c *Collection) Plain() []any {
	out := make([]any, len(c.items))
	for i, item := range c.items {
		out[i] = plainValue(item)
	}
	return out
}

// JSON returns the collection as an indented JSON array.
func (c *Collection) JSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSON encodes the collection as an array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if c == nil || len(c.items) == 0 {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range c.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (c *Collection) clone() *Collection {
	out := &Collection{items: make([]any, len(c.items))}
	for i, item := range c.items {
		out.items[i] = cloneValue(item)
	}
	return out
}

// concat joins collections in order.
func concat(parts []*Collection) *Collection {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	out := &Collection{items: make([]any, 0, n)}
	for _, p := range parts {
		if p != nil {
			out.items = append(out.items, p.items...)
		}
	}
	return out
}
