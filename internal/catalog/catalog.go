// Package catalog maps symbolic ESM operation names to request builders.
//
// Each entry is a typed builder that produces the HTTP method, the endpoint
// (optionally carrying a query string) and a ready-to-encode body. Public
// dialect bodies are JSON values; private dialect bodies are ordered Pairs.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

// Sentinel errors returned by Build.
var (
	ErrUnknownRequest = errors.New("unknown request")
	ErrMissingParam   = errors.New("missing request parameter")
	ErrInvalidParam   = errors.New("invalid request parameter")
)

// Params are the caller-supplied values a builder reads from.
type Params map[string]any

// Value returns the raw value for key or ErrMissingParam.
func (p Params) Value(key string) (any, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

// String returns key as a string. Numbers are formatted in base 10.
func (p Params) String(key string) (string, error) {
	v, err := p.Value(key)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T, want string", ErrInvalidParam, key, v)
	}
}

// StringOr returns key as a string, or def when the key is absent.
func (p Params) StringOr(key, def string) string {
	s, err := p.String(key)
	if err != nil {
		return def
	}
	return s
}

// Int returns key as an int.
func (p Params) Int(key string) (int, error) {
	v, err := p.Value(key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParam, key, err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParam, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T, want int", ErrInvalidParam, key, v)
	}
}

// IntOr returns key as an int, or def when the key is absent or malformed.
func (p Params) IntOr(key string, def int) int {
	n, err := p.Int(key)
	if err != nil {
		return def
	}
	return n
}

// Strings returns key as a string slice.
func (p Params) Strings(key string) ([]string, error) {
	v, err := p.Value(key)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T, want []string", ErrInvalidParam, key, v)
	}
}

// Pair is one key/value field of a private dialect request.
type Pair struct {
	Key   string
	Value string
}

// Call is a fully built request, ready for the transport.
type Call struct {
	Method   string
	Endpoint string
	Body     any
}

// Command returns the endpoint without its query string.
func (c Call) Command() string {
	cmd, _, _ := strings.Cut(c.Endpoint, "?")
	return cmd
}

// Private reports whether the call targets the private dialect. Private
// commands are spelled entirely in upper case.
func (c Call) Private() bool {
	return IsPrivateCommand(c.Command())
}

// Pairs returns the private dialect body, or nil for public calls.
func (c Call) Pairs() []Pair {
	pairs, _ := c.Body.([]Pair)
	return pairs
}

// IsPrivateCommand reports whether cmd is an all upper-case command name.
func IsPrivateCommand(cmd string) bool {
	hasLetter := false
	for _, r := range cmd {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// Builder turns caller parameters into a Call.
type Builder func(Params) (Call, error)

// Catalog is a registry of named request builders.
type Catalog struct {
	builders map[string]Builder
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{builders: make(map[string]Builder)}
}

// Register adds or replaces the builder for name.
func (c *Catalog) Register(name string, b Builder) {
	c.builders[name] = b
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.builders[name]
	return ok
}

// Names returns the registered request names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.builders))
	for name := range c.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build resolves name and runs its builder against params.
func (c *Catalog) Build(name string, params Params) (Call, error) {
	b, ok := c.builders[name]
	if !ok {
		return Call{}, fmt.Errorf("%w: %q", ErrUnknownRequest, name)
	}
	if params == nil {
		params = Params{}
	}
	call, err := b(params)
	if err != nil {
		return Call{}, fmt.Errorf("building %s: %w", name, err)
	}
	if call.Method == "" {
		call.Method = "POST"
	}
	return call, nil
}
