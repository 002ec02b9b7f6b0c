package esm

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Operator compares a field against filter values.
type Operator string

// Filter operators accepted by the appliance.
const (
	OpIn               Operator = "IN"
	OpNotIn            Operator = "NOT_IN"
	OpGreaterThan      Operator = "GREATER_THAN"
	OpLessThan         Operator = "LESS_THAN"
	OpGreaterOrEquals  Operator = "GREATER_OR_EQUALS_THAN"
	OpLessOrEquals     Operator = "LESS_OR_EQUALS_THAN"
	OpNumericEquals    Operator = "NUMERIC_EQUALS"
	OpNumericNotEquals Operator = "NUMERIC_NOT_EQUALS"
	OpDoesNotEqual     Operator = "DOES_NOT_EQUAL"
	OpEquals           Operator = "EQUALS"
	OpContains         Operator = "CONTAINS"
	OpDoesNotContain   Operator = "DOES_NOT_CONTAIN"
	OpRegex            Operator = "REGEX"
)

var operators = []Operator{
	OpIn, OpNotIn, OpGreaterThan, OpLessThan, OpGreaterOrEquals, OpLessOrEquals,
	OpNumericEquals, OpNumericNotEquals, OpDoesNotEqual, OpEquals, OpContains,
	OpDoesNotContain, OpRegex,
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	return slices.Contains(operators, op)
}

// ValueType tags a filter value.
type ValueType string

// Filter value types.
const (
	BasicValue     ValueType = "EsmBasicValue"
	WatchlistValue ValueType = "EsmWatchlistValue"
	VariableValue  ValueType = "EsmVariableValue"
	CompoundValue  ValueType = "EsmCompoundValue"
)

var valueTypes = []ValueType{BasicValue, WatchlistValue, VariableValue, CompoundValue}

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	return slices.Contains(valueTypes, t)
}

// Logic joins the members of a GroupFilter.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// FilterValue is one typed operand. Value holds the literal, watchlist id or
// variable name; Values holds the members of a compound value.
type FilterValue struct {
	Type   ValueType
	Value  string
	Values []FilterValue
}

// Basic returns basic values for each literal.
func Basic(values ...string) []FilterValue {
	out := make([]FilterValue, len(values))
	for i, v := range values {
		out[i] = FilterValue{Type: BasicValue, Value: v}
	}
	return out
}

// Watchlist returns a value matching the members of watchlist id.
func Watchlist(id string) FilterValue {
	return FilterValue{Type: WatchlistValue, Value: id}
}

// Variable returns a value referencing an appliance variable.
func Variable(name string) FilterValue {
	return FilterValue{Type: VariableValue, Value: name}
}

// Compound returns a value grouping several values.
func Compound(values ...FilterValue) FilterValue {
	return FilterValue{Type: CompoundValue, Values: values}
}

func (v FilterValue) validate() error {
	if !v.Type.Valid() {
		return configErr("filter value type", "unknown type %q", string(v.Type))
	}
	for _, inner := range v.Values {
		if err := inner.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (v FilterValue) wire() map[string]any {
	switch v.Type {
	case WatchlistValue:
		return map[string]any{"type": string(v.Type), "watchlist": map[string]any{"value": v.Value}}
	case VariableValue:
		return map[string]any{"type": string(v.Type), "variable": v.Value}
	case CompoundValue:
		values := make([]any, len(v.Values))
		for i, inner := range v.Values {
			values[i] = inner.wire()
		}
		return map[string]any{"type": string(v.Type), "values": values}
	default:
		return map[string]any{"type": string(BasicValue), "value": v.Value}
	}
}

// Filter is a FieldFilter or a GroupFilter.
type Filter interface {
	// Validate checks operators and value types.
	Validate() error
	// Wire returns the appliance JSON shape.
	Wire() map[string]any

	isFilter()
}

// FieldFilter matches one field against values.
type FieldFilter struct {
	Field    string
	Operator Operator
	Values   []FilterValue
}

// NewFieldFilter returns an IN filter on basic values.
func NewFieldFilter(field string, values ...string) FieldFilter {
	return FieldFilter{Field: field, Operator: OpIn, Values: Basic(values...)}
}

func (FieldFilter) isFilter() {}

// Validate checks the field, operator and value types.
func (f FieldFilter) Validate() error {
	if strings.TrimSpace(f.Field) == "" {
		return configErr("filter field", "empty field name")
	}
	if !f.Operator.Valid() {
		return configErr("filter operator", "unknown operator %q", string(f.Operator))
	}
	for _, v := range f.Values {
		if err := v.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Wire returns the EsmFieldFilter shape.
func (f FieldFilter) Wire() map[string]any {
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		values[i] = v.wire()
	}
	return map[string]any{
		"type":     "EsmFieldFilter",
		"field":    map[string]any{"name": f.Field},
		"operator": string(f.Operator),
		"values":   values,
	}
}

// GroupFilter joins nested filters with AND or OR.
type GroupFilter struct {
	Logic   Logic
	Filters []Filter
}

func (GroupFilter) isFilter() {}

// Validate checks the logic and every nested filter.
func (g GroupFilter) Validate() error {
	if g.Logic != LogicAnd && g.Logic != LogicOr {
		return configErr("filter logic", "unknown logic %q", string(g.Logic))
	}
	for _, f := range g.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Wire returns the EsmFilterGroup shape.
func (g GroupFilter) Wire() map[string]any {
	filters := make([]any, len(g.Filters))
	for i, f := range g.Filters {
		filters[i] = f.Wire()
	}
	return map[string]any{
		"type":    "EsmFilterGroup",
		"filters": filters,
		"logic":   string(g.Logic),
	}
}

// DefaultFilter matches every event: any source address. The appliance
// rejects queries without at least one filter node.
func DefaultFilter() FieldFilter {
	return NewFieldFilter("SrcIP", "0.0.0.0/0")
}

// FilterTuple is the short form of an IN filter: a field and its literals.
type FilterTuple struct {
	Field  string
	Values []string
}

// F is shorthand for a FilterTuple.
func F(field string, values ...string) FilterTuple {
	return FilterTuple{Field: field, Values: values}
}

// ParseFilters normalizes a filter specification. It accepts nil, a
// FilterTuple, a Filter, or a slice of either ([]FilterTuple, []Filter,
// []any). A single tuple and a one-element list yield the same result. nil
// yields the default match-all filter.
func ParseFilters(spec any) ([]Filter, error) {
	switch t := spec.(type) {
	case nil:
		return []Filter{DefaultFilter()}, nil
	case FilterTuple:
		return normalize([]any{t})
	case Filter:
		return normalize([]any{t})
	case []FilterTuple:
		items := make([]any, len(t))
		for i, v := range t {
			items[i] = v
		}
		return normalize(items)
	case []Filter:
		items := make([]any, len(t))
		for i, v := range t {
			items[i] = v
		}
		return normalize(items)
	case []any:
		return normalize(t)
	default:
		return nil, configErr("filters", "unsupported filter specification %T", spec)
	}
}

func normalize(items []any) ([]Filter, error) {
	if len(items) == 0 {
		return []Filter{DefaultFilter()}, nil
	}
	out := make([]Filter, 0, len(items))
	for _, item := range items {
		var f Filter
		switch t := item.(type) {
		case FilterTuple:
			f = NewFieldFilter(t.Field, t.Values...)
		case Filter:
			f = t
		default:
			return nil, configErr("filters", "unsupported filter element %T", item)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// composeFilters returns the wire form of filters, substituting the default
// filter for an empty list.
func composeFilters(filters []Filter) ([]any, error) {
	if len(filters) == 0 {
		filters = []Filter{DefaultFilter()}
	}
	out := make([]any, len(filters))
	for i, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		out[i] = f.Wire()
	}
	return out, nil
}

// matchFilters evaluates filters locally against a record, joined by AND.
// Watchlist and variable values cannot be resolved client side and always
// match.
func matchFilters(r *Record, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchFilter(r, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchFilter(r *Record, f Filter) (bool, error) {
	switch t := f.(type) {
	case FieldFilter:
		return matchField(r, t)
	case GroupFilter:
		for _, inner := range t.Filters {
			ok, err := matchFilter(r, inner)
			if err != nil {
				return false, err
			}
			if t.Logic == LogicOr && ok {
				return true, nil
			}
			if t.Logic == LogicAnd && !ok {
				return false, nil
			}
		}
		return t.Logic == LogicAnd, nil
	default:
		return false, configErr("filters", "unsupported filter %T", f)
	}
}

func matchField(r *Record, f FieldFilter) (bool, error) {
	if isDefaultFilter(f) {
		return true, nil
	}
	field := r.String(f.Field)

	literals := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		if v.Type != BasicValue {
			return true, nil
		}
		literals = append(literals, v.Value)
	}

	switch f.Operator {
	case OpIn, OpEquals:
		return slices.Contains(literals, field), nil
	case OpNotIn, OpDoesNotEqual:
		return !slices.Contains(literals, field), nil
	case OpContains:
		return slices.ContainsFunc(literals, func(l string) bool { return strings.Contains(field, l) }), nil
	case OpDoesNotContain:
		return !slices.ContainsFunc(literals, func(l string) bool { return strings.Contains(field, l) }), nil
	case OpRegex:
		for _, l := range literals {
			re, err := regexp.Compile(l)
			if err != nil {
				return false, configErr("filter value", "%q: %v", l, err)
			}
			if re.MatchString(field) {
				return true, nil
			}
		}
		return false, nil
	default:
		return matchNumeric(field, f.Operator, literals)
	}
}

func isDefaultFilter(f FieldFilter) bool {
	d := DefaultFilter()
	return f.Field == d.Field && f.Operator == d.Operator && len(f.Values) == 1 &&
		f.Values[0].Type == BasicValue && f.Values[0].Value == d.Values[0].Value
}

func matchNumeric(field string, op Operator, literals []string) (bool, error) {
	x, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return false, nil
	}
	for _, l := range literals {
		y, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return false, configErr("filter value", "%q is not numeric", l)
		}
		var ok bool
		switch op {
		case OpGreaterThan:
			ok = x > y
		case OpLessThan:
			ok = x < y
		case OpGreaterOrEquals:
			ok = x >= y
		case OpLessOrEquals:
			ok = x <= y
		case OpNumericEquals:
			ok = x == y
		case OpNumericNotEquals:
			ok = x != y
		default:
			return false, fmt.Errorf("unhandled operator %s", op)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
