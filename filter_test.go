package esm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm"
)

func TestParseFilters(t *testing.T) {
	t.Run("tuple and one element list are equal", func(t *testing.T) {
		single, err := esm.ParseFilters(esm.F("SrcIP", "10.1.1.1"))
		require.NoError(t, err)
		list, err := esm.ParseFilters([]esm.FilterTuple{esm.F("SrcIP", "10.1.1.1")})
		require.NoError(t, err)
		mixed, err := esm.ParseFilters([]any{esm.F("SrcIP", "10.1.1.1")})
		require.NoError(t, err)

		assert.Equal(t, single, list)
		assert.Equal(t, single, mixed)
		require.Len(t, single, 1)
		assert.Equal(t, esm.NewFieldFilter("SrcIP", "10.1.1.1"), single[0])
	})

	t.Run("nil yields default", func(t *testing.T) {
		got, err := esm.ParseFilters(nil)
		require.NoError(t, err)
		assert.Equal(t, []esm.Filter{esm.DefaultFilter()}, got)

		got, err = esm.ParseFilters([]esm.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []esm.Filter{esm.DefaultFilter()}, got)
	})

	t.Run("filter values", func(t *testing.T) {
		group := esm.GroupFilter{Logic: esm.LogicOr, Filters: []esm.Filter{
			esm.NewFieldFilter("DstPort", "22"),
			esm.NewFieldFilter("DstPort", "3389"),
		}}
		got, err := esm.ParseFilters([]any{group, esm.F("Protocol", "tcp")})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, group, got[0])
	})

	t.Run("invalid operator", func(t *testing.T) {
		_, err := esm.ParseFilters(esm.FieldFilter{Field: "SrcIP", Operator: "LIKE", Values: esm.Basic("x")})
		var cfgErr *esm.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "filter operator", cfgErr.Field)
	})

	t.Run("invalid value type", func(t *testing.T) {
		_, err := esm.ParseFilters(esm.FieldFilter{
			Field:    "SrcIP",
			Operator: esm.OpIn,
			Values:   []esm.FilterValue{{Type: "EsmMagicValue", Value: "x"}},
		})
		var cfgErr *esm.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid group logic", func(t *testing.T) {
		_, err := esm.ParseFilters(esm.GroupFilter{Logic: "XOR"})
		var cfgErr *esm.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("unsupported specification", func(t *testing.T) {
		_, err := esm.ParseFilters("SrcIP=10.0.0.1")
		var cfgErr *esm.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)

		_, err = esm.ParseFilters([]any{42})
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestFieldFilter_Wire(t *testing.T) {
	f := esm.FieldFilter{
		Field:    "SrcIP",
		Operator: esm.OpNotIn,
		Values: []esm.FilterValue{
			esm.Basic("10.0.0.1")[0],
			esm.Watchlist("12"),
			esm.Variable("$HOME_NET"),
			esm.Compound(esm.Basic("a", "b")...),
		},
	}

	assert.Equal(t, map[string]any{
		"type":     "EsmFieldFilter",
		"field":    map[string]any{"name": "SrcIP"},
		"operator": "NOT_IN",
		"values": []any{
			map[string]any{"type": "EsmBasicValue", "value": "10.0.0.1"},
			map[string]any{"type": "EsmWatchlistValue", "watchlist": map[string]any{"value": "12"}},
			map[string]any{"type": "EsmVariableValue", "variable": "$HOME_NET"},
			map[string]any{"type": "EsmCompoundValue", "values": []any{
				map[string]any{"type": "EsmBasicValue", "value": "a"},
				map[string]any{"type": "EsmBasicValue", "value": "b"},
			}},
		},
	}, f.Wire())
}

func TestGroupFilter_Wire(t *testing.T) {
	g := esm.GroupFilter{Logic: esm.LogicAnd, Filters: []esm.Filter{esm.NewFieldFilter("DstPort", "443")}}

	wire := g.Wire()
	assert.Equal(t, "EsmFilterGroup", wire["type"])
	assert.Equal(t, "AND", wire["logic"])
	require.Len(t, wire["filters"], 1)
}

func TestDefaultFilter(t *testing.T) {
	f := esm.DefaultFilter()
	assert.Equal(t, "SrcIP", f.Field)
	assert.Equal(t, esm.OpIn, f.Operator)
	assert.Equal(t, esm.Basic("0.0.0.0/0"), f.Values)
	assert.NoError(t, f.Validate())
}

func TestOperators(t *testing.T) {
	ops := []esm.Operator{
		esm.OpIn, esm.OpNotIn, esm.OpGreaterThan, esm.OpLessThan, esm.OpGreaterOrEquals,
		esm.OpLessOrEquals, esm.OpNumericEquals, esm.OpNumericNotEquals, esm.OpDoesNotEqual,
		esm.OpEquals, esm.OpContains, esm.OpDoesNotContain, esm.OpRegex,
	}
	for _, op := range ops {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, esm.Operator("LIKE").Valid())
}
