package esm_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm"
)

func TestNewRecord(t *testing.T) {
	r := esm.NewRecord(map[string]any{"name": "fw01", "id": 3, "enabled": true})

	assert.Equal(t, []string{"enabled", "id", "name"}, r.Keys())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "fw01", r.String("name"))
	assert.Equal(t, "3", r.String("id"))
	assert.Equal(t, "true", r.String("enabled"))
	assert.Empty(t, r.String("missing"))
}

func TestRecord_Set(t *testing.T) {
	r := esm.NewRecord(nil)
	r.Set("zeta", 1)
	r.Set("alpha", 2)
	r.Set("zeta", 3)

	assert.Equal(t, []string{"zeta", "alpha"}, r.Keys())
	v, ok := r.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":3,"alpha":2}`, string(data), "fields keep insertion order")
}

func TestRecord_Lookup(t *testing.T) {
	r := esm.NewRecord(map[string]any{
		"Alert.LastTime":   "2024-03-01 10:00:00",
		"Rule.msg":         "Port scan",
		"GeoLoc_src.City":  "Oslo",
		"SrcIP":            "10.0.0.1",
		"Alert.SrcIP":      "10.0.0.2",
		"ThirdPartyType.x": "y",
	})

	tests := []struct {
		field string
		want  string
	}{
		{"LastTime", "2024-03-01 10:00:00"},
		{"msg", "Port scan"},
		{"City", "Oslo"},
		{"x", "y"},
		// The bare name wins over prefixed names.
		{"SrcIP", "10.0.0.1"},
		{"Alert.SrcIP", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, r.String(tt.field))
		})
	}

	_, ok := r.Lookup("DstIP")
	assert.False(t, ok)
}

func TestRecord_ID(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		fields []string
		want   string
	}{
		{"plain", map[string]any{"id": "144115188075855872"}, []string{"id"}, "144115188075855872"},
		{"json number", map[string]any{"id": json.Number("42")}, []string{"id"}, "42"},
		{"value wrapper", map[string]any{"id": map[string]any{"value": 12}}, []string{"id"}, "12"},
		{"id wrapper", map[string]any{"ds": map[string]any{"id": "ds-1"}}, []string{"ds"}, "ds-1"},
		{"fallback field", map[string]any{"alarmId": 7}, []string{"id", "alarmId"}, "7"},
		{"prefixed", map[string]any{"Alert.IPSIDAlertID": "144|99"}, []string{"IPSIDAlertID"}, "144|99"},
		{"missing", map[string]any{"name": "x"}, []string{"id"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, esm.NewRecord(tt.record).ID(tt.fields...))
		})
	}
}

func TestRecord_NestedCollections(t *testing.T) {
	r := esm.NewRecord(map[string]any{
		"events": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		},
		"tags": []any{"a", "b"},
	})

	events, ok := r.Get("events")
	require.True(t, ok)
	coll, ok := events.(*esm.Collection)
	require.True(t, ok, "list of objects should be wrapped")
	assert.Equal(t, 2, coll.Len())

	tags, _ := r.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags, "list of scalars stays a slice")

	m := r.Map()
	assert.Equal(t, []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}}, m["events"])
}

func TestRecord_Clone(t *testing.T) {
	orig := esm.NewRecord(map[string]any{
		"meta":   map[string]any{"severity": 50},
		"events": []any{map[string]any{"id": "1"}},
	})
	clone := orig.Clone()

	clone.Set("name", "changed")
	meta, _ := clone.Get("meta")
	meta.(map[string]any)["severity"] = 99
	events, _ := clone.Get("events")
	events.(*esm.Collection).Records()[0].Set("id", "x")

	assert.Equal(t, 2, orig.Len())
	origMeta, _ := orig.Get("meta")
	assert.Equal(t, 50, origMeta.(map[string]any)["severity"])
	origEvents, _ := orig.Get("events")
	assert.Equal(t, "1", origEvents.(*esm.Collection).Records()[0].String("id"))
}

func TestRecord_MergeAndDelete(t *testing.T) {
	r := esm.NewRecord(map[string]any{"id": "1", "name": "old"})
	r.Merge(esm.NewRecord(map[string]any{"name": "new", "severity": 80}))

	assert.Equal(t, []string{"id", "name", "severity"}, r.Keys())
	assert.Equal(t, "new", r.String("name"))

	r.Delete("name")
	r.Delete("missing")
	assert.Equal(t, []string{"id", "severity"}, r.Keys())

	r.Merge(nil)
	assert.Equal(t, 2, r.Len())
}
