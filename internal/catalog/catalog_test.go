package catalog_test

import (
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm/internal/catalog"
)

func TestIsPrivateCommand(t *testing.T) {
	assert.True(t, catalog.IsPrivateCommand("MISC_READFILE"))
	assert.True(t, catalog.IsPrivateCommand("GRP_GETVIRTUALGROUPIPSLISTDATA"))
	assert.False(t, catalog.IsPrivateCommand("qryGetStatus"))
	assert.False(t, catalog.IsPrivateCommand("login"))
	assert.False(t, catalog.IsPrivateCommand("_123"))
	assert.False(t, catalog.IsPrivateCommand(""))
}

func TestCatalog_Build(t *testing.T) {
	c := catalog.Default()

	t.Run("unknown request", func(t *testing.T) {
		_, err := c.Build("nope", nil)
		require.ErrorIs(t, err, catalog.ErrUnknownRequest)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := c.Build(catalog.Login, catalog.Params{"username": "dXNlcg=="})
		require.ErrorIs(t, err, catalog.ErrMissingParam)
	})

	t.Run("login body", func(t *testing.T) {
		call, err := c.Build(catalog.Login, catalog.Params{"username": "dXNlcg==", "password": "cGFzcw=="})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, call.Method)
		assert.Equal(t, "login", call.Endpoint)
		assert.False(t, call.Private())

		body, ok := call.Body.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "dXNlcg==", body["username"])
		assert.Equal(t, "cGFzcw==", body["password"])
	})

	t.Run("logout uses DELETE", func(t *testing.T) {
		call, err := c.Build(catalog.Logout, nil)
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, call.Method)
	})

	t.Run("private call carries ordered pairs", func(t *testing.T) {
		call, err := c.Build(catalog.ReadFile, catalog.Params{"file": "tok", "offset": 10, "nbytes": 20})
		require.NoError(t, err)
		assert.True(t, call.Private())
		assert.Equal(t, []catalog.Pair{
			{Key: "FNAME", Value: "tok"},
			{Key: "SPLIT", Value: "false"},
			{Key: "OFFSET", Value: "10"},
			{Key: "NBYTES", Value: "20"},
		}, call.Pairs())
	})

	t.Run("query results endpoint", func(t *testing.T) {
		call, err := c.Build(catalog.QueryResults, catalog.Params{"result_id": 42, "num_rows": 100})
		require.NoError(t, err)
		assert.Equal(t, "qryGetResults", call.Command())
		assert.Contains(t, call.Endpoint, "numRows=100")
		assert.Contains(t, call.Endpoint, "startPos=0")
	})

	t.Run("values containing quotes are encoded safely", func(t *testing.T) {
		call, err := c.Build(catalog.AddWatchlistVals, catalog.Params{
			"id":     "7",
			"values": []string{`a"b`, `{"x":1}`},
		})
		require.NoError(t, err)
		data, err := json.Marshal(call.Body)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, []any{`a"b`, `{"x":1}`}, decoded["values"])
	})
}

func TestCatalog_VersionBranching(t *testing.T) {
	c := catalog.Default()

	t.Run("v1 alarm acknowledge", func(t *testing.T) {
		call, err := c.Build(catalog.AckAlarms, catalog.Params{"ids": []string{"1", "2"}, catalog.APIVersionParam: 1})
		require.NoError(t, err)
		body := call.Body.(map[string]any)
		assert.Equal(t, map[string]any{"alarmIdList": []string{"1", "2"}}, body["triggeredIds"])
	})

	t.Run("v2 alarm acknowledge", func(t *testing.T) {
		call, err := c.Build(catalog.AckAlarms, catalog.Params{"ids": []string{"1"}, catalog.APIVersionParam: 2})
		require.NoError(t, err)
		body := call.Body.(map[string]any)
		assert.Equal(t, []string{"1"}, body["triggeredIds"])
	})

	t.Run("v1 datasource add", func(t *testing.T) {
		call, err := c.Build(catalog.AddDatasource, catalog.Params{
			"parent_id":              "144",
			"datasource":             map[string]any{"name": "fw"},
			catalog.APIVersionParam: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, "dsAddDataSource", call.Endpoint)
	})

	t.Run("v2 datasource add", func(t *testing.T) {
		call, err := c.Build(catalog.AddDatasource, catalog.Params{
			"parent_id":  "144",
			"datasource": map[string]any{"name": "fw"},
		})
		require.NoError(t, err)
		assert.Equal(t, "dsAddDataSources", call.Endpoint)
	})
}

func TestParams(t *testing.T) {
	p := catalog.Params{
		"s":   "x",
		"n":   json.Number("12"),
		"i":   3,
		"str": "7",
		"any": []any{"a", 1},
	}

	s, err := p.String("n")
	require.NoError(t, err)
	assert.Equal(t, "12", s)

	n, err := p.Int("str")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	vals, err := p.Strings("any")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "1"}, vals)

	assert.Equal(t, "def", p.StringOr("missing", "def"))
	assert.Equal(t, 9, p.IntOr("s", 9))

	_, err = p.Int("s")
	require.ErrorIs(t, err, catalog.ErrInvalidParam)
}

func TestCatalog_Names(t *testing.T) {
	c := catalog.New()
	c.Register("b", func(catalog.Params) (catalog.Call, error) { return catalog.Call{Endpoint: "b"}, nil })
	c.Register("a", func(catalog.Params) (catalog.Call, error) { return catalog.Call{Endpoint: "a"}, nil })
	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.True(t, c.Has("a"))

	call, err := c.Build("a", nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, call.Method)
}
