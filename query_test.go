package esm_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm"
)

// fakeBackend answers each window with the rows returned by rows.
type fakeBackend struct {
	mu    sync.Mutex
	calls []esm.QueryParams
	rows  func(q esm.QueryParams) ([]*esm.Record, error)
}

func (b *fakeBackend) ComposeFilters(filters []esm.Filter) ([]any, error) {
	out := make([]any, len(filters))
	for i, f := range filters {
		out[i] = f.Wire()
	}
	return out, nil
}

func (b *fakeBackend) Execute(_ context.Context, q esm.QueryParams) ([]*esm.Record, error) {
	b.mu.Lock()
	b.calls = append(b.calls, q)
	b.mu.Unlock()
	return b.rows(q)
}

func (b *fakeBackend) executed() []esm.QueryParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]esm.QueryParams(nil), b.calls...)
}

func makeRows(label string, n int) []*esm.Record {
	out := make([]*esm.Record, n)
	for i := range out {
		out[i] = esm.NewRecord(map[string]any{"window": label, "n": i})
	}
	return out
}

func newEngine(backend esm.QueryBackend, now time.Time) *esm.QueryEngine {
	return &esm.QueryEngine{
		Backend:   backend,
		Performer: &esm.Performer{Quiet: true},
		Slots:     4,
		Workers:   4,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return now },
	}
}

var (
	queryStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	queryEnd   = queryStart.Add(4 * time.Hour)
)

func TestQueryEngine_Complete(t *testing.T) {
	backend := &fakeBackend{rows: func(esm.QueryParams) ([]*esm.Record, error) {
		return makeRows("all", 3), nil
	}}

	q := esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(5)
	got, err := newEngine(backend, queryEnd).Load(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Len())
	assert.Len(t, backend.executed(), 1)
}

func TestQueryEngine_DepthZero(t *testing.T) {
	backend := &fakeBackend{rows: func(q esm.QueryParams) ([]*esm.Record, error) {
		return makeRows("all", q.Limit()), nil
	}}

	q := esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(5).WithMaxDepth(0)
	got, err := newEngine(backend, queryEnd).Load(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 5, got.Len(), "partial result is returned")
	assert.Len(t, backend.executed(), 1)
}

func TestQueryEngine_Split(t *testing.T) {
	for _, async := range []bool{true, false} {
		t.Run(fmt.Sprintf("async=%v", async), func(t *testing.T) {
			backend := &fakeBackend{rows: func(q esm.QueryParams) ([]*esm.Record, error) {
				if q.Time().Start().Equal(queryStart) && q.Time().End().Equal(queryEnd) {
					return makeRows("parent", q.Limit()), nil
				}
				hour := int(q.Time().Start().Sub(queryStart) / time.Hour)
				// Later windows answer first when running concurrently.
				time.Sleep(time.Duration(4-hour) * time.Millisecond)
				return makeRows(fmt.Sprintf("w%d", hour), hour+1), nil
			}}

			q := esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(10).WithMaxDepth(1).WithAsync(async)
			got, err := newEngine(backend, queryEnd).Load(context.Background(), q)
			require.NoError(t, err)

			calls := backend.executed()
			require.Len(t, calls, 5)
			assert.Equal(t, 1, calls[0].MaxDepth())

			children := calls[1:]
			seen := make(map[time.Time]bool)
			for _, c := range children {
				assert.Equal(t, esm.Custom, c.Time().Range())
				assert.Equal(t, 0, c.MaxDepth())
				assert.Equal(t, 10, c.Limit())
				assert.Equal(t, time.Hour, c.Time().End().Sub(c.Time().Start()))
				seen[c.Time().Start()] = true
			}
			for i := range 4 {
				assert.True(t, seen[queryStart.Add(time.Duration(i)*time.Hour)], "window %d queried", i)
			}

			// Parent rows are discarded; children concatenate in window order.
			require.Equal(t, 1+2+3+4, got.Len())
			var labels []string
			for _, r := range got.All() {
				labels = append(labels, r.String("window"))
			}
			assert.Equal(t, []string{"w0", "w1", "w1", "w2", "w2", "w2", "w3", "w3", "w3", "w3"}, labels)
		})
	}
}

func TestQueryEngine_RecursiveSplit(t *testing.T) {
	backend := &fakeBackend{rows: func(q esm.QueryParams) ([]*esm.Record, error) {
		// Only the first hour stays truncated after one split.
		if q.Time().Start().Equal(queryStart) && q.Time().End().Sub(q.Time().Start()) >= time.Hour {
			return makeRows("full", q.Limit()), nil
		}
		return makeRows(q.Time().Start().Format("15:04"), 1), nil
	}}

	q := esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(3).WithMaxDepth(2)
	got, err := newEngine(backend, queryEnd).Load(context.Background(), q)
	require.NoError(t, err)

	// 1 parent + 4 windows + 4 sub-windows of the first hour.
	assert.Len(t, backend.executed(), 9)

	var labels []string
	for _, r := range got.All() {
		labels = append(labels, r.String("window"))
	}
	assert.Equal(t, []string{"00:00", "00:15", "00:30", "00:45", "01:00", "02:00", "03:00"}, labels)
}

func TestQueryEngine_NamedRangeResolvesOnce(t *testing.T) {
	now := time.Date(2024, 5, 16, 13, 30, 0, 0, time.UTC)
	backend := &fakeBackend{rows: func(esm.QueryParams) ([]*esm.Record, error) {
		return nil, nil
	}}

	q := esm.NewQuery().WithTimeRange(esm.LastHour)
	_, err := newEngine(backend, now).Load(context.Background(), q)
	require.NoError(t, err)

	calls := backend.executed()
	require.Len(t, calls, 1)
	assert.Equal(t, esm.Custom, calls[0].Time().Range())
	assert.Equal(t, now.Add(-time.Hour), calls[0].Time().Start())
	assert.Equal(t, now, calls[0].Time().End())
}

func TestQueryEngine_Errors(t *testing.T) {
	t.Run("child error aborts load", func(t *testing.T) {
		boom := errors.New("boom")
		backend := &fakeBackend{rows: func(q esm.QueryParams) ([]*esm.Record, error) {
			if q.MaxDepth() == 1 {
				return makeRows("parent", q.Limit()), nil
			}
			if q.Time().Start().Equal(queryStart.Add(2 * time.Hour)) {
				return nil, boom
			}
			return makeRows("child", 1), nil
		}}

		q := esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(2)
		got, err := newEngine(backend, queryEnd).Load(context.Background(), q)
		require.ErrorIs(t, err, boom)
		assert.Nil(t, got)
	})

	t.Run("invalid query", func(t *testing.T) {
		backend := &fakeBackend{rows: func(esm.QueryParams) ([]*esm.Record, error) {
			return nil, nil
		}}

		_, err := newEngine(backend, queryEnd).Load(context.Background(), esm.NewQuery().WithLimit(0))
		var cfgErr *esm.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Empty(t, backend.executed())
	})

	t.Run("async split without workers", func(t *testing.T) {
		backend := &fakeBackend{rows: func(q esm.QueryParams) ([]*esm.Record, error) {
			return makeRows("x", q.Limit()), nil
		}}
		engine := newEngine(backend, queryEnd)
		engine.Workers = 0

		_, err := engine.Load(context.Background(), esm.NewQuery().WithBetween(queryStart, queryEnd).WithLimit(1))
		var cfgErr *esm.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestQueryParams_Immutable(t *testing.T) {
	base := esm.NewQuery()
	derived := base.WithLimit(10).WithFilter("SrcIP", "10.0.0.1").WithFields("Rule.msg").WithAsync(false)

	assert.Equal(t, 500, base.Limit())
	assert.True(t, base.Async())
	assert.Empty(t, base.Fields())
	assert.Equal(t, []esm.Filter{esm.DefaultFilter()}, base.Filters())
	assert.Equal(t, esm.Last24Hours, base.Time().Range())
	assert.Equal(t, 1, base.MaxDepth())

	assert.Equal(t, 10, derived.Limit())
	assert.False(t, derived.Async())
	assert.Equal(t, []string{"Rule.msg"}, derived.Fields())
	assert.Equal(t, []esm.Filter{esm.NewFieldFilter("SrcIP", "10.0.0.1")}, derived.Filters())

	a := derived.WithFilter("DstIP", "10.0.0.2")
	b := derived.WithFilter("DstPort", "22")
	assert.Len(t, a.Filters(), 2)
	assert.Len(t, b.Filters(), 2)
	assert.NotEqual(t, a.Filters(), b.Filters())
}

func TestQueryParams_WithFilterSpec(t *testing.T) {
	base := esm.NewQuery()

	tuple, err := base.WithFilterSpec(esm.F("SrcIP", "10.0.0.1"))
	require.NoError(t, err)
	list, err := base.WithFilterSpec([]esm.FilterTuple{esm.F("SrcIP", "10.0.0.1")})
	require.NoError(t, err)
	assert.Equal(t, []esm.Filter{esm.NewFieldFilter("SrcIP", "10.0.0.1")}, tuple.Filters())
	assert.Equal(t, tuple.Filters(), list.Filters())

	reset, err := tuple.WithFilterSpec(nil)
	require.NoError(t, err)
	assert.Equal(t, []esm.Filter{esm.DefaultFilter()}, reset.Filters())
	assert.Equal(t, []esm.Filter{esm.NewFieldFilter("SrcIP", "10.0.0.1")}, tuple.Filters(), "source unchanged")

	bad, err := tuple.WithFilterSpec(esm.FieldFilter{Field: "SrcIP", Operator: "LIKE"})
	var cfgErr *esm.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, tuple.Filters(), bad.Filters())
}

func TestQueryParams_Validate(t *testing.T) {
	assert.NoError(t, esm.NewQuery().Validate())

	var cfgErr *esm.ConfigurationError
	assert.ErrorAs(t, esm.NewQuery().WithLimit(-1).Validate(), &cfgErr)
	assert.ErrorAs(t, esm.NewQuery().WithMaxDepth(-1).Validate(), &cfgErr)
	assert.ErrorAs(t, esm.NewQuery().WithBetween(queryEnd, queryStart).Validate(), &cfgErr)
	assert.ErrorAs(t, esm.NewQuery().WithFilters(esm.FieldFilter{Field: "SrcIP", Operator: "BAD"}).Validate(), &cfgErr)
}
