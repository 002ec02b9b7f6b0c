package esm

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tphakala/go-esm/internal/metrics"
)

// QueryParams describes one time-ranged, filtered query. It is a value:
// every With method returns a modified copy and leaves the receiver intact.
type QueryParams struct {
	time    TimeSpec
	filters []Filter
	fields  []string
	limit   int
	depth   int
	async   bool
}

// NewQuery returns parameters for the last 24 hours with the default filter,
// a limit of 500 rows, one level of splitting and asynchronous sub-queries.
func NewQuery() QueryParams {
	return QueryParams{
		time:  Named(Last24Hours),
		limit: 500,
		depth: 1,
		async: true,
	}
}

// WithTimeRange selects a named range and discards explicit bounds.
func (q QueryParams) WithTimeRange(r TimeRange) QueryParams {
	q.time = Named(r)
	return q
}

// WithBetween selects explicit bounds and discards the named range.
func (q QueryParams) WithBetween(start, end time.Time) QueryParams {
	q.time = Between(start, end)
	return q
}

// WithTime replaces the time specification.
func (q QueryParams) WithTime(spec TimeSpec) QueryParams {
	q.time = spec
	return q
}

// WithFilters replaces the filters.
func (q QueryParams) WithFilters(filters ...Filter) QueryParams {
	q.filters = slices.Clone(filters)
	return q
}

// WithFilterSpec replaces the filters with the normalized form of spec, which
// may be anything ParseFilters accepts. nil resets to DefaultFilter.
func (q QueryParams) WithFilterSpec(spec any) (QueryParams, error) {
	filters, err := ParseFilters(spec)
	if err != nil {
		return q, err
	}
	q.filters = filters
	return q, nil
}

// WithFilter appends an IN filter on basic values.
func (q QueryParams) WithFilter(field string, values ...string) QueryParams {
	q.filters = append(slices.Clone(q.filters), NewFieldFilter(field, values...))
	return q
}

// WithFields selects the columns returned by the appliance.
func (q QueryParams) WithFields(fields ...string) QueryParams {
	q.fields = slices.Clone(fields)
	return q
}

// WithLimit sets the row limit of a single appliance query.
func (q QueryParams) WithLimit(n int) QueryParams {
	q.limit = n
	return q
}

// WithMaxDepth sets how many times the time range may be split.
func (q QueryParams) WithMaxDepth(n int) QueryParams {
	q.depth = n
	return q
}

// WithAsync selects whether sub-queries run concurrently.
func (q QueryParams) WithAsync(async bool) QueryParams {
	q.async = async
	return q
}

// Time returns the time specification.
func (q QueryParams) Time() TimeSpec { return q.time }

// Filters returns the filters, or the default filter when none are set.
func (q QueryParams) Filters() []Filter {
	if len(q.filters) == 0 {
		return []Filter{DefaultFilter()}
	}
	return slices.Clone(q.filters)
}

// Fields returns the selected columns.
func (q QueryParams) Fields() []string { return slices.Clone(q.fields) }

// Limit returns the row limit.
func (q QueryParams) Limit() int { return q.limit }

// MaxDepth returns the remaining split budget.
func (q QueryParams) MaxDepth() int { return q.depth }

// Async reports whether sub-queries run concurrently.
func (q QueryParams) Async() bool { return q.async }

// Validate checks the time range, limit, depth and filters.
func (q QueryParams) Validate() error {
	if err := q.time.Validate(); err != nil {
		return err
	}
	if q.limit <= 0 {
		return configErr("limit", "must be positive, got %d", q.limit)
	}
	if q.depth < 0 {
		return configErr("max depth", "must not be negative, got %d", q.depth)
	}
	for _, f := range q.filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// QueryBackend executes a single appliance query for a QueryEngine.
type QueryBackend interface {
	// ComposeFilters returns the appliance filter JSON for filters.
	ComposeFilters(filters []Filter) ([]any, error)
	// Execute runs q, which always carries custom bounds, and returns at
	// most q.Limit() records.
	Execute(ctx context.Context, q QueryParams) ([]*Record, error)
}

// QueryEngine loads a query, splitting its time range when the appliance
// result looks truncated.
type QueryEngine struct {
	Backend   QueryBackend
	Performer *Performer
	Slots     int // sub-windows per split
	Workers   int // concurrent sub-queries
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (c *Client) newQueryEngine(backend QueryBackend) *QueryEngine {
	return &QueryEngine{
		Backend:   backend,
		Performer: &Performer{Quiet: true},
		Slots:     c.performance.Slots,
		Workers:   c.performance.MaxWorkers,
		Logger:    c.logger,
		Metrics:   c.metrics,
		Now:       c.now,
	}
}

// NewQuery returns query parameters using the client's default row limit
// and split depth.
func (c *Client) NewQuery() QueryParams {
	return NewQuery().WithLimit(c.performance.DefaultRows).WithMaxDepth(c.performance.MaxQueryDepth)
}

// clampLimit caps the row limit at the configured maximum.
func (c *Client) clampLimit(q QueryParams) QueryParams {
	if q.limit > c.performance.MaxRows {
		c.logger.Warn().Int("limit", q.limit).Int("max_rows", c.performance.MaxRows).Msg("row limit capped")
		return q.WithLimit(c.performance.MaxRows)
	}
	return q
}

// Load resolves q's time range once, then runs it.
//
// A result is treated as complete when it holds fewer rows than the limit.
// A result of exactly Limit rows may be truncated, so the window is split
// into Slots equal custom windows that are loaded recursively with one less
// unit of depth and concatenated in window order. When no depth is left the
// partial result is returned and a warning logged. Any error aborts the
// whole load.
func (e *QueryEngine) Load(ctx context.Context, q QueryParams) (*Collection, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	start, end, err := q.time.Resolve(now())
	if err != nil {
		return nil, err
	}
	q = q.WithBetween(start, end)

	logger := e.Logger.With().Str("query_id", uuid.NewString()).Logger()
	logger.Debug().Time("start", start).Time("end", end).Int("limit", q.limit).
		Int("max_depth", q.depth).Msg("loading query")

	return e.loadData(ctx, q, logger)
}

func (e *QueryEngine) loadData(ctx context.Context, q QueryParams, logger zerolog.Logger) (*Collection, error) {
	records, err := e.Backend.Execute(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(records) < q.limit {
		return newRecordCollection(records), nil
	}

	if q.depth <= 0 {
		logger.Warn().Int("rows", len(records)).Int("limit", q.limit).
			Str("window", q.time.String()).Msg("query could not be fully executed, returning partial results")
		e.Metrics.IncPartial()
		return newRecordCollection(records), nil
	}

	slots := max(e.Slots, 1)
	windows := splitWindow(q.time.start, q.time.end, slots)
	subs := make([]QueryParams, len(windows))
	for i, w := range windows {
		subs[i] = q.WithTime(w).WithMaxDepth(q.depth - 1)
	}

	e.Metrics.IncSplit()
	logger.Debug().Str("window", q.time.String()).Int("slots", slots).Int("depth", q.depth-1).Msg("splitting query")

	parts, err := Perform(ctx, e.Performer, subs, func(ctx context.Context, sub QueryParams) (*Collection, error) {
		return e.loadData(ctx, sub, logger)
	}, PerformOptions{Async: q.async, Workers: e.Workers})
	if err != nil {
		return nil, err
	}
	return concat(parts), nil
}
