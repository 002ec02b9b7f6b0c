package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-esm"
)

// queryFlags are the time range, filter and paging flags shared by the
// events and alarms commands.
type queryFlags struct {
	timeRange string
	start     string
	end       string
	filters   []string
	limit     int
	depth     int
	async     bool
}

func (f *queryFlags) register(cmd *cobra.Command, defaultRange esm.TimeRange) {
	fl := cmd.Flags()
	fl.StringVarP(&f.timeRange, "range", "r", string(defaultRange), "named time range, e.g. LAST_HOUR or CURRENT_DAY")
	fl.StringVar(&f.start, "start", "", "custom range start (RFC 3339)")
	fl.StringVar(&f.end, "end", "", "custom range end (RFC 3339)")
	fl.StringArrayVarP(&f.filters, "filter", "f", nil, "field filter: field=a,b  field!=a  field~regex  field>n  field<n")
	fl.IntVarP(&f.limit, "limit", "n", 0, "rows per appliance query (default from settings)")
	fl.IntVar(&f.depth, "depth", -1, "maximum time range splits (default from settings)")
	fl.BoolVar(&f.async, "async", true, "run sub-queries concurrently")
}

func (f *queryFlags) query(client *esm.Client) (esm.QueryParams, error) {
	q := client.NewQuery().WithAsync(f.async)

	switch {
	case f.start != "" || f.end != "":
		if f.start == "" || f.end == "" {
			return q, errors.New("--start and --end must be given together")
		}
		start, err := time.Parse(time.RFC3339, f.start)
		if err != nil {
			return q, fmt.Errorf("--start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, f.end)
		if err != nil {
			return q, fmt.Errorf("--end: %w", err)
		}
		q = q.WithBetween(start, end)
	default:
		r, err := esm.ParseTimeRange(f.timeRange)
		if err != nil {
			return q, err
		}
		q = q.WithTimeRange(r)
	}

	filters := make([]esm.Filter, 0, len(f.filters))
	for _, s := range f.filters {
		filter, err := parseFilterFlag(s)
		if err != nil {
			return q, err
		}
		filters = append(filters, filter)
	}
	q, err := q.WithFilterSpec(filters)
	if err != nil {
		return q, err
	}
	if f.limit > 0 {
		q = q.WithLimit(f.limit)
	}
	if f.depth >= 0 {
		q = q.WithMaxDepth(f.depth)
	}
	return q, q.Validate()
}

// filterSyntax maps flag separators to operators. The leftmost separator
// wins; on a tie the earlier entry does, so "!=" beats "=".
var filterSyntax = []struct {
	sep string
	op  esm.Operator
}{
	{"!=", esm.OpNotIn},
	{">=", esm.OpGreaterOrEquals},
	{"<=", esm.OpLessOrEquals},
	{"=", esm.OpIn},
	{"~", esm.OpRegex},
	{">", esm.OpGreaterThan},
	{"<", esm.OpLessThan},
}

func parseFilterFlag(s string) (esm.Filter, error) {
	at, match := -1, -1
	for i, syn := range filterSyntax {
		if idx := strings.Index(s, syn.sep); idx >= 0 && (at < 0 || idx < at) {
			at, match = idx, i
		}
	}
	if match < 0 {
		return nil, fmt.Errorf("invalid filter %q", s)
	}

	syn := filterSyntax[match]
	field := strings.TrimSpace(s[:at])
	value := s[at+len(syn.sep):]
	if field == "" || value == "" {
		return nil, fmt.Errorf("invalid filter %q", s)
	}

	values := []string{value}
	if syn.op == esm.OpIn || syn.op == esm.OpNotIn {
		values = strings.Split(value, ",")
	}
	return esm.FieldFilter{Field: field, Operator: syn.op, Values: esm.Basic(values...)}, nil
}
