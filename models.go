package esm

import (
	"fmt"

	"github.com/goccy/go-json"
)

// queryStatus is the qryGetStatus response.
type queryStatus struct {
	Complete     bool        `json:"complete"`
	TotalRecords json.Number `json:"totalRecords,omitempty"`
	Milliseconds json.Number `json:"milliseconds,omitempty"`
}

// queryColumn names one column of a columnar result.
type queryColumn struct {
	Name string `json:"name"`
}

// queryRow holds the values of one result row in column order.
type queryRow struct {
	Values []any `json:"values"`
}

// queryResult is the qryGetResults response.
type queryResult struct {
	Columns []queryColumn `json:"columns"`
	Rows    []queryRow    `json:"rows"`
}

// parseColumnar turns column names and row values into one record per row.
// Missing trailing values are stored as nil.
func parseColumnar(columns []queryColumn, rows []queryRow) []*Record {
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		r := &Record{values: make(map[string]any, len(columns))}
		for i, col := range columns {
			var v any
			if i < len(row.Values) {
				v = row.Values[i]
			}
			r.Set(col.Name, v)
		}
		out = append(out, r)
	}
	return out
}

// resultID extracts the query handle from a qryExecuteDetail response. The
// appliance returns it either bare or wrapped as {"value": id}.
func resultID(resp any) (any, error) {
	m, ok := resp.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected query response %T", resp)
	}
	id, ok := m["resultID"]
	if !ok || id == nil {
		return nil, fmt.Errorf("query response carries no resultID")
	}
	return id, nil
}

// toRecords converts a list response into records. Non-object elements are
// an error.
func toRecords(resp any) ([]*Record, error) {
	if resp == nil {
		return nil, nil
	}
	items, ok := resp.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected list response %T", resp)
	}
	out := make([]*Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("list item %d: unexpected type %T", i, item)
		}
		out = append(out, NewRecord(m))
	}
	return out, nil
}

// toRecord converts an object response into a record.
func toRecord(resp any) (*Record, error) {
	m, ok := resp.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected object response %T", resp)
	}
	return NewRecord(m), nil
}
