package esm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/go-esm/internal/api"
	"github.com/tphakala/go-esm/internal/catalog"
)

// DefaultEventFields are the columns requested when a query names none.
var DefaultEventFields = []string{
	"Rule.msg",
	"Alert.LastTime",
	"Alert.IPSIDAlertID",
	"Alert.SrcIP",
	"Alert.DstIP",
	"Alert.DSIDSigID",
}

// EventService provides operations on ESM events.
type EventService interface {
	// Query loads events matching q, newest first within each window,
	// splitting the time range when results look truncated.
	Query(ctx context.Context, q QueryParams) (*Collection, error)

	// Get retrieves the full event data for an IPSIDAlertID.
	Get(ctx context.Context, id string) (*Record, error)

	// AddNote attaches a note to an event.
	AddNote(ctx context.Context, id, note string) error

	// LoadDetails merges full event data into each record in place.
	LoadDetails(ctx context.Context, events *Collection, opts PerformOptions) error
}

type eventService struct {
	client *Client
	engine *QueryEngine
}

func newEventService(client *Client) *eventService {
	s := &eventService{client: client}
	s.engine = client.newQueryEngine(&eventBackend{client: client})
	return s
}

func (s *eventService) Query(ctx context.Context, q QueryParams) (*Collection, error) {
	return s.engine.Load(ctx, s.client.clampLimit(q))
}

func (s *eventService) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, configErr("event id", "empty")
	}
	resp, err := s.client.Request(ctx, catalog.EventDetails, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return toRecord(resp)
}

func (s *eventService) AddNote(ctx context.Context, id, note string) error {
	if id == "" {
		return configErr("event id", "empty")
	}
	_, err := s.client.Request(ctx, catalog.AddEventNote, map[string]any{"id": id, "note": note})
	return err
}

func (s *eventService) LoadDetails(ctx context.Context, events *Collection, opts PerformOptions) error {
	return loadDetails(ctx, s.client, events, opts, func(ctx context.Context, r *Record) (*Record, error) {
		return s.Get(ctx, r.ID("IPSIDAlertID", "Alert.IPSIDAlertID", "id"))
	})
}

// eventBackend runs qryExecuteDetail queries.
type eventBackend struct {
	client *Client
}

func (b *eventBackend) ComposeFilters(filters []Filter) ([]any, error) {
	return composeFilters(filters)
}

func (b *eventBackend) Execute(ctx context.Context, q QueryParams) ([]*Record, error) {
	filters, err := b.ComposeFilters(q.Filters())
	if err != nil {
		return nil, err
	}

	fields := q.Fields()
	if len(fields) == 0 {
		fields = DefaultEventFields
	}
	wireFields := make([]any, len(fields))
	for i, f := range fields {
		wireFields[i] = map[string]any{"name": f}
	}

	cfg := map[string]any{
		"timeRange":   string(Custom),
		"customStart": formatESMTime(q.Time().Start()),
		"customEnd":   formatESMTime(q.Time().End()),
		"fields":      wireFields,
		"filters":     filters,
		"limit":       q.Limit(),
		"order": []any{map[string]any{
			"direction": "DESCENDING",
			"field":     map[string]any{"name": "LastTime"},
		}},
	}

	resp, err := b.client.Request(ctx, catalog.EventQuery, map[string]any{"config": cfg})
	if err != nil {
		return nil, err
	}
	id, err := resultID(resp)
	if err != nil {
		return nil, err
	}

	if err := b.waitComplete(ctx, id); err != nil {
		return nil, err
	}

	var result queryResult
	err = b.client.RequestInto(ctx, catalog.QueryResults, map[string]any{
		"result_id": id,
		"num_rows":  q.Limit(),
		"start_pos": 0,
	}, &result)
	if err != nil {
		return nil, err
	}
	return parseColumnar(result.Columns, result.Rows), nil
}

// waitComplete polls the query status at the client poll interval until the
// appliance reports completion or the poll timeout, if any, expires.
func (b *eventBackend) waitComplete(ctx context.Context, id any) error {
	if b.client.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.client.pollTimeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(b.client.pollInterval), 1)
	started := time.Now()
	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for query %v: %w", id, err)
		}

		resp, err := b.client.Request(ctx, catalog.QueryStatus, map[string]any{"result_id": id})
		if err != nil {
			return err
		}
		var status queryStatus
		if err := api.Decode(resp, &status); err != nil {
			return fmt.Errorf("decoding query status: %w", err)
		}
		if status.Complete {
			b.client.logger.Debug().Any("result_id", id).Str("total_records", status.TotalRecords.String()).
				Dur("waited", time.Since(started)).Msg("query complete")
			return nil
		}
	}
}
