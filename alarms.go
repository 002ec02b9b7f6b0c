package esm

import (
	"context"
	"iter"
	"time"

	"github.com/tphakala/go-esm/internal/catalog"
)

// AlarmStatus selects triggered alarms by acknowledgement state.
type AlarmStatus string

const (
	AlarmsAll            AlarmStatus = ""
	AlarmsAcknowledged   AlarmStatus = "acknowledged"
	AlarmsUnacknowledged AlarmStatus = "unacknowledged"
)

// AlarmService provides operations on triggered alarms.
type AlarmService interface {
	// Query loads alarms triggered in q's time range, splitting the range
	// when a page looks truncated. q's filters are applied client side.
	Query(ctx context.Context, q QueryParams, status AlarmStatus) (*Collection, error)

	// All returns an iterator over every alarm in q's time range, fetching
	// pages of q.Limit() lazily. Filters are applied client side.
	All(ctx context.Context, q QueryParams, status AlarmStatus) iter.Seq2[*Record, error]

	// Get retrieves the triggered alarm details.
	Get(ctx context.Context, id string) (*Record, error)

	// Acknowledge marks alarms as acknowledged.
	Acknowledge(ctx context.Context, ids ...string) error

	// Unacknowledge clears the acknowledgement of alarms.
	Unacknowledge(ctx context.Context, ids ...string) error

	// Delete removes triggered alarms.
	Delete(ctx context.Context, ids ...string) error

	// LoadDetails merges alarm details into each record in place.
	LoadDetails(ctx context.Context, alarms *Collection, opts PerformOptions) error
}

type alarmService struct {
	client *Client
}

func newAlarmService(client *Client) *alarmService {
	return &alarmService{client: client}
}

func (s *alarmService) Query(ctx context.Context, q QueryParams, status AlarmStatus) (*Collection, error) {
	engine := s.client.newQueryEngine(&alarmBackend{client: s.client, status: status})
	coll, err := engine.Load(ctx, s.client.clampLimit(q))
	if err != nil {
		return nil, err
	}
	return filterRecords(coll, q.Filters())
}

func (s *alarmService) All(ctx context.Context, q QueryParams, status AlarmStatus) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		if err := q.Validate(); err != nil {
			yield(nil, err)
			return
		}
		start, end, err := q.Time().Resolve(s.client.now())
		if err != nil {
			yield(nil, err)
			return
		}
		backend := &alarmBackend{client: s.client, status: status}
		filters := q.Filters()

		for page := 1; ; page++ {
			records, err := backend.page(ctx, start, end, q.Limit(), page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, r := range records {
				ok, err := matchFilters(r, filters)
				if err != nil {
					yield(nil, err)
					return
				}
				if ok && !yield(r, nil) {
					return
				}
			}
			if len(records) < q.Limit() {
				return
			}
		}
	}
}

func (s *alarmService) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, configErr("alarm id", "empty")
	}
	resp, err := s.client.Request(ctx, catalog.AlarmDetails, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return toRecord(resp)
}

func (s *alarmService) Acknowledge(ctx context.Context, ids ...string) error {
	return s.batch(ctx, catalog.AckAlarms, ids)
}

func (s *alarmService) Unacknowledge(ctx context.Context, ids ...string) error {
	return s.batch(ctx, catalog.UnackAlarms, ids)
}

func (s *alarmService) Delete(ctx context.Context, ids ...string) error {
	return s.batch(ctx, catalog.DeleteAlarms, ids)
}

func (s *alarmService) batch(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return configErr("alarm ids", "none given")
	}
	_, err := s.client.Request(ctx, name, map[string]any{"ids": ids})
	return err
}

func (s *alarmService) LoadDetails(ctx context.Context, alarms *Collection, opts PerformOptions) error {
	return loadDetails(ctx, s.client, alarms, opts, func(ctx context.Context, r *Record) (*Record, error) {
		return s.Get(ctx, r.ID("id", "alarmId"))
	})
}

// alarmBackend fetches the first page of triggered alarms for a window.
type alarmBackend struct {
	client *Client
	status AlarmStatus
}

func (b *alarmBackend) ComposeFilters(filters []Filter) ([]any, error) {
	return composeFilters(filters)
}

func (b *alarmBackend) Execute(ctx context.Context, q QueryParams) ([]*Record, error) {
	return b.page(ctx, q.Time().Start(), q.Time().End(), q.Limit(), 1)
}

func (b *alarmBackend) page(ctx context.Context, start, end time.Time, size, number int) ([]*Record, error) {
	resp, err := b.client.Request(ctx, catalog.Alarms, map[string]any{
		"time_range":  string(Custom),
		"start_time":  formatESMTime(start),
		"end_time":    formatESMTime(end),
		"status":      string(b.status),
		"page_size":   size,
		"page_number": number,
	})
	if err != nil {
		return nil, err
	}
	return toRecords(resp)
}

// filterRecords keeps the records matching every filter.
func filterRecords(coll *Collection, filters []Filter) (*Collection, error) {
	out := &Collection{items: make([]any, 0, coll.Len())}
	for _, item := range coll.items {
		r, ok := item.(*Record)
		if !ok {
			out.items = append(out.items, item)
			continue
		}
		match, err := matchFilters(r, filters)
		if err != nil {
			return nil, err
		}
		if match {
			out.items = append(out.items, r)
		}
	}
	return out, nil
}
