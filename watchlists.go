package esm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/go-esm/internal/catalog"
)

// WatchlistService provides watchlist listing and value management.
type WatchlistService interface {
	// List returns every static and dynamic watchlist.
	List(ctx context.Context) (*Collection, error)

	// Get retrieves watchlist details.
	Get(ctx context.Context, id string) (*Record, error)

	// Values returns the members of a watchlist.
	Values(ctx context.Context, id string) ([]string, error)

	// AddValues adds members to a watchlist.
	AddValues(ctx context.Context, id string, values ...string) error

	// RemoveValues removes members from a watchlist.
	RemoveValues(ctx context.Context, id string, values ...string) error

	// LoadDetails merges watchlist details into each record in place.
	LoadDetails(ctx context.Context, watchlists *Collection, opts PerformOptions) error
}

type watchlistService struct {
	client *Client
}

func newWatchlistService(client *Client) *watchlistService {
	return &watchlistService{client: client}
}

func (s *watchlistService) List(ctx context.Context) (*Collection, error) {
	resp, err := s.client.Request(ctx, catalog.Watchlists, nil)
	if err != nil {
		return nil, err
	}
	records, err := toRecords(resp)
	if err != nil {
		return nil, err
	}
	return newRecordCollection(records), nil
}

func (s *watchlistService) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, configErr("watchlist id", "empty")
	}
	resp, err := s.client.Request(ctx, catalog.WatchlistDetails, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return toRecord(resp)
}

// Values reads the value file referenced by the watchlist details through
// the buffered file helper.
func (s *watchlistService) Values(ctx context.Context, id string) ([]string, error) {
	details, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	vf, ok := details.Get("valueFile")
	if !ok {
		return nil, fmt.Errorf("watchlist %s: %w: valueFile", id, ErrNotFound)
	}
	m, ok := vf.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("watchlist %s: unexpected valueFile %T", id, vf)
	}
	token, _ := m["fileToken"].(string)
	if token == "" {
		return nil, fmt.Errorf("watchlist %s: %w: fileToken", id, ErrNotFound)
	}

	data, err := s.client.ReadFile(ctx, token)
	if err != nil {
		return nil, err
	}

	var values []string
	for line := range strings.Lines(data) {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

func (s *watchlistService) AddValues(ctx context.Context, id string, values ...string) error {
	return s.modify(ctx, catalog.AddWatchlistVals, id, values)
}

func (s *watchlistService) RemoveValues(ctx context.Context, id string, values ...string) error {
	return s.modify(ctx, catalog.DelWatchlistVals, id, values)
}

func (s *watchlistService) modify(ctx context.Context, name, id string, values []string) error {
	if id == "" {
		return configErr("watchlist id", "empty")
	}
	if len(values) == 0 {
		return configErr("watchlist values", "none given")
	}
	_, err := s.client.Request(ctx, name, map[string]any{"id": id, "values": values})
	return err
}

func (s *watchlistService) LoadDetails(ctx context.Context, watchlists *Collection, opts PerformOptions) error {
	return loadDetails(ctx, s.client, watchlists, opts, func(ctx context.Context, r *Record) (*Record, error) {
		return s.Get(ctx, r.ID("id"))
	})
}
