package esm

import "context"

// loadDetails fetches the detail record for every record of coll through the
// client performer and merges it into the record in place.
func loadDetails(ctx context.Context, c *Client, coll *Collection, opts PerformOptions, fetch func(context.Context, *Record) (*Record, error)) error {
	records := coll.Records()
	if opts.Message == "" {
		opts.Message = "Loading details"
	}
	details, err := Perform(ctx, c.performer, records, fetch, opts)
	if err != nil {
		return err
	}
	for i, d := range details {
		records[i].Merge(d)
	}
	return nil
}
