package main

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-esm"
)

func newEventsCmd(a *app) *cobra.Command {
	var (
		qf      queryFlags
		fields  []string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Search events",
		Example: `  esm events -r LAST_HOUR -f SrcIP=10.0.0.1 --fields Rule.msg,SrcIP,DstIP
  esm events --start 2024-05-01T00:00:00Z --end 2024-05-02T00:00:00Z -n 5000 -o csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			q, err := qf.query(client)
			if err != nil {
				return err
			}
			if len(fields) > 0 {
				q = q.WithFields(fields...)
			}

			events, err := client.Events.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.logger.Info().Int("events", events.Len()).Str("range", q.Time().String()).Msg("query done")

			if details {
				opts := esm.PerformOptions{
					Async:    true,
					Workers:  client.Performance().MaxWorkers,
					Progress: true,
					Message:  "Loading event details",
				}
				if err := client.Events.LoadDetails(cmd.Context(), events, opts); err != nil {
					return err
				}
			}
			return a.print(cmd, events)
		},
	}
	qf.register(cmd, esm.LastHour)
	cmd.Flags().StringSliceVar(&fields, "query-fields", nil, "event fields requested from the appliance")
	cmd.Flags().BoolVar(&details, "details", false, "load full event data for every result")

	cmd.AddCommand(newEventNoteCmd(a))
	return cmd
}

func newEventNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note EVENT-ID NOTE",
		Short: "Attach a note to an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			return client.Events.AddNote(cmd.Context(), args[0], args[1])
		},
	}
}
