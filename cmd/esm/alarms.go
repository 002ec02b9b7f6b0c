package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-esm"
)

func newAlarmsCmd(a *app) *cobra.Command {
	var (
		qf     queryFlags
		status string
	)

	cmd := &cobra.Command{
		Use:   "alarms",
		Short: "List and manage triggered alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			st, err := parseAlarmStatus(status)
			if err != nil {
				return err
			}
			q, err := qf.query(client)
			if err != nil {
				return err
			}
			alarms, err := client.Alarms.Query(cmd.Context(), q, st)
			if err != nil {
				return err
			}
			return a.print(cmd, alarms)
		},
	}
	qf.register(cmd, esm.CurrentDay)
	cmd.Flags().StringVar(&status, "status", "all", "all, acknowledged or unacknowledged")

	cmd.AddCommand(
		newAlarmShowCmd(a),
		newAlarmActionCmd(a, "ack", "Acknowledge alarms", esm.AlarmService.Acknowledge),
		newAlarmActionCmd(a, "unack", "Unacknowledge alarms", esm.AlarmService.Unacknowledge),
		newAlarmActionCmd(a, "delete", "Delete alarms", esm.AlarmService.Delete),
	)
	return cmd
}

func parseAlarmStatus(s string) (esm.AlarmStatus, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return esm.AlarmsAll, nil
	case "acknowledged", "ack":
		return esm.AlarmsAcknowledged, nil
	case "unacknowledged", "unack":
		return esm.AlarmsUnacknowledged, nil
	}
	return esm.AlarmsAll, fmt.Errorf("unknown alarm status %q", s)
}

func newAlarmShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ALARM-ID",
		Short: "Print the details of a triggered alarm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			alarm, err := client.Alarms.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printRecord(cmd, alarm)
		},
	}
}

type alarmAction func(s esm.AlarmService, ctx context.Context, ids ...string) error

// newAlarmActionCmd builds a command applying action to every alarm ID
// argument, one request per alarm, after confirmation.
func newAlarmActionCmd(a *app, use, short string, action alarmAction) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   use + " ALARM-ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			opts := esm.PerformOptions{
				Confirm:  !yes,
				Async:    true,
				Workers:  client.Performance().MaxWorkers,
				Progress: true,
				Message:  short,
			}
			_, err = esm.Perform(cmd.Context(), client.Performer(), ids,
				func(ctx context.Context, id string) (struct{}, error) {
					return struct{}{}, action(client.Alarms, ctx, id)
				}, opts)
			if err != nil {
				return err
			}
			a.logger.Info().Int("alarms", len(ids)).Str("action", use).Msg("done")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
