package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchlistsCmd(a *app) *cobra.Command {
	var search []string

	cmd := &cobra.Command{
		Use:   "watchlists",
		Short: "List watchlists and manage their values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			lists, err := client.Watchlists.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(search) > 0 {
				if lists, err = lists.Search(search...); err != nil {
					return err
				}
			}
			return a.print(cmd, lists)
		},
	}
	cmd.Flags().StringArrayVarP(&search, "search", "s", nil, "keep watchlists matching every pattern")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "values WATCHLIST-ID",
			Short: "Print the values of a watchlist, one per line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client(cmd)
				if err != nil {
					return err
				}
				values, err := client.Watchlists.Values(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, v := range values {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), v); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add WATCHLIST-ID VALUE...",
			Short: "Add values to a watchlist",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client(cmd)
				if err != nil {
					return err
				}
				return client.Watchlists.AddValues(cmd.Context(), args[0], args[1:]...)
			},
		},
		&cobra.Command{
			Use:   "remove WATCHLIST-ID VALUE...",
			Short: "Remove values from a watchlist",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client(cmd)
				if err != nil {
					return err
				}
				return client.Watchlists.RemoveValues(cmd.Context(), args[0], args[1:]...)
			},
		},
	)
	return cmd
}
