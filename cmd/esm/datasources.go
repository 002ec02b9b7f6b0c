package main

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-esm"
)

func newDatasourcesCmd(a *app) *cobra.Command {
	var (
		search  []string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "datasources",
		Short: "List the device tree",
		Example: `  esm datasources -s '^datasource$' --fields name,ds_ip,type
  esm datasources -s fw01 --details -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			tree, err := client.Datasources.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(search) > 0 {
				if tree, err = tree.Search(search...); err != nil {
					return err
				}
			}
			if details {
				opts := esm.PerformOptions{
					Async:    true,
					Workers:  client.Performance().MaxWorkers,
					Progress: true,
					Message:  "Loading datasource details",
				}
				if err := client.Datasources.LoadDetails(cmd.Context(), tree, opts); err != nil {
					return err
				}
			}
			return a.print(cmd, tree)
		},
	}
	cmd.Flags().StringArrayVarP(&search, "search", "s", nil, "keep nodes matching every pattern")
	cmd.Flags().BoolVar(&details, "details", false, "load datasource details for every node")

	cmd.AddCommand(&cobra.Command{
		Use:   "show DATASOURCE-ID",
		Short: "Print the details of a datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			ds, err := client.Datasources.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printRecord(cmd, ds)
		},
	})
	return cmd
}
