package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		host, user, password string
		timeout              time.Duration
		insecure             bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store the appliance host and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if host == "" || user == "" {
				return errors.New("--host and --user are required")
			}
			a.cfg.SetHost(host)
			a.cfg.SetCredentials(user, password)

			g := a.cfg.General()
			if cmd.Flags().Changed("timeout") {
				g.Timeout = timeout
			}
			if cmd.Flags().Changed("insecure") {
				g.SSLVerify = !insecure
			}
			a.cfg.SetGeneral(g)

			if err := a.cfg.Save(); err != nil {
				return err
			}
			a.logger.Info().Str("path", a.cfg.Path()).Str("host", host).Msg("settings saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "appliance host name or URL")
	cmd.Flags().StringVar(&user, "user", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password, stored base64 encoded")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP timeout")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings without the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, g, p := a.cfg.ESM(), a.cfg.General(), a.cfg.Performance()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "path:            %s\n", a.cfg.Path())
			fmt.Fprintf(w, "host:            %s\n", e.Host)
			fmt.Fprintf(w, "user:            %s\n", e.User)
			fmt.Fprintf(w, "timeout:         %s\n", g.Timeout)
			fmt.Fprintf(w, "ssl_verify:      %t\n", g.SSLVerify)
			fmt.Fprintf(w, "max_workers:     %d\n", p.MaxWorkers)
			fmt.Fprintf(w, "max_rows:        %d\n", p.MaxRows)
			fmt.Fprintf(w, "default_rows:    %d\n", p.DefaultRows)
			fmt.Fprintf(w, "slots:           %d\n", p.Slots)
			_, err := fmt.Fprintf(w, "max_query_depth: %d\n", p.MaxQueryDepth)
			return err
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Log in and print the appliance version and clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			version, err := client.Version(cmd.Context())
			if err != nil {
				return err
			}
			now, err := client.Time(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "host:        %s\n", client.Host())
			fmt.Fprintf(w, "version:     %s\n", version)
			fmt.Fprintf(w, "api version: %d\n", client.APIVersion())
			_, err = fmt.Fprintf(w, "time:        %s\n", now.UTC().Format(time.RFC3339))
			return err
		},
	}
}
