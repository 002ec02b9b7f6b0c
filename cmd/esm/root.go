package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tphakala/go-esm"
	"github.com/tphakala/go-esm/internal/config"
	"github.com/tphakala/go-esm/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	verbose    bool
	quiet      bool
	format     string
	fields     []string
	width      int

	cfg      *config.Config
	logger   zerolog.Logger
	closeLog func() error
	esm      *esm.Client
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop(), closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:           "esm",
		Short:         "Query and manage a McAfee ESM appliance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (default: discovered .msiem/conf.ini)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "warnings only, no progress bars")
	flags.StringVarP(&a.format, "format", "o", "table", "output format: table, csv or yaml")
	flags.StringSliceVar(&a.fields, "fields", nil, "fields to print, in order")
	flags.IntVar(&a.width, "width", 40, "maximum table column width, 0 for unlimited")

	root.AddCommand(
		newConfigCmd(a),
		newStatusCmd(a),
		newEventsCmd(a),
		newAlarmsCmd(a),
		newWatchlistsCmd(a),
		newDatasourcesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	g := cfg.General()
	logger, closeLog, err := logging.New(logging.Config{
		Verbose: a.verbose || g.Verbose,
		Quiet:   a.quiet || g.Quiet,
		Logfile: g.Logfile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.closeLog = closeLog
	a.logger.Debug().Str("config", cfg.Path()).Msg("settings loaded")
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	defer a.closeLog()
	if a.esm == nil || !a.esm.LoggedIn() {
		return nil
	}
	if err := a.esm.Logout(cmd.Context()); err != nil {
		a.logger.Warn().Err(err).Msg("logout failed")
	}
	return nil
}

// client returns the appliance client, building it on first use.
func (a *app) client(cmd *cobra.Command) (*esm.Client, error) {
	if a.esm != nil {
		return a.esm, nil
	}
	if a.cfg.ESM().Host == "" {
		return nil, fmt.Errorf("no appliance configured in %s, run 'esm config init' first", a.cfg.Path())
	}

	c, err := esm.NewClient(
		esm.WithConfig(a.cfg),
		esm.WithLogger(a.logger),
		esm.WithQuiet(a.quiet || a.cfg.General().Quiet),
		esm.WithPrompter(esm.NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())),
		esm.WithProgressWriter(cmd.ErrOrStderr()),
	)
	if err != nil {
		return nil, err
	}
	a.esm = c
	return c, nil
}

func (a *app) textOptions() (esm.TextOptions, error) {
	opts := esm.TextOptions{Fields: a.fields, MaxColumnWidth: a.width}
	switch strings.ToLower(a.format) {
	case "table", "":
		opts.Format = esm.FormatTable
	case "csv":
		opts.Format = esm.FormatCSV
	case "yaml", "yml":
		opts.Format = esm.FormatYAML
	default:
		return opts, fmt.Errorf("unknown output format %q", a.format)
	}
	return opts, nil
}

// print renders coll to the command's output.
func (a *app) print(cmd *cobra.Command, coll *esm.Collection) error {
	opts, err := a.textOptions()
	if err != nil {
		return err
	}
	text, err := coll.Text(opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	if err == nil && !strings.HasSuffix(text, "\n") {
		_, err = fmt.Fprintln(cmd.OutOrStdout())
	}
	return err
}

func (a *app) printRecord(cmd *cobra.Command, r *esm.Record) error {
	coll, err := esm.NewCollection(r)
	if err != nil {
		return err
	}
	return a.print(cmd, coll)
}
