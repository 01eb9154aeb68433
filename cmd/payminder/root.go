package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"payminder/internal/backend"
	"payminder/internal/cli"
	"payminder/internal/config"
	"payminder/internal/core"
	"payminder/internal/log"
)

// options holds the persistent flags shared by every command.
type options struct {
	city     string
	date     string
	backend  string
	dataDir  string
	logLevel string
	json     bool

	// factory is swapped in tests.
	factory func(*log.Logger) backend.Factory
}

func newRootCmd() *cobra.Command {
	opts := &options{factory: backend.NewFactory}

	root := &cobra.Command{
		Use:           "payminder",
		Short:         "Payment reminders for spreadsheet ledgers",
		Long:          "Track due and upcoming customer payments kept in per-city workbooks or Google Sheets, record payments and e-mail reminders.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			cli.LoadEnvFile()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.city, "city", "c", "", "Restrict to one city")
	pf.StringVar(&opts.date, "date", "", "Evaluate as of this date (YYYY-MM-DD) instead of today")
	pf.StringVar(&opts.backend, "backend", "", "Ledger backend: "+strings.Join(backend.GetBackendTypeStrings(), ", "))
	pf.StringVarP(&opts.dataDir, "data-dir", "d", "", "Root folder of the per-city workbooks")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.BoolVar(&opts.json, "json", false, "Print machine-readable JSON")

	root.AddCommand(
		newDueCmd(opts),
		newUpcomingCmd(opts),
		newSummaryCmd(opts),
		newListCmd(opts),
		newCitiesCmd(opts),
		newFilesCmd(opts),
		newPayCmd(opts),
		newRescheduleCmd(opts),
		newNoteCmd(opts),
		newTemplateCmd(opts),
		newImportCmd(opts),
		newAssignIDsCmd(opts),
		newRemindCmd(opts),
		newNotificationsCmd(opts),
		newServeCmd(opts),
		newSMTPLoginCmd(opts),
		newSMTPLogoutCmd(opts),
		newSMTPTestCmd(opts),
		newSheetsLoginCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// logger writes to the command's stderr so table output stays clean.
func (o *options) logger(cmd *cobra.Command) *log.Logger {
	return cli.SetupLogger(cmd.ErrOrStderr(), o.logLevel)
}

// loadConfig applies flag overrides on top of the file and environment.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	logger := o.logger(cmd)
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if o.backend != "" {
		cfg.DataBackend = o.backend
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// open builds the App for a command. Callers must Close it.
func (o *options) open(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cmd.Context(), cfg, o.factory(logger), logger)
}

// today is --date or the current day.
func (o *options) today() (core.Date, error) {
	if o.date == "" {
		return core.Today(), nil
	}
	d, err := core.ParseDate(o.date)
	if err != nil {
		return core.Date{}, fmt.Errorf("--date: %w", err)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseRow reads a row reference: a row key, or "#N" for the N-th data
// row (zero-based) as last read.
func parseRow(ledgerName, ref string) (core.Locator, error) {
	ref = strings.TrimSpace(ref)
	if ledgerName == "" || ref == "" {
		return core.Locator{}, fmt.Errorf("ledger and row are required")
	}
	if pos, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.Atoi(pos)
		if err != nil || n < 0 {
			return core.Locator{}, fmt.Errorf("invalid row position %q", ref)
		}
		return core.Locator{Ledger: ledgerName, Position: n}, nil
	}
	return core.Locator{Ledger: ledgerName, Position: -1, Key: core.RowKey(ref)}, nil
}
