package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
	"github.com/tartampluch/go-sheetcal/internal/preview"
	"github.com/tartampluch/go-sheetcal/internal/prompt"
	"github.com/tartampluch/go-sheetcal/internal/server"
	"github.com/tartampluch/go-sheetcal/internal/sheet"
)

// app wires the command line to the engine. Prompts and notices go to
// errOut so that out can carry a calendar or a preview.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	flags    flagValues
	settings *config.Settings
	tr       *prompt.Translator

	fetcher      sheet.Fetcher
	logging      func(debug bool) io.Closer
	logCloser    io.Closer
	newGenerator func(engine.BadRecordHandler) *engine.Generator
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:           in,
		out:          out,
		errOut:       errOut,
		fetcher:      sheet.NewHTTPFetcher(),
		logging:      setupLogging,
		newGenerator: engine.NewGenerator,
	}
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close() // Best effort close
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppCommand + " <spreadsheet>",
		Short: "Convert a spreadsheet schedule into an iCalendar file",
		Long: `Reads a schedule from an xlsx, xls or csv file (local or http/https),
maps its columns to roles with --column and writes one event per row.`,
		Version:           config.Version,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runExport,
	}
	root.SetVersionTemplate(versionLine())
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, config.FlagConfig, "", config.FlagDescConfig)
	pf.BoolVar(&a.flags.debug, config.FlagDebug, false, config.FlagDescDebug)
	pf.StringVar(&a.flags.lang, config.FlagLanguage, config.DefaultLanguage, config.FlagDescLang)
	pf.StringVar(&a.flags.sheet, config.FlagSheet, "", config.FlagDescSheet)
	pf.StringArrayVar(&a.flags.columns, config.FlagColumn, nil, config.FlagDescColumn)
	pf.IntVar(&a.flags.year, config.FlagYear, 0, config.FlagDescYear)
	pf.StringVar(&a.flags.prefix, config.FlagPrefix, "", config.FlagDescPrefix)
	pf.StringVar(&a.flags.duration, config.FlagDuration, config.DefaultDurationText, config.FlagDescDur)
	pf.StringSliceVar(&a.flags.calendars, config.FlagCalendar, nil, config.FlagDescCal)
	pf.StringVar(&a.flags.onBad, config.FlagOnBad, config.PolicyAsk, config.FlagDescOnBad)
	pf.BoolVar(&a.flags.dialog, config.FlagDialog, false, config.FlagDescDialog)
	pf.BoolVar(&a.flags.alarm, config.FlagAlarm, false, config.FlagDescAlarm)
	pf.StringVar(&a.flags.timezone, config.FlagTimezone, "", config.FlagDescTZ)
	pf.StringVar(&a.flags.calName, config.FlagCalName, "", config.FlagDescCalName)
	pf.BoolVar(&a.flags.save, config.FlagSaveConfig, false, config.FlagDescSave)

	root.Flags().StringVarP(&a.flags.output, config.FlagOutput, "o", "", config.FlagDescOutput)
	root.Flags().BoolVar(&a.flags.selectCals, config.FlagSelect, false, config.FlagDescSelect)

	root.AddCommand(
		a.sheetsCommand(),
		a.calendarsCommand(),
		a.previewCommand(),
		a.serveCommand(),
	)
	return root
}

func (a *app) sheetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <spreadsheet>",
		Short: "List the worksheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := sheet.Open(cmd.Context(), args[0], a.fetcher)
			if err != nil {
				return err
			}
			names, err := wb.SheetNames()
			if err != nil {
				return err
			}
			for _, n := range names {
				_, _ = fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}
}

func (a *app) calendarsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calendars <spreadsheet>",
		Short: "List the calendar tags found in the Calendar column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := newJob(a.settings)
			if err != nil {
				return err
			}
			rows, err := a.loadRows(cmd.Context(), args[0], j.sheet)
			if err != nil {
				return err
			}
			tags := engine.FindCalendars(rows, j.cols)
			if len(tags) == 0 {
				_, _ = fmt.Fprintln(a.errOut, a.tr.Msg(config.TKeyCalendarsNone))
				return nil
			}
			for _, tag := range tags {
				_, _ = fmt.Fprintln(a.out, tag)
			}
			return nil
		},
	}
}

func (a *app) previewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <spreadsheet>",
		Short: "Print the parsed events as CSV without writing a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ask, sel := a.asker()
			res, j, err := a.generate(cmd.Context(), args[0], ask, sel)
			if err != nil {
				return err
			}
			return preview.Write(a.out, res.Events, j.opts.Prefix)
		},
	}
	cmd.Flags().BoolVar(&a.flags.selectCals, config.FlagSelect, false, config.FlagDescSelect)
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <spreadsheet>",
		Short: "Publish the calendar over HTTP, reloading the spreadsheet periodically",
		Long: `Serves the calendar on 127.0.0.1 for calendar clients to subscribe to.
Bad records are skipped unless --on-bad-record=abort, in which case the
previous calendar stays published.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runServe,
	}
	cmd.Flags().StringVar(&a.flags.port, config.FlagPort, config.DefaultPort, config.FlagDescPort)
	cmd.Flags().IntVar(&a.flags.refresh, config.FlagRefresh, config.DefaultRefreshMin, config.FlagDescRefresh)
	return cmd
}

// setup runs before every command: logging, settings, flag overrides and
// translations.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.logCloser = a.logging(a.flags.debug)
	logStartupInfo()

	s, path, err := loadSettings(a.flags.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, s, &a.flags); err != nil {
		return err
	}
	if a.flags.save {
		if path == "" {
			return errors.New(config.ErrSettingsPath)
		}
		if err := config.SaveSettings(path, s); err != nil {
			return err
		}
	}

	a.settings = s
	a.tr = prompt.NewTranslator(s.Language)
	return nil
}

// asker returns the interactive bad-record handler and calendar selector.
func (a *app) asker() (engine.BadRecordHandler, prompt.Selector) {
	if a.flags.dialog {
		d := prompt.NewDialog(a.tr)
		return d, d
	}
	t := prompt.NewTerminal(a.in, a.errOut, a.tr)
	return t, t
}

func (a *app) loadRows(ctx context.Context, src, sheetName string) ([]engine.Row, error) {
	wb, err := sheet.Open(ctx, src, a.fetcher)
	if err != nil {
		return nil, err
	}
	_, rows, err := wb.Rows(sheetName)
	return rows, err
}

// generate loads the sheet and runs the generator. sel may be nil when no
// interactive calendar selection is possible.
func (a *app) generate(ctx context.Context, src string, ask engine.BadRecordHandler, sel prompt.Selector) (*engine.Result, *job, error) {
	j, err := newJob(a.settings)
	if err != nil {
		return nil, nil, err
	}
	if err := j.cols.Ready(); err != nil {
		return nil, nil, err
	}

	rows, err := a.loadRows(ctx, src, j.sheet)
	if err != nil {
		return nil, nil, err
	}

	if sel != nil && a.flags.selectCals && len(j.opts.Calendars) == 0 && j.cols.Has(engine.RoleCalendar) {
		picked, err := sel.SelectCalendars(ctx, engine.FindCalendars(rows, j.cols))
		if err != nil {
			return nil, nil, err
		}
		j.opts.Calendars = picked
	}

	handler, err := prompt.NewHandler(j.policy, ask)
	if err != nil {
		return nil, nil, err
	}

	res, err := a.newGenerator(handler).Generate(ctx, rows, j.cols, j.opts)
	if err != nil {
		if errors.Is(err, engine.ErrAborted) {
			_, _ = fmt.Fprintln(a.errOut, a.tr.Msg(config.TKeyAborted))
		}
		return nil, nil, err
	}

	prompt.PrintWarnings(a.errOut, a.tr, res.Warnings)
	return res, j, nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	ask, sel := a.asker()
	res, j, err := a.generate(cmd.Context(), args[0], ask, sel)
	if err != nil {
		return err
	}

	path := a.flags.output
	if path == config.StdoutPath {
		if _, err := a.out.Write(res.ICS); err != nil {
			return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
		}
		return nil
	}
	if path == "" {
		path = engine.OutputName(j.opts.Calendars)
	}
	if err := os.WriteFile(path, res.ICS, config.FilePermShared); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}

	slog.Info(config.MsgOutputWritten,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyPath, path,
		config.LogKeySizeBytes, len(res.ICS),
	)
	_, _ = fmt.Fprintln(a.errOut, a.tr.Msgf(config.TKeyExported, map[string]any{
		"Count": len(res.Events),
		"Path":  path,
	}))
	return nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src := args[0]

	// Configuration errors are reported before the server starts.
	j, err := newJob(a.settings)
	if err != nil {
		return err
	}
	if err := j.cols.Ready(); err != nil {
		return err
	}

	srv := server.NewCalendarServer(a.settings.Port, engine.OutputName(j.opts.Calendars))
	build := func(ctx context.Context) ([]byte, error) {
		res, _, err := a.generate(ctx, src, prompt.Fixed(engine.Continue), nil)
		if err != nil {
			return nil, err
		}
		return res.ICS, nil
	}

	interval := time.Duration(a.settings.RefreshMinutes) * time.Minute
	go srv.RunWorker(ctx, interval, build)

	return srv.Start(ctx)
}
