package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// flagValues holds the raw command-line values. Only flags the user actually
// set override the settings file.
type flagValues struct {
	configPath string
	debug      bool
	sheet      string
	columns    []string
	year       int
	prefix     string
	duration   string
	calendars  []string
	selectCals bool
	output     string
	onBad      string
	dialog     bool
	alarm      bool
	timezone   string
	lang       string
	port       string
	refresh    int
	calName    string
	save       bool
}

// job is everything one generation needs, resolved from settings and flags.
type job struct {
	opts   engine.Options
	cols   *engine.RoleMap
	sheet  string
	policy string
}

// loadSettings reads the settings file. A missing default location is not
// fatal: defaults are used.
func loadSettings(path string) (*config.Settings, string, error) {
	if path == "" {
		p, err := config.DefaultSettingsPath()
		if err != nil {
			slog.Warn(config.ErrConfigDir,
				config.LogKeyComponent, config.CompSettings,
				config.LogKeyError, err,
			)
			return config.DefaultSettings(), "", nil
		}
		path = p
	}

	s, err := config.LoadSettings(path)
	if err != nil {
		if s == nil {
			return nil, path, err
		}
		// Defaults could not be written back; carry on with them.
		slog.Warn(config.ErrSettingsSave,
			config.LogKeyComponent, config.CompSettings,
			config.LogKeyPath, path,
			config.LogKeyError, err,
		)
	}
	return s, path, nil
}

// applyFlags overrides settings with the flags set on cmd.
func applyFlags(cmd *cobra.Command, s *config.Settings, f *flagValues) error {
	changed := cmd.Flags().Changed

	if changed(config.FlagSheet) {
		s.Sheet = f.sheet
	}
	if changed(config.FlagYear) {
		if f.year != 0 && (f.year < config.MinYear || f.year > config.MaxYear) {
			return fmt.Errorf("%s: %d", config.ErrYearRange, f.year)
		}
		s.DefaultYear = f.year
	}
	if changed(config.FlagPrefix) {
		s.Prefix = f.prefix
	}
	if changed(config.FlagDuration) {
		s.DefaultDuration = f.duration
	}
	if changed(config.FlagCalendar) {
		s.Calendars = f.calendars
	}
	if changed(config.FlagOnBad) {
		s.OnBadRecord = strings.ToLower(f.onBad)
	}
	if changed(config.FlagAlarm) {
		s.Alarm = f.alarm
	}
	if changed(config.FlagTimezone) {
		s.Timezone = f.timezone
	}
	if changed(config.FlagLanguage) {
		s.Language = f.lang
	}
	if changed(config.FlagPort) {
		s.Port = f.port
	}
	if changed(config.FlagRefresh) {
		s.RefreshMinutes = f.refresh
	}
	if changed(config.FlagCalName) {
		s.CalendarName = f.calName
	}
	if changed(config.FlagColumn) {
		cols, err := parseColumnFlags(f.columns)
		if err != nil {
			return err
		}
		if s.Columns == nil {
			s.Columns = map[string]string{}
		}
		for role, col := range cols {
			for k := range s.Columns {
				if strings.EqualFold(k, role) {
					delete(s.Columns, k)
				}
			}
			s.Columns[role] = col
		}
	}

	switch s.OnBadRecord {
	case config.PolicyAsk, config.PolicySkip, config.PolicyAbort:
	default:
		return fmt.Errorf("%s: %q", config.ErrPolicy, s.OnBadRecord)
	}
	return nil
}

// parseColumnFlags reads Role=Column pairs. Role names are validated here so
// typos fail before the sheet is loaded.
func parseColumnFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, col, ok := strings.Cut(pair, "=")
		name, col = strings.TrimSpace(name), strings.TrimSpace(col)
		if !ok || name == "" || col == "" {
			return nil, fmt.Errorf("%s: %q", config.ErrColumnSpec, pair)
		}
		role, err := engine.ParseRole(name)
		if err != nil {
			return nil, err
		}
		if _, err := engine.ParseColumn(col); err != nil {
			return nil, err
		}
		out[string(role)] = col
	}
	return out, nil
}

// newJob resolves settings into generator inputs.
func newJob(s *config.Settings) (*job, error) {
	dur, err := engine.ParseDuration(s.DefaultDuration)
	if err != nil {
		return nil, err
	}

	var loc *time.Location
	if s.Timezone != "" {
		loc, err = time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrTimezone, err)
		}
	}

	cols, err := engine.RoleMapFromSpec(s.Columns)
	if err != nil {
		return nil, err
	}

	return &job{
		opts: engine.Options{
			DefaultYear:     s.DefaultYear,
			Prefix:          s.Prefix,
			DefaultDuration: &dur,
			Calendars:       append([]string(nil), s.Calendars...),
			Location:        loc,
			Alarm:           s.Alarm,
			CalendarName:    s.CalendarName,
		},
		cols:   cols,
		sheet:  s.Sheet,
		policy: s.OnBadRecord,
	}, nil
}
