package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted, user-editable configuration consumed by the CLI.
// Command-line flags override individual fields per invocation.
type Settings struct {
	// DefaultYear is used for dates without a year. 0 means the current year.
	DefaultYear int `yaml:"default_year"`

	// Prefix is prepended (with a space) to every event title.
	Prefix string `yaml:"prefix"`

	// DefaultDuration is the event length when neither End nor Duration is
	// available, written as "H" or "H:MM".
	DefaultDuration string `yaml:"default_duration"`

	// Calendars restricts the export to these calendar tags. Empty exports all.
	Calendars []string `yaml:"calendars"`

	// Columns maps a role name (Date, Start, ...) to a zero-based index or a
	// spreadsheet column letter.
	Columns map[string]string `yaml:"columns"`

	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// Timezone is the IANA zone the sheet times are written in. Empty uses the
	// host timezone.
	Timezone string `yaml:"timezone"`

	// Language selects the prompt translations.
	Language string `yaml:"language"`

	// Alarm enables a VALARM two hours before each event.
	Alarm bool `yaml:"alarm"`

	// CalendarName, if set, is emitted as X-WR-CALNAME.
	CalendarName string `yaml:"calendar_name,omitempty"`

	// OnBadRecord is one of "ask", "skip" or "abort".
	OnBadRecord string `yaml:"on_bad_record"`

	// Port and RefreshMinutes configure the serve command.
	Port           string `yaml:"port"`
	RefreshMinutes int    `yaml:"refresh_minutes"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		DefaultDuration: DefaultDurationText,
		Calendars:       []string{},
		Columns:         map[string]string{},
		Language:        DefaultLanguage,
		OnBadRecord:     PolicyAsk,
		Port:            DefaultPort,
		RefreshMinutes:  DefaultRefreshMin,
	}
}

// Normalize fills in missing or invalid values so that partially-filled
// files still behave correctly.
func (s *Settings) Normalize() {
	if s.DefaultYear != 0 && (s.DefaultYear < MinYear || s.DefaultYear > MaxYear) {
		s.DefaultYear = 0
	}
	if s.DefaultDuration == "" {
		s.DefaultDuration = DefaultDurationText
	}
	if s.Calendars == nil {
		s.Calendars = []string{}
	}
	if s.Columns == nil {
		s.Columns = map[string]string{}
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	switch s.OnBadRecord {
	case PolicyAsk, PolicySkip, PolicyAbort:
	default:
		s.OnBadRecord = PolicyAsk
	}
	if s.Port == "" {
		s.Port = DefaultPort
	}
	if s.RefreshMinutes < 0 {
		s.RefreshMinutes = DefaultRefreshMin
	}
}

// DefaultSettingsPath returns <user config dir>/<AppID>/config.yaml.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, SettingsFileName), nil
}

// LoadSettings reads settings from the given YAML path.
//
// If the file does not exist, a default file is written (0600) and the
// defaults are returned. Existing files are unmarshalled and normalized.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New(ErrSettingsPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := DefaultSettings()
			if err := SaveSettings(path, s); err != nil {
				// Even if save fails, return the defaults so the caller can go on.
				return s, err
			}
			slog.Info(MsgSettingsCreate,
				LogKeyComponent, CompSettings,
				LogKeyPath, path)
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrSettingsLoad, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsLoad, err)
	}
	s.Normalize()

	slog.Debug(MsgSettingsLoaded,
		LogKeyComponent, CompSettings,
		LogKeyPath, path)
	return &s, nil
}

// SaveSettings writes settings atomically via a temp file and rename, with
// 0600 permissions on the final file.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		return errors.New(ErrSettingsPath)
	}
	if s == nil {
		return errors.New(ErrSettingsNil)
	}

	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}

	tmp, err := os.CreateTemp(dir, SettingsTempGlob)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	if err := os.Chmod(tmpName, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsSave, err)
	}
	return nil
}
