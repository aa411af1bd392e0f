package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// Interval is the wall-clock span of an event within one day.
type Interval struct {
	StartHour int
	StartMin  int
	EndHour   int
	EndMin    int
}

// Start renders the start as HH:MM.
func (iv Interval) Start() string {
	return fmt.Sprintf(config.TimeFormatHHMM, iv.StartHour, iv.StartMin)
}

// End renders the end as HH:MM.
func (iv Interval) End() string {
	return fmt.Sprintf(config.TimeFormatHHMM, iv.EndHour, iv.EndMin)
}

// Duration is an event length in hours and minutes.
type Duration struct {
	Hours   int
	Minutes int
}

func (d Duration) String() string {
	return fmt.Sprintf("%d:%02d", d.Hours, d.Minutes)
}

// DefaultDuration is used when no End, Duration or configured value is given.
var DefaultDuration = Duration{Hours: config.DefaultDurationHours, Minutes: config.DefaultDurationMinutes}

var (
	durationSettingRE = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
	clockRE           = regexp.MustCompile(`^(\d\d?)[:.]?(\d\d)`)
	durationCellRE    = regexp.MustCompile(`^(\d\d?)(?:[:.](\d\d))?`)
	tbaRE             = regexp.MustCompile(`(?i)TBA|TBC|^-+$`)
	notApplicableRE   = regexp.MustCompile(`(?i)^N/?A$`)
	plausibleStartRE  = regexp.MustCompile(`(?i)\d+[:.]?\d+|TB[AC]|^N/?A$|^-+$`)
	multiRaceRE       = regexp.MustCompile(`\d\D+\d`)
)

// ParseDuration reads a configured duration written as "H" or "H:MM",
// bounded to 0-23 hours and 0-59 minutes.
func ParseDuration(text string) (Duration, error) {
	m := durationSettingRE.FindStringSubmatch(text)
	if m == nil {
		return Duration{}, fmt.Errorf("%s: %q", config.ErrDurationFormat, text)
	}
	d := Duration{}
	d.Hours, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		d.Minutes, _ = strconv.Atoi(m[2])
	}
	if d.Hours > config.MaxDurationHours || d.Minutes > config.MaxDurationMinutes {
		return Duration{}, fmt.Errorf("%s: %q", config.ErrDurationRange, text)
	}
	return d, nil
}

// plausibleStart reports whether a Start cell looks like a time or a
// placeholder. Rows failing this are headers or notes.
func plausibleStart(text string) bool {
	return plausibleStartRE.MatchString(text)
}

// TimeFields are the time-related cells of one row.
type TimeFields struct {
	Start    string
	End      string
	Duration string
	Title    string
}

// TimeResult is the outcome of ParseInterval.
type TimeResult struct {
	Interval Interval
	// Suffix is appended to the title (placeholder starts only).
	Suffix   string
	Warnings []Warning
}

var errStartTime = errors.New(config.ErrStartUnknown)

// ParseInterval derives the event interval. End wins over Duration, which
// wins over the default; placeholder starts use a fixed window. Only an
// unreadable start is an error.
func ParseInterval(f TimeFields, def Duration) (TimeResult, error) {
	var res TimeResult

	h, m, ok := parseClock(f.Start)
	if !ok {
		switch {
		case tbaRE.MatchString(f.Start):
			res.Interval = Interval{StartHour: config.TBAStartHour, EndHour: config.TBAEndHour}
			res.Suffix = config.TBASuffix
			return res, nil
		case notApplicableRE.MatchString(f.Start):
			res.Interval = Interval{StartHour: config.NAStartHour, EndHour: config.NAEndHour}
			return res, nil
		}
		return res, fmt.Errorf("%w %q", errStartTime, f.Start)
	}
	if h > 23 || m > 59 {
		return res, fmt.Errorf("%w %q: %s", errStartTime, f.Start, config.ErrTimeRange)
	}

	iv := Interval{StartHour: h, StartMin: m}

	if f.End != "" {
		eh, em, ok := parseClock(f.End)
		if ok && eh <= 23 && em <= 59 {
			iv.EndHour, iv.EndMin = eh, em
			if iv.EndHour*60+iv.EndMin <= iv.StartHour*60+iv.StartMin {
				res.Warnings = append(res.Warnings, Warning{
					Kind:    WarnEndNotAfterStart,
					Message: fmt.Sprintf("end %s is not after start %s", iv.End(), iv.Start()),
				})
			}
			res.Interval = iv
			return res, nil
		}
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarnEndUnparsed,
			Message: fmt.Sprintf("%s %q", config.ErrTimeUnknown, f.End),
		})
	}

	add := def
	if d, ok := parseDurationCell(f.Duration); ok {
		add = d
	} else {
		if f.Duration != "" {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    WarnDurationUnparsed,
				Message: fmt.Sprintf("%s %q", config.ErrDurationUnknown, f.Duration),
			})
		}
		if multiRaceRE.MatchString(f.Title) {
			add.Hours += config.ExtraRaceHours
		}
	}

	iv.EndHour = iv.StartHour + add.Hours
	iv.EndMin = iv.StartMin + add.Minutes
	for iv.EndMin >= 60 {
		iv.EndHour++
		iv.EndMin -= 60
	}
	if iv.EndHour >= 24 {
		res.Warnings = append(res.Warnings, Warning{
			Kind: WarnMidnightClamp,
			Message: fmt.Sprintf("event starting %s would end %02d:%02d, clamped",
				iv.Start(), iv.EndHour, iv.EndMin),
		})
		iv.EndHour, iv.EndMin = config.ClampHour, config.ClampMinute
	}

	res.Interval = iv
	return res, nil
}

// parseClock reads H:MM, HH.MM, HMM or HHMM at the start of text. It does
// not range check.
func parseClock(text string) (int, int, bool) {
	m := clockRE.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return h, mins, true
}

func parseDurationCell(text string) (Duration, bool) {
	m := durationCellRE.FindStringSubmatch(text)
	if m == nil {
		return Duration{}, false
	}
	d := Duration{}
	d.Hours, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		d.Minutes, _ = strconv.Atoi(m[2])
	}
	return d, true
}
