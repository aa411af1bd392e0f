package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// ParsedDate is a calendar date read from a row. Day and month are not range
// checked until validation.
type ParsedDate struct {
	Day           int
	Month         int
	Year          int
	YearDefaulted bool
}

// String renders the date as D/M/YYYY.
func (d ParsedDate) String() string {
	return fmt.Sprintf("%d/%d/%04d", d.Day, d.Month, d.Year)
}

var (
	monthNumberRE = regexp.MustCompile(`^\d\d?$`)
	dayCellRE     = regexp.MustCompile(`(?i)^(\d\d?)(st|nd|rd|th)?`)
	dateSlashRE   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
	delimiterRE   = regexp.MustCompile(`[,\s]+`)
	yearTokenRE   = regexp.MustCompile(`^\d{4}$`)
	dayTokenRE    = regexp.MustCompile(`^(\d{1,2})(ST|ND|RD|TH)?$`)
	letterTokenRE = regexp.MustCompile(`^[A-Z]+$`)
)

var monthNames = []string{
	"JANUARY", "FEBRUARY", "MARCH", "APRIL", "MAY", "JUNE",
	"JULY", "AUGUST", "SEPTEMBER", "OCTOBER", "NOVEMBER", "DECEMBER",
}

var weekdayNames = []string{
	"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY",
}

// monthPrefixes maps JAN..DEC to 1..12.
var monthPrefixes = func() map[string]int {
	m := make(map[string]int, len(monthNames))
	for i, name := range monthNames {
		m[name[:config.MonthPrefixLen]] = i + 1
	}
	return m
}()

// ParseDayMonth reads a date split across a Day and a Month column. The year
// always comes from defaultYear.
func ParseDayMonth(dayText, monthText string, defaultYear int) (ParsedDate, error) {
	month, err := parseMonthCell(monthText)
	if err != nil {
		return ParsedDate{}, err
	}

	m := dayCellRE.FindStringSubmatch(dayText)
	if m == nil {
		return ParsedDate{}, fmt.Errorf("%s %q", config.ErrDayUnknown, dayText)
	}
	day, _ := strconv.Atoi(m[1])

	return ParsedDate{Day: day, Month: month, Year: defaultYear, YearDefaulted: true}, nil
}

// parseMonthCell accepts a 1-2 digit number or a name matched on its first
// three letters.
func parseMonthCell(text string) (int, error) {
	if monthNumberRE.MatchString(text) {
		n, _ := strconv.Atoi(text)
		return n, nil
	}
	upper := strings.ToUpper(text)
	if len(upper) >= config.MonthPrefixLen {
		if n, ok := monthPrefixes[upper[:config.MonthPrefixLen]]; ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%s %q", config.ErrMonthUnknown, text)
}

// ParseDateText reads a free-text date. It tries, in order, a spreadsheet
// date serial, D/M/Y, then loose tokens such as "Sunday 12th March 2024".
// A missing year is filled from defaultYear.
func ParseDateText(text string, defaultYear int) (ParsedDate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedDate{}, fmt.Errorf("%s %q", config.ErrDateUnknown, text)
	}

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		t, err := serialDate(v)
		if err != nil {
			return ParsedDate{}, fmt.Errorf("%s %q: %w", config.ErrDateUnknown, text, err)
		}
		return ParsedDate{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}, nil
	}

	if m := dateSlashRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += config.TwoDigitYearBase
		}
		if !validYear(year) {
			return ParsedDate{}, fmt.Errorf("%s %q: %s", config.ErrDateUnknown, text, config.ErrYearRange)
		}
		return ParsedDate{Day: day, Month: month, Year: year}, nil
	}

	return parseDateTokens(text, defaultYear)
}

func parseDateTokens(text string, defaultYear int) (ParsedDate, error) {
	var (
		day, month, year int
		haveDay, haveMon bool
		haveYear         bool
	)

	for _, tok := range delimiterRE.Split(strings.ToUpper(text), -1) {
		tok = strings.TrimRight(tok, ".")
		if tok == "" || isWeekday(tok) {
			continue
		}
		switch {
		case yearTokenRE.MatchString(tok):
			if !haveYear {
				year, _ = strconv.Atoi(tok)
				haveYear = true
			}
		case dayTokenRE.MatchString(tok):
			if !haveDay {
				day, _ = strconv.Atoi(dayTokenRE.FindStringSubmatch(tok)[1])
				haveDay = true
			}
		default:
			if n, ok := monthFromName(tok); ok && !haveMon {
				month = n
				haveMon = true
			}
		}
	}

	if !haveDay || !haveMon {
		return ParsedDate{}, fmt.Errorf("%s %q", config.ErrDateUnknown, text)
	}
	if !haveYear {
		return ParsedDate{Day: day, Month: month, Year: defaultYear, YearDefaulted: true}, nil
	}
	if !validYear(year) {
		return ParsedDate{}, fmt.Errorf("%s %q: %s", config.ErrDateUnknown, text, config.ErrYearRange)
	}
	return ParsedDate{Day: day, Month: month, Year: year}, nil
}

// isWeekday reports whether an upper-case token is a weekday name or a
// prefix of one ("SUN", "TUES").
func isWeekday(tok string) bool {
	if len(tok) < config.MinWeekdayPrefixLen || !letterTokenRE.MatchString(tok) {
		return false
	}
	for _, name := range weekdayNames {
		if strings.HasPrefix(name, tok) {
			return true
		}
	}
	return false
}

// monthFromName matches an upper-case token against full month names by prefix.
func monthFromName(tok string) (int, bool) {
	if len(tok) < config.MonthPrefixLen || !letterTokenRE.MatchString(tok) {
		return 0, false
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, tok) {
			return i + 1, true
		}
	}
	return 0, false
}

// validYear reports whether y has four digits.
func validYear(y int) bool {
	return y >= config.MinYear && y <= config.MaxYear
}

// validDate reports whether the triple names a real calendar day.
func validDate(d ParsedDate) bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Month() == time.Month(d.Month) && t.Day() == d.Day
}
