package engine

import (
	"time"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// EventRecord is one accepted row, ready to be serialized.
type EventRecord struct {
	Line        int
	Date        ParsedDate
	Interval    Interval
	Title       string
	Highwater   string
	CalendarTag string

	UID   string
	Start time.Time // UTC
	End   time.Time // UTC

	// Alarm is the local alarm time on the HHMM scale (1730 = 17:30).
	Alarm int
}

// Summary is the event summary line: prefix, title and the highwater note.
func (e EventRecord) Summary(prefix string) string {
	s := e.Title
	if prefix != "" {
		s = prefix + " " + s
	}
	if e.Highwater != "" {
		s += config.HighwaterLabel + e.Highwater
	}
	return s
}

// alarmHHMM subtracts the alarm lead time from a start on the HHMM scale.
// A negative result means the alarm would fall on the previous day.
func alarmHHMM(hour, minute int) (int, bool) {
	alarm := hour*100 + minute - config.AdvanceHHMM
	if alarm < 0 {
		return 0, false
	}
	return alarm, true
}
