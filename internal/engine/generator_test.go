package engine_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// MockHandler records bad-record decisions using `testify/mock`.
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) HandleBadRecord(ctx context.Context, rec engine.BadRecord) engine.Decision {
	args := m.Called(ctx, rec)
	return args.Get(0).(engine.Decision)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

var fixedNow = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func newTestGenerator(h engine.BadRecordHandler) *engine.Generator {
	n := 0
	return &engine.Generator{
		Clock: MockClock{CurrentTime: fixedNow},
		NewUID: func() string {
			n++
			return fmt.Sprintf("uid-%d", n)
		},
		OnBadRecord: h,
	}
}

// columns builds a mapping from role -> index pairs.
func columns(t *testing.T, pairs map[engine.Role]int) *engine.RoleMap {
	t.Helper()
	m := engine.NewRoleMap()
	for role, col := range pairs {
		m.Assign(role, col)
	}
	require.NoError(t, m.Ready())
	return m
}

// dateCols is the Date/Start/End/Event/HW layout used by most tests.
func dateCols(t *testing.T) *engine.RoleMap {
	return columns(t, map[engine.Role]int{
		engine.RoleDate:  0,
		engine.RoleStart: 1,
		engine.RoleEnd:   2,
		engine.RoleEvent: 3,
		engine.RoleHW:    4,
	})
}

func utcOptions() engine.Options {
	return engine.Options{DefaultYear: 2024, Location: time.UTC}
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestGenerate_EndToEnd(t *testing.T) {
	rows := []engine.Row{{"Sun 1 Jan 2024", "10:00", "", "Race A", ""}}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)

	out := string(res.ICS)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"), "Exactly one event expected")
	assert.Contains(t, out, "DTSTART:20240101T100000Z")
	assert.Contains(t, out, "DTEND:20240101T120000Z")
	assert.Contains(t, out, "SUMMARY:Race A\r\n")
	assert.Contains(t, out, "UID:uid-1")
	assert.Contains(t, out, "DTSTAMP:20240601T083000Z")
	assert.Contains(t, out, "CREATED:20240601T083000Z")
	assert.Contains(t, out, "CALSCALE:GREGORIAN")
	assert.NotContains(t, out, "TZID", "All times are emitted in UTC")
	assert.NotContains(t, out, "BEGIN:VALARM", "Alarms are off by default")

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, 1, ev.Line)
	assert.Equal(t, engine.ParsedDate{Day: 1, Month: 1, Year: 2024}, ev.Date)
	assert.Equal(t, 800, ev.Alarm)
	assert.Equal(t, engine.Stats{Rows: 1, Accepted: 1}, res.Stats)
}

// TestGenerate_OutputParses feeds the output to an independent iCalendar parser.
func TestGenerate_OutputParses(t *testing.T) {
	rows := []engine.Row{
		{"Sat 6 Jan 2024", "14:00", "16:30", "Winter Series", "15:12"},
		{"Sun 7 Jan 2024", "TBA", "", "Working party", ""},
	}
	opts := utcOptions()
	opts.Alarm = true
	opts.CalendarName = "Club"

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(bytes.NewReader(res.ICS))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 1, 6, 14, 0, 0, 0, time.UTC)))

	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2024, 1, 6, 16, 30, 0, 0, time.UTC)))

	assert.Equal(t, "uid-2", events[1].Id())
	assert.Len(t, events[1].Alarms(), 1)

	out := string(res.ICS)
	assert.Contains(t, out, "X-WR-CALNAME:Club")
	assert.Contains(t, out, "TRIGGER:-PT2H")
	assert.Contains(t, out, "ACTION:DISPLAY")
	assert.Contains(t, out, `SUMMARY:Winter Series\, HW=15:12`)
	assert.Contains(t, out, "SUMMARY:Working party (times TBC)")
}

func TestGenerate_PrefixAndHighwater(t *testing.T) {
	rows := []engine.Row{{"3 Feb 2024", "9:45", "", "Frostbite", "11:02"}}
	opts := utcOptions()
	opts.Prefix = "WYC"

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)

	assert.Equal(t, "WYC Frostbite, HW=11:02", res.Events[0].Summary(opts.Prefix))
	assert.Contains(t, string(res.ICS), `SUMMARY:WYC Frostbite\, HW=11:02`)
	assert.Contains(t, string(res.ICS), "DTSTART:20240203T094500Z")
}

func TestGenerate_DurationDefault(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantEnd string
	}{
		{"Single race", "Race 1", "DTEND:20240101T120000Z"},
		{"Back to back races", "Race 1, Race 2", "DTEND:20240101T130000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []engine.Row{{"1 Jan 2024", "10:00", "", tt.title, ""}}
			res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
			require.NoError(t, err)
			assert.Contains(t, string(res.ICS), tt.wantEnd)
		})
	}
}

func TestGenerate_ConfiguredDuration(t *testing.T) {
	d, err := engine.ParseDuration("1:30")
	require.NoError(t, err)

	opts := utcOptions()
	opts.DefaultDuration = &d

	rows := []engine.Row{{"1 Jan 2024", "10:45", "", "Race", ""}}
	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
	require.NoError(t, err)
	assert.Contains(t, string(res.ICS), "DTEND:20240101T121500Z")
}

func TestGenerate_DurationColumnAndMidnightClamp(t *testing.T) {
	cols := columns(t, map[engine.Role]int{
		engine.RoleDate:     0,
		engine.RoleStart:    1,
		engine.RoleDuration: 2,
		engine.RoleEvent:    3,
	})
	rows := []engine.Row{
		{"1 Jan 2024", "23:30", "1:00", "Night sail"},
		{"2 Jan 2024", "10:00", "3", "Long race"},
	}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, cols, utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	assert.Equal(t, engine.Interval{StartHour: 23, StartMin: 30, EndHour: 23, EndMin: 59}, res.Events[0].Interval)
	assert.Contains(t, string(res.ICS), "DTEND:20240101T235900Z", "Never wraps past midnight")
	assert.Equal(t, 13, res.Events[1].Interval.EndHour)

	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, engine.WarnMidnightClamp, res.Warnings[0].Kind)
	assert.Equal(t, 1, res.Warnings[0].Line)
}

func TestGenerate_Placeholders(t *testing.T) {
	rows := []engine.Row{
		{"1 Jan 2024", "TBA", "", "Regatta", ""},
		{"2 Jan 2024", "N/A", "", "Clubhouse open", ""},
	}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	window := engine.Interval{StartHour: 9, EndHour: 17}
	assert.Equal(t, window, res.Events[0].Interval)
	assert.Equal(t, "Regatta"+config.TBASuffix, res.Events[0].Title)
	assert.Equal(t, window, res.Events[1].Interval)
	assert.Equal(t, "Clubhouse open", res.Events[1].Title)
}

func TestGenerate_BadRecordSkip(t *testing.T) {
	rows := []engine.Row{
		{"Date", "Start", "End", "Event", "HW"},
		{"1 Jan 2024", "garbage", "", "Race A", ""},
		{"2 Jan 2024", "11:00", "", "Race B", ""},
	}

	h := new(MockHandler)
	h.On("HandleBadRecord", mock.Anything, mock.MatchedBy(func(r engine.BadRecord) bool {
		return r.Line == 2 && r.Event == "Race A" && strings.Contains(r.Reason, config.ErrStartUnknown)
	})).Return(engine.Continue).Once()

	res, err := newTestGenerator(h).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, "Race B", res.Events[0].Title)
	assert.Equal(t, 1, res.Stats.Bad)
	assert.Equal(t, 2, res.Stats.Skipped, "Header row and bad row are both skipped")
	h.AssertExpectations(t)
}

func TestGenerate_BadRecordAbort(t *testing.T) {
	rows := []engine.Row{
		{"1 Jan 2024", "10:00", "", "Race A", ""},
		{"31 Feb 2024", "10:00", "", "Race B", ""},
		{"2 Mar 2024", "10:00", "", "Race C", ""},
	}

	h := new(MockHandler)
	h.On("HandleBadRecord", mock.Anything, mock.Anything).Return(engine.Abort).Once()

	res, err := newTestGenerator(h).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrAborted)
	assert.Nil(t, res, "Partial output is discarded")

	rec := h.Calls[0].Arguments.Get(1).(engine.BadRecord)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, "Race B", rec.Event)
	h.AssertExpectations(t)
}

func TestGenerate_BadRecordKinds(t *testing.T) {
	cols := columns(t, map[engine.Role]int{
		engine.RoleDay:   0,
		engine.RoleMonth: 1,
		engine.RoleStart: 2,
		engine.RoleEvent: 3,
	})
	rows := []engine.Row{
		{"12th", "Smarch", "10:00", "Bad month"},
		{"??", "Mar", "10:00", "Bad day"},
		{"30", "2", "10:00", "Out of range"},
		{"12th", "Mar", "25:00", "Bad start"},
		{"12th", "Mar", "10.30", "Good"},
	}

	var got []engine.BadRecord
	h := engine.BadRecordFunc(func(_ context.Context, r engine.BadRecord) engine.Decision {
		got = append(got, r)
		return engine.Continue
	})

	res, err := newTestGenerator(h).Generate(context.Background(), rows, cols, utcOptions())
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Contains(t, got[0].Reason, config.ErrMonthUnknown)
	assert.Contains(t, got[1].Reason, config.ErrDayUnknown)
	assert.Contains(t, got[2].Reason, config.ErrDayRange)
	assert.Contains(t, got[3].Reason, config.ErrTimeRange)

	require.Len(t, res.Events, 1)
	assert.Contains(t, string(res.ICS), "DTSTART:20240312T103000Z")
}

func TestGenerate_ImpossibleYearsAreBadRecords(t *testing.T) {
	rows := []engine.Row{
		{"Infinity", "10:00", "", "Race A", ""},
		{"1/2/024", "10:00", "", "Race B", ""},
		{"NaN", "10:00", "", "Race C", ""},
		{"1e300", "10:00", "", "Race D", ""},
		{"2 Jan 2024", "10:00", "", "Race E", ""},
	}

	var got []engine.BadRecord
	h := engine.BadRecordFunc(func(_ context.Context, r engine.BadRecord) engine.Decision {
		got = append(got, r)
		return engine.Continue
	})

	res, err := newTestGenerator(h).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)

	require.Len(t, got, 4)
	for _, r := range got {
		assert.Contains(t, r.Reason, config.ErrDateUnknown, "line %d", r.Line)
	}
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Race E", res.Events[0].Title)
	assert.Equal(t, 4, res.Stats.Bad)
	assert.NotContains(t, string(res.ICS), "DTSTART:-")
	assert.Empty(t, res.Warnings)
}

func TestGenerate_NilHandlerSkips(t *testing.T) {
	rows := []engine.Row{
		{"1 Jan 2024", "99:99", "", "Race A", ""},
		{"2 Jan 2024", "10:00", "", "Race B", ""},
	}
	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	assert.Equal(t, 1, res.Stats.Bad)
}

func TestGenerate_Warnings(t *testing.T) {
	rows := []engine.Row{
		{"1 Jan 2023", "10:00", "", "Old year", ""},
		{"2 Jan 2024", "10:00", "09:00", "Backwards", ""},
		{"3 Jan 2024", "10:00", "", "", ""},
		{"4 Jan 2024", "01:30", "", "Early", ""},
		{"5 Jan 2024", "10:00", "soon", "Vague end", ""},
	}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)
	assert.Len(t, res.Events, 4, "Only the row without a title is dropped")

	kinds := make(map[engine.WarningKind]int)
	for _, w := range res.Warnings {
		kinds[w.Kind] = w.Line
	}
	assert.Equal(t, map[engine.WarningKind]int{
		engine.WarnYearMismatch:     1,
		engine.WarnEndNotAfterStart: 2,
		engine.WarnMissingTitle:     3,
		engine.WarnAlarmPrevDay:     4,
		engine.WarnEndUnparsed:      5,
	}, kinds)
	assert.Equal(t, len(res.Warnings), res.Stats.Warnings)

	// Year mismatch is a hint only: the explicit year is kept.
	assert.Contains(t, string(res.ICS), "DTSTART:20230101T100000Z")
	// Unparseable end falls back to the default duration.
	assert.Contains(t, string(res.ICS), "DTEND:20240105T120000Z")
}

func TestGenerate_CalendarFiltering(t *testing.T) {
	cols := columns(t, map[engine.Role]int{
		engine.RoleDate:     0,
		engine.RoleStart:    1,
		engine.RoleEvent:    2,
		engine.RoleCalendar: 3,
	})
	rows := []engine.Row{
		{"Date", "Start", "Event", "Calendar"},
		{"1 Jan 2024", "10:00", "Race 1", "Dinghy"},
		{"2 Jan 2024", "10:00", "Race 2", "Keelboat"},
		{"3 Jan 2024", "10:00", "Race 3", "Dinghy"},
	}

	assert.Equal(t, []string{"Dinghy", "Keelboat"}, engine.FindCalendars(rows, cols))

	opts := utcOptions()
	opts.Calendars = []string{"Dinghy"}
	res, err := newTestGenerator(nil).Generate(context.Background(), rows, cols, opts)
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	for _, ev := range res.Events {
		assert.Equal(t, "Dinghy", ev.CalendarTag)
	}

	opts.Calendars = nil
	res, err = newTestGenerator(nil).Generate(context.Background(), rows, cols, opts)
	require.NoError(t, err)
	assert.Len(t, res.Events, 3, "An empty filter exports every calendar")
}

func TestGenerate_LocalToUTC(t *testing.T) {
	opts := utcOptions()
	opts.Location = time.FixedZone("BST", 3600)

	rows := []engine.Row{{"1 Jul 2024", "10:00", "11:00", "Summer race", ""}}
	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
	require.NoError(t, err)

	assert.Contains(t, string(res.ICS), "DTSTART:20240701T090000Z")
	assert.Contains(t, string(res.ICS), "DTEND:20240701T100000Z")
}

// TestGenerate_LocalToUTC_DST converts through the zone database, so the
// offset follows the event's own date.
func TestGenerate_LocalToUTC_DST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	opts := utcOptions()
	opts.Location = london

	tests := []struct {
		date      string
		wantStart string
		wantEnd   string
	}{
		{"13 Jan 2024", "DTSTART:20240113T100000Z", "DTEND:20240113T110000Z"},
		{"13 Jul 2024", "DTSTART:20240713T090000Z", "DTEND:20240713T100000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			rows := []engine.Row{{tt.date, "10:00", "11:00", "Race", ""}}
			res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
			require.NoError(t, err)

			assert.Contains(t, string(res.ICS), tt.wantStart)
			assert.Contains(t, string(res.ICS), tt.wantEnd)
		})
	}
}

func TestGenerate_DefaultYearFromClock(t *testing.T) {
	opts := engine.Options{Location: time.UTC}
	rows := []engine.Row{{"12 Mar", "10:00", "", "Race", ""}}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), opts)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, fixedNow.Year(), res.Events[0].Date.Year)
	assert.True(t, res.Events[0].Date.YearDefaulted)
	assert.Empty(t, res.Warnings)
}

func TestGenerate_EmptyProducesStub(t *testing.T) {
	rows := []engine.Row{{"Date", "Start", "End", "Event", "HW"}, {}}

	res, err := newTestGenerator(nil).Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(res.ICS))
	assert.Empty(t, res.Events)

	_, err = ics.ParseCalendar(bytes.NewReader(res.ICS))
	assert.NoError(t, err)
}

func TestGenerate_ColumnsIncomplete(t *testing.T) {
	cols := engine.NewRoleMap()
	cols.Assign(engine.RoleDate, 0)

	_, err := newTestGenerator(nil).Generate(context.Background(), nil, cols, utcOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrColumnsIncomplete)
	assert.Contains(t, err.Error(), "Start")
	assert.Contains(t, err.Error(), "Event")
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []engine.Row{{"1 Jan 2024", "10:00", "", "Race", ""}}
	_, err := newTestGenerator(nil).Generate(ctx, rows, dateCols(t), utcOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGenerator_RandomUIDs(t *testing.T) {
	g := engine.NewGenerator(nil)
	rows := []engine.Row{
		{"1 Jan 2024", "10:00", "", "Race A", ""},
		{"2 Jan 2024", "10:00", "", "Race B", ""},
	}

	res, err := g.Generate(context.Background(), rows, dateCols(t), utcOptions())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Len(t, res.Events[0].UID, 36)
	assert.NotEqual(t, res.Events[0].UID, res.Events[1].UID)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "myCalendar.ics", engine.OutputName(nil))
	assert.Equal(t, "DinghyKeelboat.ics", engine.OutputName([]string{"Dinghy", "Keelboat"}))
}
