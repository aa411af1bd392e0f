package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-sheetcal/internal/config"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"Empty", EmptyCell(), ""},
		{"Time serial noon", NumberCell(0.5), "12:00"},
		{"Time serial evening", NumberCell(0.75), "18:00"},
		{"Time serial rounding", NumberCell(0.4375), "10:30"},
		{"Decimal hours", NumberCell(12.30), "12:30"},
		{"Decimal hours single digit", NumberCell(9.05), "09:05"},
		{"Date serial", NumberCell(45292), "Mon Jan 01 2024"},
		{"Threshold is exclusive", NumberCell(config.SerialEpochThreshold), "43831"},
		{"Small integer", NumberCell(7), "7"},
		{"Month-first slash date", TextCell("1/13/2024"), "13/1/2024"},
		{"Month-first two digit year", TextCell("12/25/24"), "25/12/24"},
		{"Day-first slash date", TextCell("13/1/2024"), "13/1/2024"},
		{"Ambiguous slash date", TextCell("3/4/2024"), "3/4/2024"},
		{"Text trimmed", TextCell("  Race A "), "Race A"},
		{"Placeholder", TextCell("TBA"), "TBA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.cell))
		})
	}
}

// TestNormalize_Idempotent checks that canonical text survives normalization.
func TestNormalize_Idempotent(t *testing.T) {
	raw := []Cell{
		NumberCell(0.5), NumberCell(12.30), NumberCell(45292), NumberCell(17),
		TextCell("1/13/2024"), TextCell("13/1/2024"), TextCell("Sun 1 Jan 2024"),
		TextCell("10:00"), TextCell("N/A"), TextCell(""),
	}
	for _, c := range raw {
		once := Normalize(c)
		assert.Equal(t, once, Normalize(TextCell(once)), "value %q", once)
	}
}

func TestNormalizeRows(t *testing.T) {
	rows := NormalizeRows([][]Cell{
		{TextCell(" 1 Jan 2024 "), NumberCell(0.4166666666666667), EmptyCell()},
		{},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"1 Jan 2024", "10:00", ""}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, "", rows[0].At(7))
}

func TestSniffCell(t *testing.T) {
	assert.Equal(t, EmptyCell(), SniffCell(""))
	assert.Equal(t, NumberCell(45292), SniffCell("45292"))
	assert.Equal(t, NumberCell(0.5), SniffCell("0.5"))
	assert.Equal(t, TextCell("NaN"), SniffCell("NaN"))
	assert.Equal(t, TextCell("10:00"), SniffCell("10:00"))
	assert.Equal(t, TextCell("0030"), SniffCell("0030"))
	assert.Equal(t, TextCell("0000"), SniffCell("0000"))
	assert.Equal(t, NumberCell(0), SniffCell("0"))
}

func TestParseDayMonth(t *testing.T) {
	tests := []struct {
		day, month string
		want       ParsedDate
		wantErr    string
	}{
		{"12", "3", ParsedDate{12, 3, 2024, true}, ""},
		{"12th", "Mar", ParsedDate{12, 3, 2024, true}, ""},
		{"1ST", "january", ParsedDate{1, 1, 2024, true}, ""},
		{"2nd", "SEPTEMBER", ParsedDate{2, 9, 2024, true}, ""},
		{"31", "13", ParsedDate{31, 13, 2024, true}, ""}, // range checked later
		{"x", "Mar", ParsedDate{}, config.ErrDayUnknown},
		{"12", "Smarch", ParsedDate{}, config.ErrMonthUnknown},
		{"12", "Ma", ParsedDate{}, config.ErrMonthUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.day+"/"+tt.month, func(t *testing.T) {
			got, err := ParseDayMonth(tt.day, tt.month, 2024)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseDayMonth_RoundTrip parses every day of a leap year and a common
// year back to the same date string.
func TestParseDayMonth_RoundTrip(t *testing.T) {
	for _, year := range []int{2023, 2024} {
		for d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
			want := fmt.Sprintf("%d/%d/%04d", d.Day(), int(d.Month()), d.Year())

			got, err := ParseDayMonth(strconv.Itoa(d.Day()), strconv.Itoa(int(d.Month())), year)
			require.NoError(t, err)
			assert.Equal(t, want, got.String())
			assert.NoError(t, checkDate(got))

			byName, err := ParseDayMonth(strconv.Itoa(d.Day())+"th", d.Month().String(), year)
			require.NoError(t, err)
			assert.Equal(t, want, byName.String())
		}
	}
}

func TestParseDateText(t *testing.T) {
	tests := []struct {
		text    string
		want    ParsedDate
		wantErr bool
	}{
		{"Sun 1 Jan 2024", ParsedDate{1, 1, 2024, false}, false},
		{"Sunday 12th March 2024", ParsedDate{12, 3, 2024, false}, false},
		{"Sat, 7 Sept 2024", ParsedDate{7, 9, 2024, false}, false},
		{"Tues. 5th Nov.", ParsedDate{5, 11, 2030, true}, false},
		{"12 Mar", ParsedDate{12, 3, 2030, true}, false},
		{"March 12", ParsedDate{12, 3, 2030, true}, false},
		{"1 Jan 2023 2024", ParsedDate{1, 1, 2023, false}, false},
		{"1/2/24", ParsedDate{1, 2, 2024, false}, false},
		{"25/12/2025", ParsedDate{25, 12, 2025, false}, false},
		{"45292", ParsedDate{1, 1, 2024, false}, false},
		{"Mon Jan 01 2024", ParsedDate{1, 1, 2024, false}, false},
		{"March", ParsedDate{}, true},
		{"12x", ParsedDate{}, true},
		{"Date", ParsedDate{}, true},
		{"", ParsedDate{}, true},
		{"-5", ParsedDate{}, true},
		{"NaN", ParsedDate{}, true},
		{"Infinity", ParsedDate{}, true},
		{"-Inf", ParsedDate{}, true},
		{"1e300", ParsedDate{}, true},
		{"1/2/024", ParsedDate{}, true},
		{"1/2/0024", ParsedDate{}, true},
		{"12 Mar 0999", ParsedDate{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseDateText(tt.text, 2030)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckDate(t *testing.T) {
	assert.NoError(t, checkDate(ParsedDate{29, 2, 2024, false}))
	assert.ErrorContains(t, checkDate(ParsedDate{29, 2, 2023, false}), config.ErrDayRange)
	assert.ErrorContains(t, checkDate(ParsedDate{0, 5, 2024, false}), config.ErrDayRange)
	assert.ErrorContains(t, checkDate(ParsedDate{1, 13, 2024, false}), config.ErrMonthRange)
	assert.ErrorContains(t, checkDate(ParsedDate{31, 4, 2024, false}), config.ErrDayRange)
	assert.ErrorContains(t, checkDate(ParsedDate{1, 1, 24, true}), config.ErrYearRange)
	assert.ErrorContains(t, checkDate(ParsedDate{1, 1, 10000, false}), config.ErrYearRange)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    Duration
		wantErr string
	}{
		{"2", Duration{2, 0}, ""},
		{"2:00", Duration{2, 0}, ""},
		{"1:30", Duration{1, 30}, ""},
		{"0:45", Duration{0, 45}, ""},
		{"23:59", Duration{23, 59}, ""},
		{"24", Duration{}, config.ErrDurationRange},
		{"1:60", Duration{}, config.ErrDurationRange},
		{"1:5", Duration{}, config.ErrDurationFormat},
		{"two", Duration{}, config.ErrDurationFormat},
		{"", Duration{}, config.ErrDurationFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "2:00", DefaultDuration.String())
}

func TestParseInterval(t *testing.T) {
	def := DefaultDuration
	tests := []struct {
		name       string
		in         TimeFields
		want       Interval
		wantSuffix string
		wantWarn   []WarningKind
	}{
		{"Default duration", TimeFields{Start: "10:00", Title: "Race 1"}, Interval{10, 0, 12, 0}, "", nil},
		{"Two races", TimeFields{Start: "10:00", Title: "Race 1, Race 2"}, Interval{10, 0, 13, 0}, "", nil},
		{"Three digit time", TimeFields{Start: "930", Title: "Race"}, Interval{9, 30, 11, 30}, "", nil},
		{"Dotted time", TimeFields{Start: "14.15", Title: "Race"}, Interval{14, 15, 16, 15}, "", nil},
		{"Explicit end", TimeFields{Start: "10:00", End: "10:45", Title: "Race 1, Race 2"}, Interval{10, 0, 10, 45}, "", nil},
		{"End before start", TimeFields{Start: "10:00", End: "09:00"}, Interval{10, 0, 9, 0}, "", []WarningKind{WarnEndNotAfterStart}},
		{"End equals start", TimeFields{Start: "10:00", End: "10:00"}, Interval{10, 0, 10, 0}, "", []WarningKind{WarnEndNotAfterStart}},
		{"Unparsed end", TimeFields{Start: "10:00", End: "late"}, Interval{10, 0, 12, 0}, "", []WarningKind{WarnEndUnparsed}},
		{"Duration column", TimeFields{Start: "10:30", Duration: "1.45"}, Interval{10, 30, 12, 15}, "", nil},
		{"Duration ignores races", TimeFields{Start: "10:00", Duration: "1", Title: "Race 1, Race 2"}, Interval{10, 0, 11, 0}, "", nil},
		{"Unparsed duration", TimeFields{Start: "10:00", Duration: "long"}, Interval{10, 0, 12, 0}, "", []WarningKind{WarnDurationUnparsed}},
		{"Midnight clamp", TimeFields{Start: "23:30", Duration: "1:00"}, Interval{23, 30, 23, 59}, "", []WarningKind{WarnMidnightClamp}},
		{"Default crosses midnight", TimeFields{Start: "22:30", Title: "Race 1 and 2"}, Interval{22, 30, 23, 59}, "", []WarningKind{WarnMidnightClamp}},
		{"TBA", TimeFields{Start: "TBA", End: "12:00"}, Interval{9, 0, 17, 0}, config.TBASuffix, nil},
		{"TBC lower case", TimeFields{Start: "times tbc"}, Interval{9, 0, 17, 0}, config.TBASuffix, nil},
		{"Dash", TimeFields{Start: "--"}, Interval{9, 0, 17, 0}, config.TBASuffix, nil},
		{"N/A", TimeFields{Start: "N/A", Duration: "1"}, Interval{9, 0, 17, 0}, "", nil},
		{"NA", TimeFields{Start: "na"}, Interval{9, 0, 17, 0}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseInterval(tt.in, def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Interval)
			assert.Equal(t, tt.wantSuffix, res.Suffix)

			var kinds []WarningKind
			for _, w := range res.Warnings {
				kinds = append(kinds, w.Kind)
			}
			assert.Equal(t, tt.wantWarn, kinds)
		})
	}
}

func TestParseInterval_BadStart(t *testing.T) {
	for _, in := range []string{"garbage", "Finals", "99:99", "24:00", "12:60"} {
		_, err := ParseInterval(TimeFields{Start: in}, DefaultDuration)
		assert.ErrorIs(t, err, errStartTime, "start %q", in)
	}
}

func TestPlausibleStart(t *testing.T) {
	for _, s := range []string{"10:00", "930", "14.15", "TBA", "tbc", "N/A", "NA", "-", "99:99"} {
		assert.True(t, plausibleStart(s), s)
	}
	for _, s := range []string{"Start", "Time", "garbage", "Finals", "x"} {
		assert.False(t, plausibleStart(s), s)
	}
}

func TestAlarmHHMM(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         int
		sameDay      bool
	}{
		{10, 0, 800, true},
		{17, 30, 1530, true},
		{2, 0, 0, true},
		{1, 30, 0, false},
		{0, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := alarmHHMM(tt.hour, tt.minute)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.sameDay, ok)
	}
}

func TestSummary(t *testing.T) {
	e := EventRecord{Title: "Race"}
	assert.Equal(t, "Race", e.Summary(""))
	assert.Equal(t, "WYC Race", e.Summary("WYC"))

	e.Highwater = "10:32"
	assert.Equal(t, "WYC Race, HW=10:32", e.Summary("WYC"))
}

// -----------------------------------------------------------------------------
// Column roles
// -----------------------------------------------------------------------------

// assertRoleInvariants checks the bijection and the Date vs Day/Month exclusion.
func assertRoleInvariants(t *testing.T, m *RoleMap) {
	t.Helper()
	require.Equal(t, len(m.byRole), len(m.byCol), "Forward and reverse maps differ in size")
	for role, col := range m.byRole {
		assert.Equal(t, role, m.byCol[col])
	}
	if m.Has(RoleDate) {
		assert.False(t, m.Has(RoleDay) || m.Has(RoleMonth), "Date set together with Day/Month")
	}
}

func TestRoleMap_Exclusivity(t *testing.T) {
	m := NewRoleMap()
	m.Assign(RoleDay, 0)
	m.Assign(RoleMonth, 1)
	m.Assign(RoleDate, 2)
	assert.True(t, m.Has(RoleDate))
	assert.False(t, m.Has(RoleDay))
	assert.False(t, m.Has(RoleMonth))

	m.Assign(RoleMonth, 1)
	assert.False(t, m.Has(RoleDate), "Month clears Date")
	assert.True(t, m.Has(RoleMonth))

	// A column holds one role: the new one wins.
	m.Assign(RoleStart, 3)
	m.Assign(RoleEvent, 3)
	assert.False(t, m.Has(RoleStart))
	role, ok := m.RoleAt(3)
	assert.True(t, ok)
	assert.Equal(t, RoleEvent, role)

	// A role holds one column: reassigning moves it.
	m.Assign(RoleEvent, 5)
	_, ok = m.RoleAt(3)
	assert.False(t, ok)
	idx, ok := m.IndexOf(RoleEvent)
	assert.True(t, ok)
	assert.Equal(t, 5, idx)

	m.Clear(5)
	assert.False(t, m.Has(RoleEvent))
	assertRoleInvariants(t, m)
}

// TestRoleMap_RandomAssignments drives the map with a fixed random sequence
// and checks the invariants after every step.
func TestRoleMap_RandomAssignments(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := NewRoleMap()
	for i := 0; i < 2000; i++ {
		col := rng.Intn(6)
		if rng.Intn(5) == 0 {
			m.Clear(col)
		} else {
			m.Assign(AllRoles[rng.Intn(len(AllRoles))], col)
		}
		assertRoleInvariants(t, m)
	}
}

func TestRoleMap_Ready(t *testing.T) {
	m := NewRoleMap()
	err := m.Ready()
	require.ErrorIs(t, err, ErrColumnsIncomplete)
	assert.Contains(t, err.Error(), "Date (or Day+Month)")

	m.Assign(RoleDay, 0)
	m.Assign(RoleStart, 2)
	m.Assign(RoleEvent, 3)
	assert.ErrorIs(t, m.Ready(), ErrColumnsIncomplete, "Day alone is not a date")

	m.Assign(RoleMonth, 1)
	assert.NoError(t, m.Ready())
	assert.Equal(t, 4, m.Len())
}

func TestRoleMapFromSpec(t *testing.T) {
	m, err := RoleMapFromSpec(map[string]string{"date": "A", "Start": "1", "EVENT": "d", "HW": "E"})
	require.NoError(t, err)

	for role, want := range map[Role]int{RoleDate: 0, RoleStart: 1, RoleEvent: 3, RoleHW: 4} {
		got, ok := m.IndexOf(role)
		assert.True(t, ok, role)
		assert.Equal(t, want, got, role)
	}
	assert.NoError(t, m.Ready())

	_, err = RoleMapFromSpec(map[string]string{"Weather": "A"})
	assert.ErrorContains(t, err, config.ErrRoleUnknown)

	_, err = RoleMapFromSpec(map[string]string{"Date": "3A"})
	assert.ErrorContains(t, err, config.ErrColumnRef)
}

func TestParseColumn(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"3", 3, false},
		{"A", 0, false},
		{"d", 3, false},
		{"AA", 26, false},
		{" B ", 1, false},
		{"-1", 0, true},
		{"", 0, true},
		{"3A", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseColumn(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
