package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/xuri/excelize/v2"
)

// slashDateRE matches D/D/Y, D/D/YY and D/D/YYYY.
var slashDateRE = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{1,4})$`)

// minuteEpsilon absorbs float noise when reading two decimal digits as minutes.
const minuteEpsilon = 1e-6

// Normalize converts a raw cell into its canonical display string.
// It is pure and total: values it does not recognize pass through unchanged.
func Normalize(c Cell) string {
	switch c.Kind {
	case CellEmpty:
		return ""
	case CellNumber:
		return normalizeNumber(c.Num)
	default:
		return normalizeText(strings.TrimSpace(c.Text))
	}
}

// NormalizeRows normalizes every cell of a sheet. Rows are rebuilt from
// scratch each time a sheet is loaded.
func NormalizeRows(cells [][]Cell) []Row {
	rows := make([]Row, 0, len(cells))
	for _, raw := range cells {
		row := make(Row, len(raw))
		for i, c := range raw {
			row[i] = strings.TrimSpace(Normalize(c))
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeNumber(v float64) string {
	whole, frac := math.Modf(v)
	if frac != 0 {
		// 12.30 typed as a number means half past twelve, not a day fraction.
		if h, m, ok := decimalHours(whole, frac); ok {
			return fmt.Sprintf(config.TimeFormatHHMM, h, m)
		}
		if h, m, ok := serialTime(v); ok {
			return fmt.Sprintf(config.TimeFormatHHMM, h, m)
		}
		return formatNumber(v)
	}

	if v > config.SerialEpochThreshold {
		if t, err := serialDate(v); err == nil {
			return t.Format(config.DateFormatSerial)
		}
	}
	return formatNumber(v)
}

// decimalHours reads values in [1,24) whose two decimal digits are minutes.
func decimalHours(whole, frac float64) (int, int, bool) {
	if whole < 1 || whole >= 24 || frac < 0 {
		return 0, 0, false
	}
	scaled := frac * 100
	minutes := math.Round(scaled)
	if math.Abs(scaled-minutes) > minuteEpsilon || minutes > 59 {
		return 0, 0, false
	}
	return int(whole), int(minutes), true
}

// serialTime reads the fractional day of a spreadsheet serial as a time.
func serialTime(v float64) (int, int, bool) {
	if v < 0 {
		return 0, 0, false
	}
	hours := (v - math.Floor(v)) * 24
	h := math.Floor(hours)
	m := math.Round((hours - h) * 60)
	if m == 60 {
		h++
		m = 0
	}
	if h < 0 || h > 23 {
		return 0, 0, false
	}
	return int(h), int(m), true
}

// serialDate converts a spreadsheet date serial (1900 epoch) to a date.
// Non-finite serials and serials outside four-digit years are rejected.
func serialDate(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > config.MaxDateSerial {
		return time.Time{}, fmt.Errorf("%s: %v", config.ErrSerialDate, v)
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", config.ErrSerialDate, err)
	}
	if !validYear(t.Year()) {
		return time.Time{}, fmt.Errorf("%s: %v (%s)", config.ErrSerialDate, v, config.ErrYearRange)
	}
	return t, nil
}

// normalizeText swaps month-first slash dates to day-first. Only dates that
// cannot be read day-first are swapped, so canonical text is left alone.
func normalizeText(s string) string {
	m := slashDateRE.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if first >= 1 && first <= 12 && second > 12 && second <= 31 {
		return fmt.Sprintf("%d/%d/%s", second, first, m[3])
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
