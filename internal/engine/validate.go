package engine

import (
	"fmt"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// cell returns the row value for role, or "" when the role is unmapped.
func cell(row Row, cols Columns, role Role) string {
	idx, ok := cols.IndexOf(role)
	if !ok {
		return ""
	}
	return row.At(idx)
}

// rowDate reads the date through the Day+Month roles when both are mapped,
// otherwise through Date.
func rowDate(row Row, cols Columns, defaultYear int) (ParsedDate, error) {
	if cols.Has(RoleDay) && cols.Has(RoleMonth) {
		return ParseDayMonth(cell(row, cols, RoleDay), cell(row, cols, RoleMonth), defaultYear)
	}
	return ParseDateText(cell(row, cols, RoleDate), defaultYear)
}

// checkDate verifies that a parsed date is a real calendar day.
func checkDate(d ParsedDate) error {
	if !validYear(d.Year) {
		return fmt.Errorf("%s: %d", config.ErrYearRange, d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%s %d", config.ErrMonthRange, d.Month)
	}
	if !validDate(d) {
		return fmt.Errorf("%d: %s %d", d.Day, config.ErrDayRange, d.Month)
	}
	return nil
}
