package engine

import (
	"math"
	"strconv"
)

// CellKind tags the type of a raw spreadsheet value.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a raw spreadsheet value. The kind is decided once, when the sheet
// is read, so the parsers never have to sniff types again.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// EmptyCell returns an absent value.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// NumberCell wraps a numeric value (including date and time serials).
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// TextCell wraps a textual value.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// SniffCell classifies a value that arrived as text from a source without
// type information (CSV, legacy xls): empty, numeric or text. Digit strings
// with a leading zero ("0030") stay text, as they are clock times.
func SniffCell(s string) Cell {
	if s == "" {
		return EmptyCell()
	}
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		return TextCell(s)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return NumberCell(v)
	}
	return TextCell(s)
}

// Row is an ordered sequence of trimmed, normalized cell values.
type Row []string

// At returns the value in column i, or "" when the row is shorter.
func (r Row) At(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}
