package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/extrame/xls"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

func openXLS(rs io.ReadSeeker) (*xls.WorkBook, error) {
	wb, err := xls.OpenReader(rs, config.XLSCharset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
	}
	return wb, nil
}

func xlsSheetNames(rs io.ReadSeeker) ([]string, error) {
	wb, err := openXLS(rs)
	if err != nil {
		return nil, err
	}
	return xlsNames(wb), nil
}

func xlsNames(wb *xls.WorkBook) []string {
	names := make([]string, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// readXLS reads a legacy workbook. The library hands back strings only, so
// cell types are sniffed.
func readXLS(rs io.ReadSeeker, want string) (string, [][]engine.Cell, error) {
	wb, err := openXLS(rs)
	if err != nil {
		return "", nil, err
	}

	name, err := pickSheet(xlsNames(wb), want)
	if err != nil {
		return "", nil, err
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil && s.Name == name {
			ws = s
			break
		}
	}
	if ws == nil {
		return "", nil, fmt.Errorf("%s: %q", config.ErrSheetNotFound, name)
	}

	cells := make([][]engine.Cell, 0, int(ws.MaxRow)+1)
	for r := 0; r <= int(ws.MaxRow); r++ {
		row := xlsRow(ws, r)
		if row == nil {
			cells = append(cells, nil)
			continue
		}
		out := make([]engine.Cell, row.LastCol())
		for c := range out {
			out[c] = xlsCell(row.Col(c))
		}
		cells = append(cells, out)
	}
	return name, cells, nil
}

// xlsRow returns nil for rows absent from the file; the library dereferences
// them unchecked.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// xlsCell converts the library's rendering back to a typed cell. Cells with
// a custom date format come back as RFC 3339 text.
func xlsCell(v string) engine.Cell {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return engine.NumberCell(toSerial(t))
	}
	return engine.SniffCell(v)
}

// toSerial converts a time to a spreadsheet serial on the 1900 epoch.
func toSerial(t time.Time) float64 {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return wall.Sub(epoch).Hours() / 24
}
