package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
	"github.com/xuri/excelize/v2"
)

func xlsxSheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
	}
	defer func() { _ = f.Close() }()
	return f.GetSheetList(), nil
}

// readXLSX reads raw cell values so numbers keep their serial form, and
// uses the stored cell type to tell strings from numbers.
func readXLSX(r io.Reader, want string) (string, [][]engine.Cell, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
	}
	defer func() { _ = f.Close() }()

	name, err := pickSheet(f.GetSheetList(), want)
	if err != nil {
		return "", nil, err
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
	}

	cells := make([][]engine.Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]engine.Cell, len(row))
		for c, v := range row {
			if v == "" {
				cells[r][c] = engine.EmptyCell()
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return "", nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				return "", nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
			}
			cells[r][c] = xlsxCell(typ, v)
		}
	}
	return name, cells, nil
}

func xlsxCell(typ excelize.CellType, v string) engine.Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return engine.TextCell(v)
	case excelize.CellTypeBool:
		// Raw booleans are stored as 1 and 0.
		if v == "1" {
			return engine.TextCell("TRUE")
		}
		return engine.TextCell("FALSE")
	case excelize.CellTypeDate:
		// ISO 8601 date cells are rare but valid; read them as serials.
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return engine.NumberCell(toSerial(t))
		}
		return engine.TextCell(v)
	default:
		return engine.SniffCell(v)
	}
}
