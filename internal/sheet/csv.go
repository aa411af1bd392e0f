package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// readCSV reads every record of a CSV export. Ragged rows are kept as they are.
func readCSV(r io.Reader) ([][]engine.Cell, error) {
	reader := gocsv.LazyCSVReader(r)

	var cells [][]engine.Cell
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%s: %w", config.ErrSheetRead, err)
		}
		row := make([]engine.Cell, len(record))
		for i, v := range record {
			row[i] = engine.SniffCell(v)
		}
		cells = append(cells, row)
	}
	return cells, nil
}
