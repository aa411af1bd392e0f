// Package preview lists the events of a run as CSV, for checking a sheet
// before importing its calendar.
package preview

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// Row is one event as shown in the preview. Times are the sheet's wall clock.
type Row struct {
	Line     int    `csv:"line"`
	Date     string `csv:"date"`
	Start    string `csv:"start"`
	End      string `csv:"end"`
	Summary  string `csv:"summary"`
	Calendar string `csv:"calendar"`
	StartUTC string `csv:"start_utc"`
}

// Rows converts accepted events in sheet order.
func Rows(events []engine.EventRecord, prefix string) []Row {
	rows := make([]Row, 0, len(events))
	for _, e := range events {
		day := time.Date(e.Date.Year, time.Month(e.Date.Month), e.Date.Day, 0, 0, 0, 0, time.UTC)
		rows = append(rows, Row{
			Line:     e.Line,
			Date:     day.Format(config.DateFormatPreview),
			Start:    e.Interval.Start(),
			End:      e.Interval.End(),
			Summary:  e.Summary(prefix),
			Calendar: e.CalendarTag,
			StartUTC: e.Start.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// Write renders events as CSV with a header line. An empty run yields the
// header alone.
func Write(w io.Writer, events []engine.EventRecord, prefix string) error {
	rows := Rows(events, prefix)
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPreviewEncode, err)
	}
	slog.Debug(config.MsgPreviewWritten,
		config.LogKeyComponent, config.CompPreview,
		config.LogKeyRows, len(rows),
	)
	return nil
}
