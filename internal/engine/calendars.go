package engine

import (
	"strings"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// FindCalendars lists the distinct calendar tags of the data rows, in the
// order they first appear. It returns nil when no Calendar column is mapped.
func FindCalendars(rows []Row, cols Columns) []string {
	idx, ok := cols.IndexOf(RoleCalendar)
	if !ok {
		return nil
	}
	startIdx, hasStart := cols.IndexOf(RoleStart)

	var tags []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		if hasStart && !plausibleStart(row.At(startIdx)) {
			continue
		}
		tag := row.At(idx)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// OutputName derives the calendar file name from the exported tags.
func OutputName(tags []string) string {
	if len(tags) == 0 {
		return config.DefaultOutputName + config.OutputExt
	}
	return strings.Join(tags, "") + config.OutputExt
}
