package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// ErrAborted is returned by Generate when the bad-record handler chose to
// stop. No partial calendar is returned with it.
var ErrAborted = errors.New(config.ErrRunAborted)

// BadRecord describes a row whose required fields could not be read.
type BadRecord struct {
	// Line is the 1-based row number in the sheet.
	Line int
	// Event is the row's title, empty when it was not reached or is blank.
	Event  string
	Reason string
}

func (b *BadRecord) Error() string {
	if b.Event == "" {
		return fmt.Sprintf("line %d: %s", b.Line, b.Reason)
	}
	return fmt.Sprintf("line %d (%s): %s", b.Line, b.Event, b.Reason)
}

// Decision is a bad-record handler's answer.
type Decision int

const (
	// Continue skips the bad row and goes on with the next one.
	Continue Decision = iota
	// Abort stops the whole generation.
	Abort
)

func (d Decision) String() string {
	if d == Abort {
		return config.PolicyAbort
	}
	return config.PolicySkip
}

// BadRecordHandler is the caller-owned decision point for bad records.
type BadRecordHandler interface {
	HandleBadRecord(ctx context.Context, rec BadRecord) Decision
}

// BadRecordFunc adapts a function to BadRecordHandler.
type BadRecordFunc func(ctx context.Context, rec BadRecord) Decision

func (f BadRecordFunc) HandleBadRecord(ctx context.Context, rec BadRecord) Decision {
	return f(ctx, rec)
}

// WarningKind classifies suspicious but accepted (or silently dropped) rows.
type WarningKind string

const (
	WarnYearMismatch     WarningKind = "year_mismatch"
	WarnEndNotAfterStart WarningKind = "end_not_after_start"
	WarnEndUnparsed      WarningKind = "end_unparsed"
	WarnDurationUnparsed WarningKind = "duration_unparsed"
	WarnMidnightClamp    WarningKind = "midnight_clamp"
	WarnMissingTitle     WarningKind = "missing_title"
	WarnAlarmPrevDay     WarningKind = "alarm_previous_day"
)

// Warning is a non-fatal data-quality note about one row.
type Warning struct {
	Line    int
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Message)
}
