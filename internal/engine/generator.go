package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/tartampluch/go-sheetcal/internal/config"
)

// Options are the per-export settings consumed by the generator.
type Options struct {
	// DefaultYear fills dates without a year. 0 means the clock's year.
	DefaultYear int
	// Prefix is prepended, followed by a space, to every summary.
	Prefix string
	// DefaultDuration is used when a row has neither End nor Duration.
	// Nil means DefaultDuration.
	DefaultDuration *Duration
	// Calendars restricts the export to these tags. Empty exports all rows.
	Calendars []string
	// Location is the zone the sheet's wall-clock times are in. Nil means time.Local.
	Location *time.Location
	// Alarm emits a display alarm before each event.
	Alarm bool
	// CalendarName is emitted as X-WR-CALNAME when set.
	CalendarName string
}

// Stats counts what happened to the rows of one run.
type Stats struct {
	Rows     int
	Accepted int
	Skipped  int
	Bad      int
	Warnings int
}

// Result is the output of one generation.
type Result struct {
	ICS      []byte
	Events   []EventRecord
	Warnings []Warning
	Stats    Stats
}

// Generator turns normalized rows into an iCalendar document.
type Generator struct {
	Clock Clock // Interface for time mocking.

	// NewUID returns a fresh unique identifier per event.
	NewUID func() string

	// OnBadRecord decides whether a bad row skips or aborts. Nil skips.
	OnBadRecord BadRecordHandler
}

// NewGenerator returns a Generator on the real clock with random UUIDs.
func NewGenerator(onBad BadRecordHandler) *Generator {
	return &Generator{
		Clock:       RealClock{},
		NewUID:      uuid.NewString,
		OnBadRecord: onBad,
	}
}

// run holds the state of a single Generate call.
type run struct {
	g        *Generator
	opts     Options
	cols     Columns
	year     int
	duration Duration
	loc      *time.Location
	filter   map[string]struct{}
	log      *slog.Logger
	res      Result
}

// Generate processes rows in order and returns the calendar. A bad record
// answered with Abort returns ErrAborted and no result.
func (g *Generator) Generate(ctx context.Context, rows []Row, cols Columns, opts Options) (*Result, error) {
	if err := requireColumns(cols); err != nil {
		return nil, err
	}

	start := time.Now()
	now := g.Clock.Now()

	r := &run{
		g:        g,
		opts:     opts,
		cols:     cols,
		year:     opts.DefaultYear,
		duration: DefaultDuration,
		loc:      opts.Location,
		log:      slog.With(config.LogKeyComponent, config.CompEngine),
	}
	if r.year == 0 {
		r.year = now.Year()
	}
	if opts.DefaultDuration != nil {
		r.duration = *opts.DefaultDuration
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if len(opts.Calendars) > 0 && cols.Has(RoleCalendar) {
		r.filter = make(map[string]struct{}, len(opts.Calendars))
		for _, tag := range opts.Calendars {
			r.filter[tag] = struct{}{}
		}
	}

	r.log.InfoContext(ctx, config.MsgGenStarted,
		config.LogKeyRows, len(rows),
		config.LogKeyCalendars, opts.Calendars)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.res.Stats.Rows++
		rec, ok, err := r.processRow(ctx, i+1, row)
		if err != nil {
			r.log.WarnContext(ctx, config.MsgGenAborted, config.LogKeyLine, i+1)
			return nil, err
		}
		if !ok {
			r.res.Stats.Skipped++
			continue
		}
		r.res.Events = append(r.res.Events, rec)
		r.res.Stats.Accepted++
	}

	ics, err := r.encode(now)
	if err != nil {
		return nil, err
	}
	r.res.ICS = ics
	r.res.Stats.Warnings = len(r.res.Warnings)

	r.logSuccess(time.Since(start))
	return &r.res, nil
}

// processRow applies the validation steps to one row. It returns ok=false
// for skipped rows and ErrAborted when the handler stops the run.
func (r *run) processRow(ctx context.Context, line int, row Row) (EventRecord, bool, error) {
	startText := cell(row, r.cols, RoleStart)
	if startText == "" {
		return EventRecord{}, false, nil
	}
	noise := !plausibleStart(startText)

	tag := cell(row, r.cols, RoleCalendar)
	if r.filter != nil {
		if _, ok := r.filter[tag]; !ok {
			r.log.DebugContext(ctx, config.MsgRowFiltered, config.LogKeyLine, line, config.LogKeyValue, tag)
			return EventRecord{}, false, nil
		}
	}

	title := cell(row, r.cols, RoleEvent)

	date, err := rowDate(row, r.cols, r.year)
	if err == nil {
		err = checkDate(date)
	}
	if err != nil {
		if noise {
			r.log.DebugContext(ctx, config.MsgRowIgnored, config.LogKeyLine, line, config.LogKeyValue, startText)
			return EventRecord{}, false, nil
		}
		return EventRecord{}, false, r.reportBadRecord(ctx, line, title, err)
	}

	if title == "" {
		if !noise {
			r.warn(ctx, line, WarnMissingTitle, config.ErrEventTitleEmpty)
		}
		return EventRecord{}, false, nil
	}

	times, err := ParseInterval(TimeFields{
		Start:    startText,
		End:      cell(row, r.cols, RoleEnd),
		Duration: cell(row, r.cols, RoleDuration),
		Title:    title,
	}, r.duration)
	if err != nil {
		return EventRecord{}, false, r.reportBadRecord(ctx, line, title, err)
	}

	if !date.YearDefaulted && date.Year != r.year {
		r.warn(ctx, line, WarnYearMismatch, fmt.Sprintf("year %d differs from default year %d", date.Year, r.year))
	}
	for _, w := range times.Warnings {
		r.warn(ctx, line, w.Kind, w.Message)
	}

	iv := times.Interval
	rec := EventRecord{
		Line:        line,
		Date:        date,
		Interval:    iv,
		Title:       title + times.Suffix,
		Highwater:   cell(row, r.cols, RoleHW),
		CalendarTag: tag,
		UID:         r.g.newUID(),
		Start:       r.utc(date, iv.StartHour, iv.StartMin),
		End:         r.utc(date, iv.EndHour, iv.EndMin),
	}

	alarm, sameDay := alarmHHMM(iv.StartHour, iv.StartMin)
	if !sameDay {
		r.warn(ctx, line, WarnAlarmPrevDay, fmt.Sprintf("alarm for %q would fall on the previous day", rec.Title))
	}
	rec.Alarm = alarm

	r.log.DebugContext(ctx, config.MsgRowAccepted,
		config.LogKeyLine, line,
		config.LogKeyEvent, rec.Title)
	return rec, true, nil
}

// reportBadRecord reports a bad row and turns an Abort answer into ErrAborted.
func (r *run) reportBadRecord(ctx context.Context, line int, title string, cause error) error {
	rec := BadRecord{Line: line, Event: title, Reason: cause.Error()}
	r.res.Stats.Bad++

	r.log.WarnContext(ctx, config.MsgBadRecord,
		config.LogKeyLine, line,
		config.LogKeyEvent, title,
		config.LogKeyReason, rec.Reason)

	if r.g.OnBadRecord == nil {
		return nil
	}
	if r.g.OnBadRecord.HandleBadRecord(ctx, rec) == Abort {
		return fmt.Errorf("%w: %s", ErrAborted, rec.Error())
	}
	return nil
}

func (r *run) warn(ctx context.Context, line int, kind WarningKind, msg string) {
	r.res.Warnings = append(r.res.Warnings, Warning{Line: line, Kind: kind, Message: msg})
	r.log.WarnContext(ctx, config.MsgRowWarning,
		config.LogKeyLine, line,
		config.LogKeyKind, string(kind),
		config.LogKeyReason, msg)
}

// utc reads a wall-clock time in the configured zone and returns it in UTC.
func (r *run) utc(d ParsedDate, hour, minute int) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, hour, minute, 0, 0, r.loc).UTC()
}

func (g *Generator) newUID() string {
	if g.NewUID != nil {
		return g.NewUID()
	}
	return uuid.NewString()
}

// encode serializes the accepted events. With no events the minimal stub
// calendar is returned so clients still get a valid document.
func (r *run) encode(now time.Time) ([]byte, error) {
	if len(r.res.Events) == 0 {
		var buf bytes.Buffer
		buf.WriteString(config.StubVCalendar)
		return buf.Bytes(), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	if r.opts.CalendarName != "" {
		cal.Props.SetText(config.PropXWRCalName, r.opts.CalendarName)
	}

	stamp := now.UTC()
	for _, rec := range r.res.Events {
		summary := rec.Summary(r.opts.Prefix)

		event := ical.NewEvent()
		event.Props.SetDateTime(config.PropCreated, stamp)
		event.Props.SetText(config.PropUID, rec.UID)
		event.Props.SetDateTime(config.PropDTStamp, stamp)
		event.Props.SetDateTime(config.PropDTStart, rec.Start)
		event.Props.SetDateTime(config.PropDTEnd, rec.End)
		event.Props.SetText(config.PropSummary, summary)

		if r.opts.Alarm {
			addAlarm(event, config.ICalTrigger, summary)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalAlarm)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// logSuccess logs the final statistics of the generation process.
func (r *run) logSuccess(elapsed time.Duration) {
	s := r.res.Stats
	r.log.Info(config.MsgGenSuccess,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, s.Rows),
			slog.Int(config.LogKeyAccepted, s.Accepted),
			slog.Int(config.LogKeySkipped, s.Skipped),
			slog.Int(config.LogKeyBad, s.Bad),
			slog.Int(config.LogKeyWarnings, s.Warnings),
		),
		config.LogKeyDuration, elapsed.Milliseconds(),
	)
}
