// Package prompt asks the user what to do with bad records and which
// calendars to export, in the terminal or through native dialogs.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/ncruces/zenity"
	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// Selector picks the calendars to export among the tags found in a sheet.
// An empty selection means all of them.
type Selector interface {
	SelectCalendars(ctx context.Context, tags []string) ([]string, error)
}

// Fixed returns a handler that always answers d.
func Fixed(d engine.Decision) engine.BadRecordHandler {
	return engine.BadRecordFunc(func(context.Context, engine.BadRecord) engine.Decision {
		return d
	})
}

// NewHandler resolves a policy name. ask is used for the interactive policy.
func NewHandler(policy string, ask engine.BadRecordHandler) (engine.BadRecordHandler, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case config.PolicyAsk, "":
		if ask == nil {
			return Fixed(engine.Continue), nil
		}
		return ask, nil
	case config.PolicySkip:
		return Fixed(engine.Continue), nil
	case config.PolicyAbort:
		return Fixed(engine.Abort), nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrPolicy, policy)
	}
}

// describe renders a bad record for display.
func describe(t *Translator, rec engine.BadRecord) string {
	data := map[string]any{"Line": rec.Line, "Reason": rec.Reason, "Event": rec.Event}
	if rec.Event == "" {
		return t.Msgf(config.TKeyBadRecord, data)
	}
	return t.Msgf(config.TKeyBadRecordEvent, data)
}

// PrintWarnings writes one localized line per warning.
func PrintWarnings(out io.Writer, t *Translator, warnings []engine.Warning) {
	for _, w := range warnings {
		_, _ = fmt.Fprintln(out, t.Msgf(config.TKeyWarningLine, map[string]any{
			"Line":    w.Line,
			"Message": w.Message,
		}))
	}
}

// -----------------------------------------------------------------------------
// Terminal
// -----------------------------------------------------------------------------

// Terminal asks questions on a line-oriented reader and writer.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	t   *Translator
}

// NewTerminal creates a terminal prompt.
func NewTerminal(in io.Reader, out io.Writer, t *Translator) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, t: t}
}

// HandleBadRecord shows the record and continues only on an explicit yes.
// A closed input or a cancelled context aborts.
func (p *Terminal) HandleBadRecord(ctx context.Context, rec engine.BadRecord) engine.Decision {
	_, _ = fmt.Fprintln(p.out, describe(p.t, rec))
	_, _ = fmt.Fprint(p.out, p.t.Msg(config.TKeyContinuePrompt))

	answer, err := p.readLine(ctx)
	if err != nil {
		slog.Warn(config.ErrPromptRead,
			config.LogKeyComponent, config.CompPrompt,
			config.LogKeyError, err,
		)
		_, _ = fmt.Fprintln(p.out)
		return engine.Abort
	}

	yes := strings.ToLower(p.t.Msg(config.TKeyAnswerYes))
	if answer != "" && strings.HasPrefix(strings.ToLower(answer), yes) {
		return engine.Continue
	}
	return engine.Abort
}

// SelectCalendars lists the tags with numbers and reads a selection. Tags
// may be picked by number or by name.
func (p *Terminal) SelectCalendars(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		_, _ = fmt.Fprintln(p.out, p.t.Msg(config.TKeyCalendarsNone))
		return nil, nil
	}

	_, _ = fmt.Fprintln(p.out, p.t.Msg(config.TKeyCalendarsFound))
	for i, tag := range tags {
		_, _ = fmt.Fprintf(p.out, "  %d. %s\n", i+1, tag)
	}
	_, _ = fmt.Fprintln(p.out, p.t.Msg(config.TKeySelectCalendars))
	_, _ = fmt.Fprintln(p.out, p.t.Msg(config.TKeySelectAllHint))
	_, _ = fmt.Fprint(p.out, p.t.Msg(config.TKeySelectInput))

	line, err := p.readLine(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSelectCalendars, err)
	}
	return p.parseChoice(line, tags), nil
}

func (p *Terminal) parseChoice(line string, tags []string) []string {
	var picked []string
	seen := make(map[string]bool)
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			picked = append(picked, tag)
		}
	}

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			if n >= 1 && n <= len(tags) {
				add(tags[n-1])
				continue
			}
		} else if tag, ok := matchTag(tags, f); ok {
			add(tag)
			continue
		}
		_, _ = fmt.Fprintln(p.out, p.t.Msgf(config.TKeyChoiceInvalid, map[string]any{"Value": f}))
	}
	return picked
}

func matchTag(tags []string, name string) (string, bool) {
	for _, tag := range tags {
		if strings.EqualFold(tag, name) {
			return tag, true
		}
	}
	return "", false
}

// readLine reads one line without outliving ctx. A final line without a
// newline is accepted.
func (p *Terminal) readLine(ctx context.Context) (string, error) {
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, config.ChannelBufferSize)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.err != nil && (!errors.Is(a.err, io.EOF) || a.line == "") {
			return "", fmt.Errorf("%s: %w", config.ErrPromptRead, a.err)
		}
		return strings.TrimSpace(a.line), nil
	}
}

// -----------------------------------------------------------------------------
// Native dialogs
// -----------------------------------------------------------------------------

// Dialog asks through native desktop dialogs.
type Dialog struct {
	t        *Translator
	question func(text string, options ...zenity.Option) error
	list     func(text string, items []string, options ...zenity.Option) ([]string, error)
}

// NewDialog creates a dialog prompt.
func NewDialog(t *Translator) *Dialog {
	return &Dialog{t: t, question: zenity.Question, list: zenity.ListMultiple}
}

// HandleBadRecord offers to skip the row or cancel the export. Closing the
// dialog cancels.
func (d *Dialog) HandleBadRecord(ctx context.Context, rec engine.BadRecord) engine.Decision {
	err := d.question(describe(d.t, rec),
		zenity.Context(ctx),
		zenity.Title(d.t.Msg(config.TKeyDialogTitle)),
		zenity.OKLabel(d.t.Msg(config.TKeyBtnContinue)),
		zenity.CancelLabel(d.t.Msg(config.TKeyBtnAbort)),
		zenity.WarningIcon,
	)
	switch {
	case err == nil:
		return engine.Continue
	case errors.Is(err, zenity.ErrCanceled):
		return engine.Abort
	default:
		slog.Error(config.ErrDialog,
			config.LogKeyComponent, config.CompPrompt,
			config.LogKeyError, err,
		)
		return engine.Abort
	}
}

// SelectCalendars shows a multi-select list. Cancelling aborts the run.
func (d *Dialog) SelectCalendars(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	picked, err := d.list(
		d.t.Msg(config.TKeySelectCalendars)+"\n"+d.t.Msg(config.TKeySelectAllHint),
		tags,
		zenity.Context(ctx),
		zenity.Title(d.t.Msg(config.TKeyDialogTitle)),
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return nil, fmt.Errorf("%s: %w", config.ErrSelectCalendars, engine.ErrAborted)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDialog, err)
	}
	return picked, nil
}
