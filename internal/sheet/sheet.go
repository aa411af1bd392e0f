// Package sheet reads spreadsheets (xlsx, xlsm, xls, csv) from disk or over
// HTTP into typed cells for the engine.
package sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// Workbook is a spreadsheet file held in memory.
type Workbook struct {
	// Name is the base name of the source, used for single-sheet formats.
	Name   string
	format string
	data   []byte
}

// Open reads a workbook from a local path or an http(s) URL. The format is
// taken from the file extension.
func Open(ctx context.Context, src string, fetcher Fetcher) (*Workbook, error) {
	if src == "" {
		return nil, errors.New(config.ErrSourceEmpty)
	}

	var (
		rc   io.ReadCloser
		name string
		err  error
	)
	if isRemote(src) {
		u, perr := parseRemote(src)
		if perr != nil {
			return nil, perr
		}
		if fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		name = path.Base(u.Path)
		rc, err = fetcher.Fetch(ctx, src)
	} else {
		name = filepath.Base(src)
		rc, err = os.Open(src)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrSourceOpen, err)
	}
	// Best effort close. Errors in Close() for read-only sources are rarely actionable here.
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSourceOpen, err)
	}
	return FromBytes(name, data)
}

// FromBytes wraps already loaded data. name must carry the file extension.
func FromBytes(name string, data []byte) (*Workbook, error) {
	format := strings.ToLower(filepath.Ext(name))
	switch format {
	case config.ExtXLSX, config.ExtXLSM, config.ExtXLS, config.ExtCSV:
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrFormatUnsupport, name)
	}
	return &Workbook{Name: name, format: format, data: data}, nil
}

// SheetNames lists the worksheets in file order.
func (w *Workbook) SheetNames() ([]string, error) {
	switch w.format {
	case config.ExtXLSX, config.ExtXLSM:
		return xlsxSheetNames(bytes.NewReader(w.data))
	case config.ExtXLS:
		return xlsSheetNames(bytes.NewReader(w.data))
	default:
		return []string{strings.TrimSuffix(w.Name, filepath.Ext(w.Name))}, nil
	}
}

// Cells reads one sheet as typed cells. An empty name selects the first
// sheet. The resolved sheet name is returned with the cells.
func (w *Workbook) Cells(sheet string) (string, [][]engine.Cell, error) {
	var (
		name  string
		cells [][]engine.Cell
		err   error
	)
	switch w.format {
	case config.ExtXLSX, config.ExtXLSM:
		name, cells, err = readXLSX(bytes.NewReader(w.data), sheet)
	case config.ExtXLS:
		name, cells, err = readXLS(bytes.NewReader(w.data), sheet)
	default:
		name = strings.TrimSuffix(w.Name, filepath.Ext(w.Name))
		cells, err = readCSV(bytes.NewReader(w.data))
	}
	if err != nil {
		return "", nil, err
	}

	slog.Debug(config.MsgSheetLoaded,
		config.LogKeyComponent, config.CompSheet,
		config.LogKeyFile, w.Name,
		config.LogKeySheet, name,
		config.LogKeyRows, len(cells))
	return name, cells, nil
}

// Rows reads one sheet and normalizes every cell.
func (w *Workbook) Rows(sheet string) (string, []engine.Row, error) {
	name, cells, err := w.Cells(sheet)
	if err != nil {
		return "", nil, err
	}
	return name, engine.NormalizeRows(cells), nil
}

// pickSheet resolves a requested sheet name (case-insensitively) against the
// workbook's list. Empty selects the first sheet.
func pickSheet(names []string, want string) (string, error) {
	if len(names) == 0 {
		return "", errors.New(config.ErrSheetEmpty)
	}
	if want == "" {
		return names[0], nil
	}
	for _, n := range names {
		if strings.EqualFold(n, want) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%s: %q (have %s)", config.ErrSheetNotFound, want, strings.Join(names, ", "))
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, config.SchemeHTTP+"://") || strings.HasPrefix(lower, config.SchemeHTTPS+"://")
}
