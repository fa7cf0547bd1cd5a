// Package workbook is a thin adapter over excelize for locating and reading
// semi-structured spreadsheet data: sheet discovery by content scoring and
// header/column location by fuzzy alias matching.
package workbook

import (
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "teacli/internal/errors"
)

// Workbook wraps an open spreadsheet file.
type Workbook struct {
	file *excelize.File
	path string
}

// Open opens a workbook. A missing file reports NOT_FOUND; a file excelize
// cannot read reports PARSING.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("workbook").WithContext("file", path)
		}
		return nil, apperrors.NewParsingError("workbook unreadable", err).WithContext("file", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("workbook has corrupt format", err).WithContext("file", path)
	}
	return &Workbook{file: f, path: path}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Path returns the file path the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// SheetNames lists the workbook's sheets in order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Rows returns all rows of a sheet. Trailing empty cells are absent, so rows
// are ragged; callers must bounds-check column indexes.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("reading sheet failed", err).
			WithContext("file", w.path).WithContext("sheet", sheet)
	}
	return rows, nil
}

// headerScanDepth bounds how many leading rows are examined when scoring a
// sheet or searching for a header row.
const headerScanDepth = 10

// BestSheet scans every sheet's leading rows for the given keywords and
// returns the best-scoring sheet together with its rows. A sheet qualifies
// when at least minHits distinct keywords appear.
func (w *Workbook) BestSheet(keywords []string, minHits int) (string, [][]string, error) {
	bestName := ""
	bestHits := 0
	var bestRows [][]string

	for _, name := range w.SheetNames() {
		rows, err := w.Rows(name)
		if err != nil || len(rows) == 0 {
			continue
		}

		depth := headerScanDepth
		if depth > len(rows) {
			depth = len(rows)
		}
		var text strings.Builder
		for _, row := range rows[:depth] {
			text.WriteString(strings.ToLower(strings.Join(row, " ")))
			text.WriteByte(' ')
		}

		hits := 0
		for _, kw := range keywords {
			if strings.Contains(text.String(), strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			bestName = name
			bestHits = hits
			bestRows = rows
		}
	}

	if bestHits < minHits {
		return "", nil, apperrors.NewParsingError("no sheet matches expected content", nil).
			WithContext("file", w.path).WithContext("keywords", strings.Join(keywords, ","))
	}
	return bestName, bestRows, nil
}
