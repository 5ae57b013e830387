package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/richway/internal/core"
)

// SheetName is the worksheet holding submissions in the local file.
const SheetName = "Submissions"

// fileHeader is written when the data file is first created. It has no
// UserID column; the first append adds one.
var fileHeader = []string{"Name", "Email", "Phone", "City", "Time"}

// FileSheet keeps every record in one local .xlsx file.
//
// Each append reads the whole workbook, adds a row and writes it back through
// a temp file and rename. Appends are not serialized: two concurrent appends
// can both read the same snapshot and the later rename drops the other's row.
type FileSheet struct {
	path string
}

// NewFileSheet opens the data file at path, creating it with a header-only
// sheet when it is missing or empty.
func NewFileSheet(path string) (*FileSheet, error) {
	s := &FileSheet{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist), err == nil && info.Size() == 0:
		if err := s.save([][]string{fileHeader}); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return s, nil
}

// Append adds rec as a new last row.
func (s *FileSheet) Append(ctx context.Context, rec core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := s.load()
	if err != nil {
		return err
	}
	return s.save(withRecord(rows, rec))
}

// Export renders all rows in insertion order.
func (s *FileSheet) Export(ctx context.Context) ([]byte, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(records)
}

func (s *FileSheet) Backend() string { return "file" }

func (s *FileSheet) Close(context.Context) error { return nil }

func (s *FileSheet) records(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.load()
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}

// load reads every row of the submissions sheet, falling back to the first
// sheet for files written by other tools.
func (s *FileSheet) load() ([][]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := SheetName
	if !slices.Contains(f.GetSheetList(), sheet) {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// save replaces the data file with a workbook holding rows.
func (s *FileSheet) save(rows [][]string) error {
	f, err := newWorkbook(SheetName, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".submissions-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// withRecord returns rows plus rec, adding a UserID column to the header if
// the file predates it.
func withRecord(rows [][]string, rec core.Record) [][]string {
	var header []string
	if len(rows) > 0 {
		header = slices.Clone(rows[0])
	} else {
		header = slices.Clone(fileHeader)
		rows = [][]string{header}
	}

	hasUserID := slices.ContainsFunc(header, func(h string) bool { return columnOf(h) == colUserID })
	if !hasUserID {
		header = append(header, "UserID")
	}
	rows[0] = header

	return append(rows, rowFor(header, rec))
}
