package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/richway/internal/core"
)

const (
	// exportSheet names the single sheet of an export workbook.
	exportSheet = "Members"

	// timeLayout is how timestamps are written to spreadsheet cells.
	timeLayout = time.RFC3339
)

// Cells excelize would silently truncate or rewrite are rejected instead.
var (
	ErrCellTooLong     = fmt.Errorf("cell longer than %d characters", excelize.TotalCellChars)
	ErrCellInvalidText = errors.New("cell contains text a spreadsheet cannot hold")
)

// WriteWorkbook renders records as an .xlsx workbook with core.ExportColumns
// as the header row, in the order given.
func WriteWorkbook(records []core.Record) ([]byte, error) {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, core.ExportColumns)
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Name, rec.Email, rec.Phone, rec.City, rec.UserID, formatTime(rec.Time),
		})
	}

	f, err := newWorkbook(exportSheet, rows)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// newWorkbook builds a one-sheet workbook holding rows as string cells.
func newWorkbook(sheet string, rows [][]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			if err := checkCell(v); err != nil {
				f.Close()
				col, _ := excelize.ColumnNumberToName(j + 1)
				return nil, fmt.Errorf("cell %s%d: %w", col, i+1, err)
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f, nil
}

// checkCell reports whether v survives a write to an .xlsx cell unchanged.
// Invalid UTF-8 and characters outside the XML 1.0 range would come back
// as U+FFFD; text over the cell limit would come back cut short.
func checkCell(v string) error {
	if utf8.RuneCountInString(v) > excelize.TotalCellChars {
		return ErrCellTooLong
	}
	for i, r := range v {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(v[i:]); size == 1 {
				return ErrCellInvalidText
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("%w: %U at byte %d", ErrCellInvalidText, r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// column identifies which record field a header cell refers to.
type column int

const (
	colUnknown column = iota
	colName
	colEmail
	colPhone
	colCity
	colUserID
	colTime
)

func columnOf(header string) column {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "name":
		return colName
	case "email":
		return colEmail
	case "phone":
		return colPhone
	case "city":
		return colCity
	case "userid", "user_id", "user id":
		return colUserID
	case "time", "registration_time":
		return colTime
	default:
		return colUnknown
	}
}

// recordsFromRows maps sheet rows to records using the first row as header.
// Rows with no non-empty cell are skipped.
func recordsFromRows(rows [][]string) []core.Record {
	if len(rows) == 0 {
		return []core.Record{}
	}

	cols := make([]column, len(rows[0]))
	for i, h := range rows[0] {
		cols[i] = columnOf(h)
	}

	records := make([]core.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		var rec core.Record
		for i, v := range row {
			if i >= len(cols) {
				break
			}
			switch cols[i] {
			case colName:
				rec.Name = v
			case colEmail:
				rec.Email = v
			case colPhone:
				rec.Phone = v
			case colCity:
				rec.City = v
			case colUserID:
				rec.UserID = v
			case colTime:
				rec.Time = parseTime(v)
			}
		}
		records = append(records, rec)
	}
	return records
}

// rowFor lays rec out under header. Unknown columns are left empty.
func rowFor(header []string, rec core.Record) []string {
	row := make([]string, len(header))
	for i, h := range header {
		switch columnOf(h) {
		case colName:
			row[i] = rec.Name
		case colEmail:
			row[i] = rec.Email
		case colPhone:
			row[i] = rec.Phone
		case colCity:
			row[i] = rec.City
		case colUserID:
			row[i] = rec.UserID
		case colTime:
			row[i] = formatTime(rec.Time)
		}
	}
	return row
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
