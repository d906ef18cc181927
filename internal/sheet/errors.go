package sheet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for missing entities. Callers match with errors.Is.
var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrRowNotFound   = errors.New("row not found")
)

// InvalidNameError indicates an identifier input that is empty or
// sanitizes to nothing.
type InvalidNameError struct {
	Raw string
}

func (e *InvalidNameError) Error() string {
	if strings.TrimSpace(e.Raw) == "" {
		return "invalid name: empty"
	}
	return fmt.Sprintf("invalid name: %q sanitizes to an empty identifier", e.Raw)
}

// UnsupportedTypeError indicates an unknown logical column type.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported data type: %q", e.Type)
}

// DuplicateTableNameError indicates a table-name collision detected
// before any DDL executed.
type DuplicateTableNameError struct {
	TableName string
}

func (e *DuplicateTableNameError) Error() string {
	return fmt.Sprintf("table %q already exists", e.TableName)
}

// NonNumericSumSourceError indicates a sum source value that could not be
// coerced to a number. Column is the derived column being computed and Line
// is the 1-based spreadsheet row in batch contexts (0 outside them).
type NonNumericSumSourceError struct {
	Source string
	Column string
	Line   int
}

func (e *NonNumericSumSourceError) Error() string {
	msg := fmt.Sprintf("value for column %q is not numeric", e.Source)
	if e.Column != "" {
		msg += fmt.Sprintf(" but required for sum column %q", e.Column)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at row %d", e.Line)
	}
	return msg
}

// UnknownSumSourceError indicates a derived column referencing a column
// that is not declared on the same sheet.
type UnknownSumSourceError struct {
	Column string
	Source string
}

func (e *UnknownSumSourceError) Error() string {
	return fmt.Sprintf("sum column %q references unknown source column %q", e.Column, e.Source)
}

// InvalidSumDefinitionError indicates a malformed derived-column
// declaration, either an empty source list or a cyclic sum_of graph.
type InvalidSumDefinitionError struct {
	Column string
	Reason string
}

func (e *InvalidSumDefinitionError) Error() string {
	return fmt.Sprintf("invalid sum definition for column %q: %s", e.Column, e.Reason)
}

// WorksheetNotFoundError indicates that a named worksheet is absent from
// an uploaded workbook.
type WorksheetNotFoundError struct {
	Worksheet string
}

func (e *WorksheetNotFoundError) Error() string {
	return fmt.Sprintf("worksheet %q not found in uploaded file", e.Worksheet)
}

// ErrEmptyWorksheet indicates a workbook with no worksheet or no
// non-blank rows.
var ErrEmptyWorksheet = errors.New("worksheet is empty")
