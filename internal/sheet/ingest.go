package sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
)

// Preview sample bounds.
const (
	minSampleSize = 1
	maxSampleSize = 100
)

// UploadOptions controls spreadsheet ingestion. Worksheet selects a
// sheet by name (default: first). SampleSize only applies to previews.
type UploadOptions struct {
	SheetName  string
	Worksheet  string
	SampleSize int
}

// PreviewResult is the outcome of a dry-run ingestion: the inferred
// schema, parsed sample rows with derived columns computed, and any
// per-row numeric warnings. Storage is untouched.
type PreviewResult struct {
	SheetName    string       `json:"sheetName"`
	Worksheet    string       `json:"worksheet"`
	DetectedRows int          `json:"detectedRows"`
	Columns      []ColumnSpec `json:"columns"`
	SampleRows   []Row        `json:"sampleRows"`
	Warnings     []string     `json:"warnings"`
}

// ImportResult is the outcome of a committed ingestion.
type ImportResult struct {
	SheetID      int64  `json:"sheetId"`
	TableName    string `json:"tableName"`
	RowsInserted int    `json:"rowsInserted"`
}

// workbookAnalysis is the result of parsing and analyzing one uploaded
// workbook: resolved columns, inferred types and the raw data rows.
type workbookAnalysis struct {
	worksheet string
	columns   []ColumnSpec // normalized specs, derived columns typed float
	defs      []ColumnDef  // name + sum_of view for derived computation
	types     []DataType   // by column index
	dataRows  [][]string   // padded to len(columns)
}

// analyzeWorkbook loads the workbook, selects the worksheet, drops blank
// rows, resolves the header and infers column types.
func analyzeWorkbook(data []byte, worksheet string) (*workbookAnalysis, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := worksheet
	if name != "" {
		idx, err := f.GetSheetIndex(name)
		if err != nil || idx < 0 {
			return nil, &WorksheetNotFoundError{Worksheet: name}
		}
	} else {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrEmptyWorksheet
		}
		name = list[0]
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", name, err)
	}

	var kept [][]string
	for _, row := range rows {
		if !blankRow(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyWorksheet
	}

	cols, err := analyzeHeader(kept[0])
	if err != nil {
		return nil, err
	}

	dataRows := make([][]string, len(kept)-1)
	for i, row := range kept[1:] {
		padded := make([]string, len(cols))
		copy(padded, row)
		dataRows[i] = padded
	}

	a := &workbookAnalysis{
		worksheet: name,
		columns:   make([]ColumnSpec, len(cols)),
		defs:      make([]ColumnDef, len(cols)),
		types:     make([]DataType, len(cols)),
		dataRows:  dataRows,
	}
	for i, c := range cols {
		if len(c.SumOf) > 0 {
			a.types[i] = TypeFloat
			a.columns[i] = ColumnSpec{Name: c.Name, Type: TypeFloat, SumOf: c.SumOf}
		} else {
			values := make([]string, len(dataRows))
			for r, row := range dataRows {
				values[r] = row[i]
			}
			a.types[i] = inferColumnType(values)
			a.columns[i] = ColumnSpec{Name: c.Name, Type: a.types[i]}
		}
		a.defs[i] = ColumnDef{Name: c.Name, Type: a.types[i], SumOf: c.SumOf}
	}
	return a, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRow coerces every non-derived cell of one raw row per its
// inferred type.
func (a *workbookAnalysis) parseRow(raw []string) Row {
	parsed := make(Row, len(a.columns))
	for i, c := range a.columns {
		if len(c.SumOf) > 0 {
			continue
		}
		parsed[c.Name] = parseCell(raw[i], a.types[i])
	}
	return parsed
}

// computeRow fills in every derived column of a parsed row using the
// insert resolution policy, in dependency order. line is the 1-based
// spreadsheet row used to annotate numeric failures.
func (a *workbookAnalysis) computeRow(parsed Row, line int) error {
	ordered, err := orderDerived(a.defs)
	if err != nil {
		return err
	}
	computed := make(map[string]any, len(ordered))
	for _, c := range ordered {
		sum, err := ComputeSum(c.SumOf, insertResolver(parsed, computed))
		if err != nil {
			var nn *NonNumericSumSourceError
			if errors.As(err, &nn) {
				nn.Column = c.Name
				nn.Line = line
			}
			return err
		}
		computed[c.Name] = sum
	}
	for k, v := range computed {
		parsed[k] = v
	}
	return nil
}

// PreviewWorkbook runs the ingestion pipeline without touching storage:
// it parses the workbook, infers the schema and returns up to SampleSize
// parsed rows with derived columns computed. Non-numeric sum sources are
// soft here: the row gets a warning and a null derived value instead of
// aborting the preview.
func (s *Service) PreviewWorkbook(ctx context.Context, data []byte, opts UploadOptions) (*PreviewResult, error) {
	a, err := analyzeWorkbook(data, opts.Worksheet)
	if err != nil {
		return nil, err
	}

	sample := opts.SampleSize
	if sample == 0 {
		sample = s.sampleSize
	}
	if sample < minSampleSize {
		sample = minSampleSize
	}
	if sample > maxSampleSize {
		sample = maxSampleSize
	}

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = fmt.Sprintf("import_%d", time.Now().UnixMilli())
	}

	result := &PreviewResult{
		SheetName:    sheetName,
		Worksheet:    a.worksheet,
		DetectedRows: len(a.dataRows),
		Columns:      a.columns,
		SampleRows:   make([]Row, 0, sample),
		Warnings:     []string{},
	}

	n := min(sample, len(a.dataRows))
	for i := 0; i < n; i++ {
		parsed := a.parseRow(a.dataRows[i])
		if err := a.computeRow(parsed, i+2); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			for _, c := range a.columns {
				if len(c.SumOf) > 0 {
					if _, ok := parsed[c.Name]; !ok {
						parsed[c.Name] = nil
					}
				}
			}
		}
		result.SampleRows = append(result.SampleRows, parsed)
	}
	return result, nil
}

// ImportWorkbook commits an ingestion: it creates the sheet (metadata,
// column definitions and physical table) from the inferred schema and
// inserts every data row in fixed-size batches, all inside one
// transaction. Any failure, including a non-numeric sum source on any
// row, rolls the whole import back, leaving neither a sheet nor rows.
func (s *Service) ImportWorkbook(ctx context.Context, data []byte, opts UploadOptions) (*ImportResult, error) {
	a, err := analyzeWorkbook(data, opts.Worksheet)
	if err != nil {
		return nil, err
	}

	base := opts.SheetName
	if base == "" {
		base = fmt.Sprintf("import_%d", time.Now().UnixMilli())
	}
	safeBase, err := Sanitize(base)
	if err != nil {
		return nil, err
	}
	tableName := newTableName(safeBase)

	displayName := opts.SheetName
	if displayName == "" {
		displayName = tableName
	}

	ddl, err := createTableSQL(tableName, a.columns)
	if err != nil {
		return nil, err
	}

	colNames := make([]string, len(a.columns))
	for i, c := range a.columns {
		colNames[i] = quoteIdentifier(c.Name)
	}

	result := &ImportResult{TableName: tableName}
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		exists, err := tableExists(ctx, tx, tableName)
		if err != nil {
			return err
		}
		if exists {
			return &DuplicateTableNameError{TableName: tableName}
		}

		sheetID, err := registerSheet(ctx, tx, displayName, tableName)
		if err != nil {
			return err
		}
		result.SheetID = sheetID

		for _, spec := range a.columns {
			if err := insertColumn(ctx, tx, sheetID, spec); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %q: %w", tableName, err)
		}

		for start := 0; start < len(a.dataRows); start += s.batchSize {
			end := min(start+s.batchSize, len(a.dataRows))
			batch := a.dataRows[start:end]

			var placeholders []string
			var args []any
			for ri, raw := range batch {
				parsed := a.parseRow(raw)
				if err := a.computeRow(parsed, start+ri+2); err != nil {
					return err
				}

				rowPh := make([]string, len(a.columns))
				for ci, c := range a.columns {
					args = append(args, parsed[c.Name])
					rowPh[ci] = fmt.Sprintf("$%d", len(args))
				}
				placeholders = append(placeholders, "("+strings.Join(rowPh, ",")+")")
			}

			q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
				quoteIdentifier(tableName),
				strings.Join(colNames, ","),
				strings.Join(placeholders, ","),
			)
			if _, err := tx.Exec(ctx, q, args...); err != nil {
				return fmt.Errorf("insert batch at row %d: %w", start+2, err)
			}
			result.RowsInserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
