package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
)

// Export holds everything needed to render a sheet as a workbook: the
// sheet metadata, its ordered column list, and all rows ordered by id.
type Export struct {
	Sheet   Sheet
	Columns []ColumnDef
	Rows    []Row
}

// FetchSheetForExport loads a sheet's metadata, columns and rows for
// document rendering. Read-only.
func (s *Service) FetchSheetForExport(ctx context.Context, sheetID int64) (*Export, error) {
	sh, err := getSheetMeta(ctx, s.pool, sheetID)
	if err != nil {
		return nil, err
	}
	cols, err := getColumns(ctx, s.pool, sheetID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY id", quoteIdentifier(sh.TableName)))
	if err != nil {
		return nil, fmt.Errorf("query rows for export: %w", err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect rows for export: %w", err)
	}

	export := &Export{Sheet: *sh, Columns: cols, Rows: make([]Row, len(maps))}
	for i, m := range maps {
		export.Rows[i] = Row(m)
	}
	return export, nil
}

// Workbook renders the export as an xlsx workbook: a header row of
// id, created_at and the declared columns in declaration order, then
// one row per stored row.
func (e *Export) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	wsName := worksheetName(e.Sheet)
	if err := f.SetSheetName("Sheet1", wsName); err != nil {
		return nil, fmt.Errorf("name worksheet: %w", err)
	}

	header := make([]any, 0, len(e.Columns)+2)
	header = append(header, "id", "created_at")
	for _, c := range e.Columns {
		header = append(header, c.Name)
	}
	if err := f.SetSheetRow(wsName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range e.Rows {
		values := make([]any, 0, len(header))
		values = append(values, row["id"], formatCell(row["created_at"]))
		for _, c := range e.Columns {
			values = append(values, formatCell(row[c.Name]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(wsName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f, nil
}

// Bytes renders the workbook to an xlsx byte buffer.
func (e *Export) Bytes() ([]byte, error) {
	f, err := e.Workbook()
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

// worksheetName derives a valid xlsx worksheet name from the sheet's
// display name. Excel caps worksheet names at 31 characters.
func worksheetName(sh Sheet) string {
	name, err := Sanitize(sh.Name)
	if err != nil {
		name = fmt.Sprintf("sheet_%d", sh.ID)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// formatCell converts stored values to cell-friendly representations.
func formatCell(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}
