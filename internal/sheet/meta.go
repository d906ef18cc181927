package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// EnsureMetaTables creates the sheet metadata tables if they are absent.
// Called once on startup before any sheet operation.
func (s *Service) EnsureMetaTables(ctx context.Context) error {
	const createSheets = `
		CREATE TABLE IF NOT EXISTS sheets (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			table_name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT NOW()
		)`

	const createColumns = `
		CREATE TABLE IF NOT EXISTS sheet_columns (
			id SERIAL PRIMARY KEY,
			sheet_id INTEGER REFERENCES sheets(id) ON DELETE CASCADE,
			column_name TEXT NOT NULL,
			data_type TEXT NOT NULL,
			sum_of TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`

	if _, err := s.pool.Exec(ctx, createSheets); err != nil {
		return fmt.Errorf("create sheets table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createColumns); err != nil {
		return fmt.Errorf("create sheet_columns table: %w", err)
	}
	return nil
}

// registerSheet inserts the sheet metadata row and returns its id.
func registerSheet(ctx context.Context, db DBTX, name, tableName string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx,
		"INSERT INTO sheets(name, table_name) VALUES($1, $2) RETURNING id",
		name, tableName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("register sheet: %w", err)
	}
	return id, nil
}

// insertColumn persists one column definition. SumOf is stored as a JSON
// array to preserve declaration order of the sources.
func insertColumn(ctx context.Context, db DBTX, sheetID int64, spec ColumnSpec) error {
	var sumOf any
	if len(spec.SumOf) > 0 {
		b, err := json.Marshal(spec.SumOf)
		if err != nil {
			return fmt.Errorf("encode sum_of: %w", err)
		}
		sumOf = string(b)
	}
	_, err := db.Exec(ctx,
		"INSERT INTO sheet_columns(sheet_id, column_name, data_type, sum_of) VALUES($1, $2, $3, $4)",
		sheetID, spec.Name, string(spec.Type), sumOf,
	)
	if err != nil {
		return fmt.Errorf("insert column %q: %w", spec.Name, err)
	}
	return nil
}

// getColumns returns the sheet's column definitions in declaration order.
// Insertion order is canonical: it drives both export column order and
// the field order of dynamic-table DDL and inserts.
func getColumns(ctx context.Context, db DBTX, sheetID int64) ([]ColumnDef, error) {
	rows, err := db.Query(ctx,
		"SELECT id, sheet_id, column_name, data_type, sum_of, created_at FROM sheet_columns WHERE sheet_id = $1 ORDER BY id",
		sheetID,
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnDef
	for rows.Next() {
		var c ColumnDef
		var sumOf *string
		if err := rows.Scan(&c.ID, &c.SheetID, &c.Name, &c.Type, &sumOf, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if sumOf != nil {
			if err := json.Unmarshal([]byte(*sumOf), &c.SumOf); err != nil {
				return nil, fmt.Errorf("decode sum_of for column %q: %w", c.Name, err)
			}
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// getTableName resolves a sheet id to its physical table name.
func getTableName(ctx context.Context, db DBTX, sheetID int64) (string, error) {
	var tableName string
	err := db.QueryRow(ctx, "SELECT table_name FROM sheets WHERE id = $1", sheetID).Scan(&tableName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSheetNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve table name: %w", err)
	}
	return tableName, nil
}

// getSheetMeta loads a sheet's metadata row without its columns.
func getSheetMeta(ctx context.Context, db DBTX, sheetID int64) (*Sheet, error) {
	var sh Sheet
	err := db.QueryRow(ctx,
		"SELECT id, name, table_name, created_at FROM sheets WHERE id = $1", sheetID,
	).Scan(&sh.ID, &sh.Name, &sh.TableName, &sh.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSheetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sheet: %w", err)
	}
	return &sh, nil
}

// ListSheets returns registered sheets, newest first, optionally with
// their column definitions attached.
func (s *Service) ListSheets(ctx context.Context, opts ListOptions) ([]Sheet, error) {
	q := "SELECT id, name, table_name, created_at FROM sheets ORDER BY created_at DESC"
	var args []any
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var sheets []Sheet
	for rows.Next() {
		var sh Sheet
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.TableName, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		sheets = append(sheets, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if opts.IncludeColumns {
		for i := range sheets {
			cols, err := getColumns(ctx, s.pool, sheets[i].ID)
			if err != nil {
				return nil, err
			}
			sheets[i].Columns = cols
		}
	}
	return sheets, nil
}

// GetSheet returns a sheet's metadata together with its columns.
func (s *Service) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	sh, err := getSheetMeta(ctx, s.pool, sheetID)
	if err != nil {
		return nil, err
	}
	cols, err := getColumns(ctx, s.pool, sheetID)
	if err != nil {
		return nil, err
	}
	sh.Columns = cols
	return sh, nil
}

// CheckTableAvailability reports whether a candidate table name is free.
// The name is sanitized and shape-checked before the catalog is queried.
func (s *Service) CheckTableAvailability(ctx context.Context, raw string) (bool, error) {
	name, err := Sanitize(strings.TrimSpace(raw))
	if err != nil {
		return false, err
	}
	if !IsValidIdentifier(name) {
		return false, &InvalidNameError{Raw: raw}
	}
	exists, err := tableExists(ctx, s.pool, name)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
