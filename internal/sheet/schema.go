package sheet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// mapType maps a logical column type to its Postgres storage type.
func mapType(t DataType) (string, error) {
	switch DataType(strings.ToLower(string(t))) {
	case TypeString:
		return "TEXT", nil
	case TypeInteger:
		return "INTEGER", nil
	case TypeFloat:
		return "DOUBLE PRECISION", nil
	case TypeBoolean:
		return "BOOLEAN", nil
	case TypeDate:
		return "TIMESTAMP", nil
	default:
		return "", &UnsupportedTypeError{Type: string(t)}
	}
}

// normalizeSpecs sanitizes column and sum-source names, lower-cases the
// logical type and forces derived columns to float. The returned specs
// are ready for both metadata inserts and DDL generation.
func normalizeSpecs(specs []ColumnSpec) ([]ColumnSpec, error) {
	out := make([]ColumnSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || spec.Type == "" {
			return nil, fmt.Errorf("each column requires name and type")
		}
		name, err := Sanitize(spec.Name)
		if err != nil {
			return nil, err
		}
		norm := ColumnSpec{Name: name, Type: DataType(strings.ToLower(string(spec.Type)))}
		if len(spec.SumOf) > 0 {
			norm.Type = TypeFloat
			norm.SumOf = make([]string, len(spec.SumOf))
			for i, src := range spec.SumOf {
				s, err := Sanitize(src)
				if err != nil {
					return nil, err
				}
				norm.SumOf[i] = s
			}
		}
		if _, err := mapType(norm.Type); err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return out, nil
}

// validateSumGraph checks that every sum source names a declared column
// and that derived-of-derived chains are acyclic.
func validateSumGraph(specs []ColumnSpec) error {
	declared := make(map[string]bool, len(specs))
	for _, spec := range specs {
		declared[spec.Name] = true
	}

	cols := make([]ColumnDef, len(specs))
	for i, spec := range specs {
		if len(spec.SumOf) == 0 {
			cols[i] = ColumnDef{Name: spec.Name}
			continue
		}
		for _, src := range spec.SumOf {
			if !declared[src] {
				return &UnknownSumSourceError{Column: spec.Name, Source: src}
			}
		}
		cols[i] = ColumnDef{Name: spec.Name, SumOf: spec.SumOf}
	}

	_, err := orderDerived(cols)
	return err
}

// newTableName derives a physical table name from a sanitized base,
// suffixed with a millisecond timestamp to avoid collisions.
func newTableName(base string) string {
	return fmt.Sprintf("%s_%d", base, time.Now().UnixMilli())
}

// createTableSQL builds the DDL for a sheet's dynamic table: an
// auto-incrementing id, a creation timestamp, and one field per column
// in declaration order.
func createTableSQL(tableName string, specs []ColumnSpec) (string, error) {
	defs := make([]string, 0, len(specs))
	for _, spec := range specs {
		storageType, err := mapType(spec.Type)
		if err != nil {
			return "", err
		}
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdentifier(spec.Name), storageType))
	}
	return fmt.Sprintf(
		"CREATE TABLE %s (id SERIAL PRIMARY KEY, created_at TIMESTAMP DEFAULT NOW(), %s)",
		quoteIdentifier(tableName), strings.Join(defs, ", "),
	), nil
}

// tableExists checks the storage catalog for a table of the given name,
// independent of sheet metadata.
func tableExists(ctx context.Context, db DBTX, tableName string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`
	var exists bool
	if err := db.QueryRow(ctx, q, tableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return exists, nil
}

// CreateSheet declares a new sheet: it validates and normalizes the
// column specs, then atomically inserts the sheet metadata, its column
// definitions and the physical table. Any failure rolls the whole unit
// back, leaving neither metadata nor an orphan table behind.
func (s *Service) CreateSheet(ctx context.Context, displayName string, specs []ColumnSpec) (*Sheet, error) {
	if strings.TrimSpace(displayName) == "" || len(specs) == 0 {
		return nil, fmt.Errorf("sheetName and columns are required")
	}

	base, err := Sanitize(displayName)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeSpecs(specs)
	if err != nil {
		return nil, err
	}
	if err := validateSumGraph(normalized); err != nil {
		return nil, err
	}

	tableName := newTableName(base)
	ddl, err := createTableSQL(tableName, normalized)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: displayName, TableName: tableName}
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
		sheet.ID = sheetID

		for _, spec := range normalized {
			if err := insertColumn(ctx, tx, sheetID, spec); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %q: %w", tableName, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

// DropSheet destroys a sheet: the physical table is dropped (cascading
// dependent objects) and the metadata deleted in one atomic unit. Column
// metadata cascades via the sheet_columns foreign key.
func (s *Service) DropSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	var dropped *Sheet
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		sh, err := getSheetMeta(ctx, tx, sheetID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quoteIdentifier(sh.TableName))); err != nil {
			return fmt.Errorf("drop table %q: %w", sh.TableName, err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM sheets WHERE id = $1", sheetID); err != nil {
			return fmt.Errorf("delete sheet metadata: %w", err)
		}
		dropped = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}
