package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// normalizeFields runs every caller-supplied field name through the
// sanitizer so lookups stay consistent with stored column metadata.
func normalizeFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		name, err := Sanitize(k)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// fetchRow loads one row of a dynamic table as a column-name-keyed map.
func fetchRow(ctx context.Context, db DBTX, tableName string, rowID int64) (Row, error) {
	rows, err := db.Query(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = $1", quoteIdentifier(tableName)), rowID)
	if err != nil {
		return nil, fmt.Errorf("fetch row: %w", err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch row: %w", err)
	}
	return Row(m), nil
}

// collectReturnedRow consumes a RETURNING * result set into a Row.
func collectReturnedRow(rows pgx.Rows, err error) (Row, error) {
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return Row(m), nil
}

// AddRow inserts one row into the sheet's dynamic table. Non-derived
// columns take the caller's value (null when omitted); derived columns
// are computed with the insert resolution policy: submitted value if
// present, else zero. The whole operation is transactional and returns
// the stored row with its generated id and timestamp.
func (s *Service) AddRow(ctx context.Context, sheetID int64, fields map[string]any) (Row, error) {
	input, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	var stored Row
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		tableName, err := getTableName(ctx, tx, sheetID)
		if err != nil {
			return err
		}
		cols, err := getColumns(ctx, tx, sheetID)
		if err != nil {
			return err
		}

		computed, err := computeDerived(cols, func(done map[string]any) ResolveFunc {
			return insertResolver(input, done)
		})
		if err != nil {
			return err
		}

		names := make([]string, 0, len(cols))
		values := make([]any, 0, len(cols))
		for _, c := range cols {
			if c.Derived() {
				continue
			}
			names = append(names, quoteIdentifier(c.Name))
			values = append(values, input[c.Name]) // nil when omitted
		}
		for _, c := range cols {
			if !c.Derived() {
				continue
			}
			names = append(names, quoteIdentifier(c.Name))
			values = append(values, computed[c.Name])
		}

		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			quoteIdentifier(tableName),
			strings.Join(names, ", "),
			strings.Join(placeholders, ", "),
		)

		stored, err = collectReturnedRow(tx.Query(ctx, q, values...))
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateRow updates one row. Only non-derived fields explicitly present
// in the request are changed; derived columns are always recomputed with
// the update resolution policy (new value if given, else the currently
// stored value, else zero). When nothing would be set the call is a
// no-op that returns the existing row unchanged.
//
// The existing-row read and the write are two statements with no row
// lock between them; concurrent writers to the same row are not
// application-serialized beyond the storage engine's isolation.
func (s *Service) UpdateRow(ctx context.Context, sheetID, rowID int64, fields map[string]any) (Row, error) {
	input, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	var stored Row
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		tableName, err := getTableName(ctx, tx, sheetID)
		if err != nil {
			return err
		}
		cols, err := getColumns(ctx, tx, sheetID)
		if err != nil {
			return err
		}
		existing, err := fetchRow(ctx, tx, tableName, rowID)
		if err != nil {
			return err
		}

		var setParts []string
		var values []any
		for _, c := range cols {
			if c.Derived() {
				continue
			}
			if v, ok := input[c.Name]; ok {
				values = append(values, v)
				setParts = append(setParts, fmt.Sprintf("%s = $%d", quoteIdentifier(c.Name), len(values)))
			}
		}

		computed, err := computeDerived(cols, func(done map[string]any) ResolveFunc {
			return updateResolver(input, existing, done)
		})
		if err != nil {
			return err
		}
		for _, c := range cols {
			if !c.Derived() {
				continue
			}
			values = append(values, computed[c.Name])
			setParts = append(setParts, fmt.Sprintf("%s = $%d", quoteIdentifier(c.Name), len(values)))
		}

		if len(setParts) == 0 {
			stored = existing
			return nil
		}

		values = append(values, rowID)
		q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
			quoteIdentifier(tableName),
			strings.Join(setParts, ", "),
			len(values),
		)

		stored, err = collectReturnedRow(tx.Query(ctx, q, values...))
		if err != nil {
			return fmt.Errorf("update row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetRow fetches one row by id. Read-only, no explicit transaction.
func (s *Service) GetRow(ctx context.Context, sheetID, rowID int64) (Row, error) {
	tableName, err := getTableName(ctx, s.pool, sheetID)
	if err != nil {
		return nil, err
	}
	return fetchRow(ctx, s.pool, tableName, rowID)
}
