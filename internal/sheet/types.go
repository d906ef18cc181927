// Package sheet implements the dynamic sheet engine: user-declared tabular
// datasets backed by dynamically created Postgres tables, with derived
// sum columns, row CRUD, spreadsheet ingestion and workbook export.
// This package has no HTTP dependencies and can be used by any frontend.
package sheet

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DataType is a logical column type. It is persisted in sheet metadata,
// so the values are stable strings rather than iota constants.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInteger DataType = "integer"
	TypeFloat   DataType = "float"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
)

// ColumnSpec is a caller-supplied column declaration for a new sheet.
// A non-empty SumOf marks the column as derived: its value is always the
// numeric sum of the named source columns, and its type is forced to float.
type ColumnSpec struct {
	Name  string   `json:"name"`
	Type  DataType `json:"type"`
	SumOf []string `json:"sum_of,omitempty"`
}

// ColumnDef is the persisted shape of one field in a sheet.
type ColumnDef struct {
	ID        int64     `json:"id"`
	SheetID   int64     `json:"-"`
	Name      string    `json:"column_name"`
	Type      DataType  `json:"data_type"`
	SumOf     []string  `json:"sum_of,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Derived reports whether the column's value is computed from other columns.
func (c ColumnDef) Derived() bool {
	return len(c.SumOf) > 0
}

// Sheet is a user-declared dataset backed by one physical table.
// TableName is immutable and globally unique for the sheet's lifetime.
type Sheet struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	TableName string      `json:"table_name"`
	CreatedAt time.Time   `json:"created_at"`
	Columns   []ColumnDef `json:"columns,omitempty"`
}

// Row is a dynamically shaped row: one entry per column plus the fixed
// {id, created_at} envelope. Values hold one of the five logical types.
type Row map[string]any

// ListOptions controls sheet listing.
type ListOptions struct {
	IncludeColumns bool
	Limit          int // 0 means no limit
	Offset         int
}
