// Package db wraps the embedded DuckDB engine used to read columnar source
// files (Parquet) into tables.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-legend/internal/tabular"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// DB is an open DuckDB database.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if needed) <DataDir>/duckdb/<DBName>.duckdb. An
// empty DataDir opens an in-memory database.
func Open(cfg Config) (*DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	// parquet is built in; spatial is best effort and may be unavailable
	// offline.
	_, _ = conn.Exec("INSTALL spatial; LOAD spatial;")
	return &DB{sql: conn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// ReadParquet loads a Parquet file as a table of strings, keeping column
// order. NULL cells are left out of their row.
func (d *DB) ReadParquet(ctx context.Context, path string) (*tabular.Table, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT * FROM read_parquet(?)", path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &tabular.Table{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(tabular.Row, len(cols))
		for i, c := range cols {
			if s, ok := cell(vals[i]); ok {
				row[c] = s
			}
		}
		t.Rows = append(t.Rows, tabular.RemoveBlanks(row))
	}
	return t, rows.Err()
}

func cell(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(time.RFC3339), true
	default:
		return fmt.Sprint(t), true
	}
}
