// Package query wraps an embedded SQLite engine: it mounts the persisted
// CSV tables and registers the domain time functions and streak aggregates.
package query

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/chenjiandongx/gitv/internal/record"
)

// driverName is the sqlite3 driver carrying the registered UDFs/UDAFs.
const driverName = "sqlite3_gitv"

var registerOnce sync.Once

func registerDriver() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for name, impl := range scalarFuncs {
				registerErr := conn.RegisterFunc(name, impl, true)
				if registerErr != nil {
					return fmt.Errorf("register func %s: %w", name, registerErr)
				}
			}

			for name, constructor := range aggregateFuncs {
				registerErr := conn.RegisterAggregator(name, constructor, true)
				if registerErr != nil {
					return fmt.Errorf("register aggregator %s: %w", name, registerErr)
				}
			}

			return nil
		},
	})
}

// Engine owns one in-memory SQLite database with all domain functions
// registered. Closing the engine releases every mounted table.
type Engine struct {
	db *sql.DB
}

// Open creates an empty in-memory engine.
func Open() (*Engine, error) {
	registerOnce.Do(registerDriver)

	db, openErr := sql.Open(driverName, ":memory:")
	if openErr != nil {
		return nil, fmt.Errorf("open sqlite: %w", openErr)
	}

	// The in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	pingErr := db.Ping()
	if pingErr != nil {
		return nil, fmt.Errorf("ping sqlite: %w", pingErr)
	}

	return &Engine{db: db}, nil
}

// Close releases the database and all registered function closures.
func (e *Engine) Close() error {
	return e.db.Close()
}

// MountDatabase loads every record CSV found under dir as a table named
// "<dbName>_<variant>". Missing variant files are skipped.
func (e *Engine) MountDatabase(ctx context.Context, dbName, dir string) error {
	for variant := range record.Headers {
		path := filepath.Join(dir, variant+".csv")

		_, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}

		table := dbName + "_" + variant

		mountErr := e.mountCSV(ctx, table, path, variant)
		if mountErr != nil {
			return mountErr
		}
	}

	return nil
}

func (e *Engine) mountCSV(ctx context.Context, table, path, variant string) error {
	file, openErr := os.Open(path)
	if openErr != nil {
		return fmt.Errorf("open %s: %w", path, openErr)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	rows, readErr := reader.ReadAll()
	if readErr != nil {
		return fmt.Errorf("read %s: %w", path, readErr)
	}

	if len(rows) == 0 {
		return nil
	}

	header := rows[0]

	numeric := make(map[string]bool)
	for _, col := range record.NumericColumns[variant] {
		numeric[col] = true
	}

	createErr := e.createTable(ctx, table, header, numeric)
	if createErr != nil {
		return createErr
	}

	return e.insertRows(ctx, table, header, numeric, rows[1:])
}

func (e *Engine) createTable(ctx context.Context, table string, header []string, numeric map[string]bool) error {
	columns := ""

	for i, col := range header {
		if i > 0 {
			columns += ", "
		}

		affinity := "TEXT"
		if numeric[col] {
			affinity = "INTEGER"
		}

		columns += quoteIdent(col) + " " + affinity
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), columns)

	_, execErr := e.db.ExecContext(ctx, stmt)
	if execErr != nil {
		return fmt.Errorf("create table %s: %w", table, execErr)
	}

	return nil
}

func (e *Engine) insertRows(ctx context.Context, table string, header []string, numeric map[string]bool, rows [][]string) error {
	placeholders := ""
	for i := range header {
		if i > 0 {
			placeholders += ", "
		}

		placeholders += "?"
	}

	tx, beginErr := e.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("begin tx: %w", beginErr)
	}

	stmt, prepareErr := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders))
	if prepareErr != nil {
		_ = tx.Rollback()

		return fmt.Errorf("prepare insert %s: %w", table, prepareErr)
	}

	for _, row := range rows {
		args := make([]any, len(header))

		for i, col := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}

			if numeric[col] {
				n, _ := strconv.ParseInt(value, 10, 64)
				args[i] = n

				continue
			}

			args[i] = value
		}

		_, execErr := stmt.ExecContext(ctx, args...)
		if execErr != nil {
			_ = tx.Rollback()

			return fmt.Errorf("insert into %s: %w", table, execErr)
		}
	}

	commitErr := tx.Commit()
	if commitErr != nil {
		return fmt.Errorf("commit %s: %w", table, commitErr)
	}

	return nil
}

// Result holds one query result with values dispatched to int64, float64,
// or string per column cell.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Select executes one statement and materializes the full result.
func (e *Engine) Select(ctx context.Context, statement string) (*Result, error) {
	rows, queryErr := e.db.QueryContext(ctx, statement)
	if queryErr != nil {
		return nil, fmt.Errorf("query: %w", queryErr)
	}
	defer rows.Close()

	columns, colErr := rows.Columns()
	if colErr != nil {
		return nil, fmt.Errorf("columns: %w", colErr)
	}

	result := &Result{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		scanErr := rows.Scan(pointers...)
		if scanErr != nil {
			return nil, fmt.Errorf("scan: %w", scanErr)
		}

		for i, value := range values {
			if b, ok := value.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("rows: %w", rowsErr)
	}

	return result, nil
}

// Exec executes one statement without materializing rows; used by tests
// for non-SELECT statements such as fixture setup.
func (e *Engine) Exec(ctx context.Context, statement string, args ...any) error {
	_, execErr := e.db.ExecContext(ctx, statement, args...)
	if execErr != nil {
		return fmt.Errorf("exec: %w", execErr)
	}

	return nil
}

func quoteIdent(ident string) string {
	return `"` + ident + `"`
}
