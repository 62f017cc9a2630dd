// Package loader validates a CSV dataset against the destination table's
// schema and uploads it in fixed-size batches.
package loader

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrValidation indicates the dataset's header does not match the
// destination table. The dataset is rejected wholesale; no rows are sent.
type ErrValidation struct {
	Reason string
}

func (e ErrValidation) Error() string {
	return "validation: " + e.Reason
}

// ErrBatchInsert indicates the store rejected a batch. Earlier batches
// remain committed; the row range is 1-based over the data rows.
type ErrBatchInsert struct {
	FirstRow int
	LastRow  int
	Err      error
}

func (e ErrBatchInsert) Error() string {
	return fmt.Sprintf("batch insert rows %d-%d: %v", e.FirstRow, e.LastRow, e.Err)
}

func (e ErrBatchInsert) Unwrap() error {
	return e.Err
}

// ProgressFunc receives (rowsCompleted, totalRows) after each committed
// batch.
type ProgressFunc func(rowsCompleted, totalRows int)

// Dataset is a parsed input CSV: one header row plus zero or more data
// rows.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// ReadDataset parses the CSV file at path.
func ReadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input CSV: %w", err)
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("input CSV %s is empty", path)
	}
	return &Dataset{Header: all[0], Rows: all[1:]}, nil
}

// ValidateColumns compares a dataset header against the destination
// table's column list: case-insensitive, but position- and
// count-sensitive. Pure comparison, no type checking.
func ValidateColumns(header, schema []string) error {
	if len(header) != len(schema) {
		return ErrValidation{Reason: fmt.Sprintf("CSV has %d columns, table has %d", len(header), len(schema))}
	}
	for i := range schema {
		if !strings.EqualFold(header[i], schema[i]) {
			return ErrValidation{Reason: fmt.Sprintf("column %d is %q, table expects %q", i+1, header[i], schema[i])}
		}
	}
	return nil
}

// ParamStyle is the SQL placeholder format for the destination driver.
type ParamStyle string

const (
	// ParamStyleSQLServer matches the sqlserver/azuresql drivers.
	ParamStyleSQLServer ParamStyle = "@p%d"
	// ParamStyleSQLite matches SQLite's numbered positional parameters.
	ParamStyleSQLite ParamStyle = "?%d"
)

// Loader streams validated rows into the destination table in fixed-size
// batches, one transaction per batch.
type Loader struct {
	db        *sql.DB
	table     string
	batchSize int
	style     ParamStyle
	progress  ProgressFunc
}

// New builds a loader for the given table. progress may be nil.
func New(db *sql.DB, table string, batchSize int, style ParamStyle, progress ProgressFunc) *Loader {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Loader{
		db:        db,
		table:     table,
		batchSize: batchSize,
		style:     style,
		progress:  progress,
	}
}

// LoadFile fetches the destination schema, validates the CSV at path
// against it, and uploads every row. Returns the number of rows inserted.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	dataset, err := ReadDataset(path)
	if err != nil {
		return 0, err
	}
	schema, err := FetchTableSchema(ctx, l.db, l.table)
	if err != nil {
		return 0, err
	}
	return l.Load(ctx, dataset, schema)
}

// Load validates the dataset against schema and inserts all rows in
// batches, committing per batch. On a batch failure it stops immediately:
// earlier batches stay committed, nothing from the failed batch persists.
func (l *Loader) Load(ctx context.Context, dataset *Dataset, schema []string) (int, error) {
	if err := ValidateColumns(dataset.Header, schema); err != nil {
		return 0, err
	}

	total := len(dataset.Rows)
	if total == 0 {
		slog.Info("no data rows to load")
		return 0, nil
	}

	stmt := l.insertStatement(schema)
	done := 0
	for start := 0; start < total; start += l.batchSize {
		end := start + l.batchSize
		if end > total {
			end = total
		}
		if err := l.insertBatch(ctx, stmt, dataset.Rows[start:end]); err != nil {
			return done, ErrBatchInsert{FirstRow: start + 1, LastRow: end, Err: err}
		}
		done = end
		slog.Info("batch committed",
			slog.Int("rows_completed", done),
			slog.Int("total_rows", total),
		)
		if l.progress != nil {
			l.progress(done, total)
		}
	}
	return done, nil
}

// insertBatch runs one transaction: every row inserted, then committed.
func (l *Loader) insertBatch(ctx context.Context, stmt string, rows [][]string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}

	for _, row := range rows {
		args := make([]interface{}, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			prepared.Close()
			tx.Rollback()
			return err
		}
	}

	if err := prepared.Close(); err != nil {
		tx.Rollback()
		return fmt.Errorf("close insert statement: %w", err)
	}
	return tx.Commit()
}

func (l *Loader) insertStatement(schema []string) string {
	cols := make([]string, len(schema))
	params := make([]string, len(schema))
	for i, col := range schema {
		cols[i] = "[" + col + "]"
		params[i] = fmt.Sprintf(string(l.style), i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTable(l.table), strings.Join(cols, ", "), strings.Join(params, ", "))
}
