package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		schema []string
		valid  bool
	}{
		{name: "exact match", header: []string{"Name", "Year"}, schema: []string{"Name", "Year"}, valid: true},
		{name: "case insensitive", header: []string{"name", "Year"}, schema: []string{"Name", "Year"}, valid: true},
		{name: "order mismatch", header: []string{"Year", "Name"}, schema: []string{"Name", "Year"}, valid: false},
		{name: "missing column", header: []string{"Name"}, schema: []string{"Name", "Year"}, valid: false},
		{name: "extra column", header: []string{"Name", "Year", "Extra"}, schema: []string{"Name", "Year"}, valid: false},
		{name: "renamed column", header: []string{"Name", "Released"}, schema: []string{"Name", "Year"}, valid: false},
		{name: "empty both", header: []string{}, schema: []string{}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumns(tt.header, tt.schema)
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.valid {
				var validation ErrValidation
				if !errors.As(err, &validation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
			}
		})
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// The in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE games (Title TEXT CHECK (Title <> 'boom'), Year TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func makeDataset(n int) *Dataset {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("game-%d", i+1), "2026"}
	}
	return &Dataset{Header: []string{"Title", "Year"}, Rows: rows}
}

func TestLoadBatching(t *testing.T) {
	db := openTestDB(t)

	var progress [][2]int
	l := New(db, "games", 50, ParamStyleSQLite, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	inserted, err := l.Load(context.Background(), makeDataset(237), []string{"Title", "Year"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inserted != 237 {
		t.Fatalf("inserted = %d, want 237", inserted)
	}
	if got := countRows(t, db); got != 237 {
		t.Fatalf("persisted rows = %d, want 237", got)
	}

	want := [][2]int{{50, 237}, {100, 237}, {150, 237}, {200, 237}, {237, 237}}
	if len(progress) != len(want) {
		t.Fatalf("progress calls = %d, want %d (%v)", len(progress), len(want), progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
}

func TestLoadFailFastKeepsEarlierBatches(t *testing.T) {
	db := openTestDB(t)

	dataset := makeDataset(237)
	// Poison a row in the third batch (rows 101-150).
	dataset.Rows[110][0] = "boom"

	var progress [][2]int
	l := New(db, "games", 50, ParamStyleSQLite, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	inserted, err := l.Load(context.Background(), dataset, []string{"Title", "Year"})
	var batchErr ErrBatchInsert
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected ErrBatchInsert, got %v", err)
	}
	if batchErr.FirstRow != 101 || batchErr.LastRow != 150 {
		t.Fatalf("failed range = %d-%d, want 101-150", batchErr.FirstRow, batchErr.LastRow)
	}
	if inserted != 100 {
		t.Fatalf("inserted = %d, want 100", inserted)
	}
	if got := countRows(t, db); got != 100 {
		t.Fatalf("persisted rows = %d, want 100 (batches 1-2 only)", got)
	}
	if len(progress) != 2 {
		t.Fatalf("progress calls = %d, want 2", len(progress))
	}
	if !strings.Contains(err.Error(), "101-150") {
		t.Fatalf("error %q should name the 1-based row range", err.Error())
	}
}

func TestLoadRejectsSchemaMismatchBeforeAnyInsert(t *testing.T) {
	db := openTestDB(t)

	dataset := &Dataset{
		Header: []string{"Year", "Title"},
		Rows:   [][]string{{"2026", "game"}},
	}
	l := New(db, "games", 50, ParamStyleSQLite, nil)

	_, err := l.Load(context.Background(), dataset, []string{"Title", "Year"})
	var validation ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("persisted rows = %d, want 0 after rejected dataset", got)
	}
}

func TestLoadEmptyDataset(t *testing.T) {
	db := openTestDB(t)
	l := New(db, "games", 50, ParamStyleSQLite, nil)

	inserted, err := l.Load(context.Background(), &Dataset{Header: []string{"Title", "Year"}}, []string{"Title", "Year"})
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("inserted = %d, want 0", inserted)
	}
}

func TestSplitTable(t *testing.T) {
	tests := []struct {
		in          string
		wantSchema  string
		wantTable   string
		wantQuoted  string
	}{
		{in: "dbo.SteamOSHandheldInfo", wantSchema: "dbo", wantTable: "SteamOSHandheldInfo", wantQuoted: "[dbo].[SteamOSHandheldInfo]"},
		{in: "[dbo].[SteamOSHandheldInfo]", wantSchema: "dbo", wantTable: "SteamOSHandheldInfo", wantQuoted: "[dbo].[SteamOSHandheldInfo]"},
		{in: "games", wantSchema: "dbo", wantTable: "games", wantQuoted: "[games]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			schemaName, tableName := splitTable(tt.in)
			if schemaName != tt.wantSchema || tableName != tt.wantTable {
				t.Fatalf("splitTable(%q) = (%q, %q), want (%q, %q)", tt.in, schemaName, tableName, tt.wantSchema, tt.wantTable)
			}
			if got := quoteTable(tt.in); got != tt.wantQuoted {
				t.Fatalf("quoteTable(%q) = %q, want %q", tt.in, got, tt.wantQuoted)
			}
		})
	}
}
