package checkpoint

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/codenarok/SteamGameFetcher/models"
)

func record(row int, title string) models.Record {
	return models.Record{
		RowNumber:    row,
		LastChange:   "2026-01-01",
		Title:        title,
		Developer:    "dev",
		ReviewScore:  "90%",
		Price:        "$10",
		Discount:     "",
		ProtonRating: "gold",
		Status:       models.StatusPlayable,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open checkpoint: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read checkpoint: %v", err)
	}
	return rows
}

func TestOpenFreshFileWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraped.csv")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := w.LastRowNumber(); got != 0 {
		t.Fatalf("fresh resume point = %d, want 0", got)
	}
	if err := w.Append([]models.Record{record(1, "a"), record(2, "b")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "Row Number" || rows[0][8] != "SteamOSResultStatus" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "1" || rows[2][0] != "2" {
		t.Fatalf("unexpected row numbers: %v %v", rows[1][0], rows[2][0])
	}
}

func TestReopenAppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraped.csv")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := w.Append([]models.Record{record(1, "a")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := w.LastRowNumber(); got != 1 {
		t.Fatalf("resume point = %d, want 1", got)
	}
	if err := w.Append([]models.Record{record(2, "b")}); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	headerCount := 0
	for _, row := range rows {
		if row[0] == "Row Number" {
			headerCount++
		}
	}
	if headerCount != 1 {
		t.Fatalf("header written %d times", headerCount)
	}
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraped.csv")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if err := w.Append([]models.Record{record(5, "a")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	err = w.Append([]models.Record{record(5, "dup")})
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("duplicate row error = %v, want ErrOutOfOrder", err)
	}
	err = w.Append([]models.Record{record(3, "older")})
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("older row error = %v, want ErrOutOfOrder", err)
	}
}

func TestLastRowNumberSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraped.csv")
	contents := "Row Number,Last Change,Title,Developer,Reviews,Price,Discount,ProtonDB,SteamOSResultStatus\n" +
		"7,2026-01-01,a,d,90%,$1,,gold,Playable\n" +
		"junk,2026-01-01,b,d,90%,$1,,gold,Playable\n" +
		"120,2026-01-02,c,d,90%,$1,,gold,Verified\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if got := w.LastRowNumber(); got != 120 {
		t.Fatalf("resume point = %d, want 120", got)
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "scraped.csv")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open with nested dir: %v", err)
	}
	defer w.Close()

	if err := w.Validate(); err != nil {
		t.Fatalf("validate after header write: %v", err)
	}
}
