// Package checkpoint persists scraped records to an append-only CSV file.
// The file's last row number is the resume point for the next run; the file
// is never truncated automatically.
package checkpoint

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/codenarok/SteamGameFetcher/models"
)

// Header is the fixed checkpoint column order.
var Header = []string{
	"Row Number",
	"Last Change",
	"Title",
	"Developer",
	"Reviews",
	"Price",
	"Discount",
	"ProtonDB",
	"SteamOSResultStatus",
}

// ErrOutOfOrder reports an append that would break the monotonic row-number
// invariant.
var ErrOutOfOrder = errors.New("checkpoint: records must be appended in increasing row-number order")

// Writer appends records to the checkpoint file. It writes the header only
// when creating a fresh file and flushes once per Append call.
type Writer struct {
	file    *os.File
	writer  *csv.Writer
	mu      sync.Mutex
	lastRow int
}

// Open prepares the checkpoint file at path for appending, creating it
// (with header) when absent. The existing content determines the resume
// point.
func Open(path string) (*Writer, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	lastRow, err := lastRowNumber(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat checkpoint file: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write checkpoint header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush checkpoint header: %w", err)
		}
	}

	return &Writer{
		file:    f,
		writer:  writer,
		lastRow: lastRow,
	}, nil
}

// LastRowNumber returns the resume point: the highest row number durably
// recorded so far, or 0 for a fresh file.
func (w *Writer) LastRowNumber() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRow
}

// Append writes records and flushes them to disk. Records must be sorted by
// row number and strictly above the current resume point.
func (w *Writer) Append(records []models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, record := range records {
		if record.RowNumber <= w.lastRow {
			return fmt.Errorf("%w: row %d after row %d", ErrOutOfOrder, record.RowNumber, w.lastRow)
		}
		if err := w.writer.Write(record.CSVRow()); err != nil {
			return fmt.Errorf("write checkpoint record: %w", err)
		}
		w.lastRow = record.RowNumber
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flush checkpoint records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flush checkpoint writer: %w", err)
	}
	return w.file.Close()
}

// Validate ensures the file has content besides the header.
func (w *Writer) Validate() error {
	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("stat checkpoint file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("checkpoint file is empty")
	}
	return nil
}

// lastRowNumber scans an existing checkpoint file for the highest row
// number. Absent or empty files yield 0; malformed rows are skipped rather
// than aborting a resume.
func lastRowNumber(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read checkpoint file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	last := 0
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return 0, fmt.Errorf("scan checkpoint file: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		n, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		if n > last {
			last = n
		}
	}
	return last, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
