package scraper

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

// Result labels for the search-driven flows. These feed the SteamOSResult
// output column, which is a different surface from the checkpoint's
// four-way status.
const (
	ResultNotFound     = "Not Found"
	ResultSkippedEmpty = "Skipped (Empty)"
	resultDefault      = "N/A"
)

// searchTitleCell is the gridcell index holding the title in the filtered
// grid.
const searchTitleCell = 1

// LookupStatus filters the grid by title and returns the status of the row
// whose title matches exactly (case-insensitively). found is false when no
// row matches.
func LookupStatus(ctx context.Context, session Session, title string) (status string, found bool, err error) {
	if err := session.Search(ctx, title); err != nil {
		return "", false, err
	}
	rows, err := session.VisibleRows(ctx)
	if err != nil {
		return "", false, err
	}

	for _, row := range rows {
		if len(row.Cells) <= searchTitleCell {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row.Cells[searchTitleCell]), title) {
			return statusFromSearchRow(row.Classes), true, nil
		}
	}
	return "", false, nil
}

// statusFromSearchRow reads the status from a filtered row's class list,
// preferring the status- prefixed class the site uses on search results.
func statusFromSearchRow(classAttr string) string {
	classes := strings.Fields(classAttr)
	if len(classes) == 0 {
		return resultDefault
	}
	last := classes[len(classes)-1]
	if strings.HasPrefix(last, "status-") {
		return capitalize(strings.TrimPrefix(last, "status-"))
	}
	if len(classes) > 1 {
		return last
	}
	return resultDefault
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ListedSummary holds the outcome of a listed-games run.
type ListedSummary struct {
	Processed int
	Matched   int
	NotFound  int
	Skipped   int
}

// ListedScraper scrapes the compatibility status for a fixed list of game
// titles read from an input CSV.
type ListedScraper struct {
	session Session
}

// NewListedScraper wraps an attached session.
func NewListedScraper(session Session) *ListedScraper {
	return &ListedScraper{session: session}
}

// Run reads titles from the first column of inputPath, looks each one up in
// the grid, and writes the original rows plus a SteamOSResult column to
// outputPath. The output is written once, at the end of the run.
func (l *ListedScraper) Run(ctx context.Context, inputPath, outputPath string) (*ListedSummary, error) {
	header, rows, err := readInput(inputPath)
	if err != nil {
		return nil, err
	}

	summary := &ListedSummary{}
	output := make([][]string, 0, len(rows)+1)
	output = append(output, append(append([]string{}, header...), "SteamOSResult"))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		title := ""
		if len(row) > 0 {
			title = strings.TrimSpace(row[0])
		}
		slog.Info("processing title",
			slog.Int("row", i+1),
			slog.Int("total", len(rows)),
			slog.String("title", title),
		)

		result := ResultSkippedEmpty
		switch {
		case title == "":
			summary.Skipped++
		default:
			status, found, err := LookupStatus(ctx, l.session, title)
			if err != nil {
				return summary, err
			}
			if found {
				result = status
				summary.Matched++
			} else {
				result = ResultNotFound
				summary.NotFound++
			}
		}

		output = append(output, append(append([]string{}, row...), result))
		summary.Processed++
	}

	if err := writeOutput(outputPath, output); err != nil {
		return summary, err
	}
	return summary, nil
}

func readInput(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read input CSV: %w", err)
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return nil, nil, fmt.Errorf("input CSV %s is empty", path)
	}
	return all[0], all[1:], nil
}

func writeOutput(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output CSV: %w", err)
	}
	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write output CSV: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush output CSV: %w", err)
	}
	return f.Close()
}
