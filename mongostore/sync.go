package mongostore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/codenarok/SteamGameFetcher/scraper"
)

// documentFields are the columns carried from the source query into each
// Mongo document, in document order. Columns missing from the query are
// stored as null.
var documentFields = []string{
	"TitleName",
	"TitleID",
	"PublisherName",
	"ProductID",
	"PublisherType",
}

// titleColumn is the one column the source query must return.
const titleColumn = "TitleName"

// GameDetails is one row of the source query, keyed by column name.
type GameDetails map[string]any

// FetchGameDetails runs the configured query and scans every row. The
// result set must include a TitleName column.
func FetchGameDetails(ctx context.Context, db *sql.DB, query string) ([]GameDetails, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run source query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read query columns: %w", err)
	}
	if !hasColumn(columns, titleColumn) {
		return nil, fmt.Errorf("source query must return a %s column, got %v", titleColumn, columns)
	}

	var details []GameDetails
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		row := make(GameDetails, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		details = append(details, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}
	return details, nil
}

func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// buildDocument shapes one source row plus its scraped status into the
// document written to Mongo.
func buildDocument(details GameDetails, result string) bson.M {
	doc := bson.M{}
	for _, field := range documentFields {
		if v, ok := details[field]; ok {
			doc[field] = v
		} else {
			doc[field] = nil
		}
	}
	doc["SteamOSResult"] = result
	return doc
}

// titleOf extracts the title, tolerating case differences in the column
// name.
func titleOf(details GameDetails) string {
	for col, v := range details {
		if !strings.EqualFold(col, titleColumn) {
			continue
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// SummarySync reports the outcome of one sync run.
type SummarySync struct {
	Titles   int
	Inserted int
	NotFound int
	Skipped  int
}

// Syncer pulls titles from SQL Server, scrapes each one's compatibility
// status, and upserts the combined document into MongoDB.
type Syncer struct {
	db      *sql.DB
	session scraper.Session
	store   *Store
	query   string
}

func NewSyncer(db *sql.DB, session scraper.Session, store *Store, query string) *Syncer {
	return &Syncer{db: db, session: session, store: store, query: query}
}

// Run executes one full sync pass.
func (s *Syncer) Run(ctx context.Context) (*SummarySync, error) {
	details, err := FetchGameDetails(ctx, s.db, s.query)
	if err != nil {
		return nil, err
	}

	summary := &SummarySync{Titles: len(details)}
	for i, row := range details {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		title := titleOf(row)
		slog.Info("syncing title",
			slog.Int("row", i+1),
			slog.Int("total", len(details)),
			slog.String("title", title),
		)

		result := scraper.ResultSkippedEmpty
		switch {
		case title == "":
			summary.Skipped++
		default:
			status, found, err := scraper.LookupStatus(ctx, s.session, title)
			if err != nil {
				return summary, err
			}
			if found {
				result = status
			} else {
				result = scraper.ResultNotFound
				summary.NotFound++
			}
		}

		inserted, err := s.store.UpsertResult(ctx, buildDocument(row, result))
		if err != nil {
			return summary, err
		}
		if inserted {
			summary.Inserted++
		}
	}

	slog.Info("sync complete",
		slog.Int("titles", summary.Titles),
		slog.Int("inserted", summary.Inserted),
		slog.Int("not_found", summary.NotFound),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}
