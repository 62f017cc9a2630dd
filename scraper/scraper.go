// Package scraper drives the resumable scrape of the compatibility listing
// through an attached browser session.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codenarok/SteamGameFetcher/checkpoint"
	"github.com/codenarok/SteamGameFetcher/config"
	"github.com/codenarok/SteamGameFetcher/models"
)

// recordCells is the number of gridcells a data row must carry.
const recordCells = 7

// headerRowIndex is the aria-rowindex the grid assigns to its header row.
const headerRowIndex = 1

// seenCacheSize bounds the cache of row numbers already extracted this
// session. Overlapping scroll views repeat nearby rows, so a window of
// recent indices is enough.
const seenCacheSize = 4096

// Scraper runs the resumable scrape loop: extract visible rows, skip
// everything at or below the checkpoint, flush per batch interval, scroll,
// and stop on exhaustion or structural mismatch.
type Scraper struct {
	cfg     config.Scraper
	session Session
	store   *checkpoint.Writer
	Metrics *Metrics

	seen    *lru.Cache[int, struct{}]
	pending []models.Record
	written int
}

// New builds a scraper over an attached session and an open checkpoint
// writer.
func New(cfg config.Scraper, session Session, store *checkpoint.Writer) (*Scraper, error) {
	seen, err := lru.New[int, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}
	return &Scraper{
		cfg:     cfg,
		session: session,
		store:   store,
		Metrics: NewMetrics(),
		seen:    seen,
	}, nil
}

// Run executes the scrape until the listing is exhausted, the row cap is
// reached, the context is cancelled, or an error occurs. Collected rows are
// flushed to the checkpoint before Run returns on every path.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeSummary, error) {
	resume := s.store.LastRowNumber()
	summary := &models.ScrapeSummary{
		StartTime:     time.Now(),
		ResumedFrom:   resume,
		LastRowNumber: resume,
	}
	slog.Info("starting scrape",
		slog.Int("resume_point", resume),
		slog.Int("max_rows", s.cfg.MaxRows),
	)

	err := s.scrape(ctx, resume, summary)

	if flushErr := s.flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
	}

	summary.EndTime = time.Now()
	summary.RowsWritten = s.written
	summary.LastRowNumber = s.store.LastRowNumber()
	return summary, err
}

func (s *Scraper) scrape(ctx context.Context, resume int, summary *models.ScrapeSummary) error {
	if err := s.preScroll(ctx, resume+1); err != nil {
		return err
	}

	maxSeen := resume
	stalls := 0

	for s.collected() < s.cfg.MaxRows {
		if ctx.Err() != nil {
			slog.Info("scrape cancelled, stopping after current page")
			return nil
		}

		cycleStart := time.Now()
		rows, err := s.session.VisibleRows(ctx)
		if err != nil {
			return err
		}

		newRows := 0
		pageMax := maxSeen
		for _, row := range rows {
			if row.Index > pageMax {
				pageMax = row.Index
			}
			if s.skip(row) {
				continue
			}
			if s.collected() >= s.cfg.MaxRows {
				slog.Info("row cap reached", slog.Int("max_rows", s.cfg.MaxRows))
				break
			}

			record, err := parseRecord(row)
			if err != nil {
				return err
			}
			s.pending = append(s.pending, record)
			s.seen.Add(row.Index, struct{}{})
			newRows++
		}
		s.Metrics.IncRows(newRows)

		if pageMax > maxSeen {
			maxSeen = pageMax
			stalls = 0
		} else if newRows == 0 {
			stalls++
			summary.Stalls++
			slog.Debug("no progress on this pass",
				slog.Int("max_row_seen", maxSeen),
				slog.Int("stalls", stalls),
			)
		} else {
			stalls = 0
		}

		if stalls >= s.cfg.StallLimit {
			slog.Info("listing exhausted",
				slog.Int("last_row", maxSeen),
				slog.Int("stall_limit", s.cfg.StallLimit),
			)
			summary.Exhausted = true
			return nil
		}

		summary.ScrollAttempts++
		s.Metrics.IncScrolls()
		if summary.ScrollAttempts%s.cfg.BatchInterval == 0 {
			if err := s.flush(); err != nil {
				return err
			}
		}

		if err := s.session.NextPage(ctx); err != nil {
			return err
		}
		s.Metrics.ObservePageCycle(time.Since(cycleStart))
	}

	return nil
}

// preScroll advances the listing until a row at or past startRow is
// rendered, bounded to keep a shrunken listing from looping forever.
func (s *Scraper) preScroll(ctx context.Context, startRow int) error {
	for attempt := 0; attempt < s.cfg.PreScrollLimit; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		rows, err := s.session.VisibleRows(ctx)
		if err != nil {
			return err
		}
		highest := 0
		for _, row := range rows {
			if row.Index >= startRow {
				return nil
			}
			if row.Index > highest {
				highest = row.Index
			}
		}
		slog.Debug("pre-scrolling to resume point",
			slog.Int("attempt", attempt+1),
			slog.Int("target_row", startRow),
			slog.Int("highest_visible", highest),
		)
		if err := s.session.NextPage(ctx); err != nil {
			return err
		}
	}
	return ErrExtraction{Reason: fmt.Sprintf("row %d not reachable after %d pre-scroll attempts", startRow, s.cfg.PreScrollLimit)}
}

// skip reports whether a row is the grid header, already checkpointed, or
// already collected this session. The live resume point is consulted so a
// late gap-fill below an earlier flush never breaks the checkpoint's
// monotonic order.
func (s *Scraper) skip(row Row) bool {
	if row.Index == headerRowIndex && len(row.Cells) < recordCells {
		return true
	}
	if row.Index <= s.store.LastRowNumber() {
		return true
	}
	if _, ok := s.seen.Get(row.Index); ok {
		return true
	}
	return false
}

func (s *Scraper) collected() int {
	return s.written + len(s.pending)
}

// flush writes pending records to the checkpoint in row order.
func (s *Scraper) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	sort.Slice(s.pending, func(i, j int) bool {
		return s.pending[i].RowNumber < s.pending[j].RowNumber
	})
	if err := s.store.Append(s.pending); err != nil {
		return err
	}
	s.written += len(s.pending)
	s.Metrics.IncBatches()
	slog.Info("checkpoint batch written",
		slog.Int("rows", len(s.pending)),
		slog.Int("total_written", s.written),
		slog.Int("last_row", s.store.LastRowNumber()),
	)
	s.pending = s.pending[:0]
	return nil
}

// parseRecord converts a grid row into a Record. A data row without the
// expected cell shape means the site layout changed.
func parseRecord(row Row) (models.Record, error) {
	if len(row.Cells) < recordCells {
		return models.Record{}, ErrExtraction{
			Reason: fmt.Sprintf("row %d has %d cells, expected %d", row.Index, len(row.Cells), recordCells),
		}
	}
	return models.Record{
		RowNumber:    row.Index,
		LastChange:   row.Cells[0],
		Title:        row.Cells[1],
		Developer:    row.Cells[2],
		ReviewScore:  row.Cells[3],
		Price:        row.Cells[4],
		Discount:     row.Cells[5],
		ProtonRating: row.Cells[6],
		Status:       models.StatusFromClasses(row.Classes),
	}, nil
}
