package scraper

import "context"

// Row is one raw grid row as rendered by the listing page. Index comes from
// the aria-rowindex attribute, Classes from the row's class attribute, and
// Cells from the gridcell text contents in order.
type Row struct {
	Index   int      `json:"index"`
	Classes string   `json:"classes"`
	Cells   []string `json:"cells"`
}

// Session is the capability surface the scrape flows need from an attached
// browser page. Production uses a CDP attachment; tests use a fake.
type Session interface {
	// VisibleRows extracts the rows currently rendered in the grid.
	VisibleRows(ctx context.Context) ([]Row, error)
	// NextPage advances the listing, scrolling the grid and waiting for it
	// to settle.
	NextPage(ctx context.Context) error
	// Search filters the grid by the given term and waits for the filter to
	// apply.
	Search(ctx context.Context, term string) error
	// Close releases the attachment without closing the externally-owned
	// browser. Safe to call in any state.
	Close() error
}
