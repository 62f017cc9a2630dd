package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/codenarok/SteamGameFetcher/config"
)

const (
	gridSelector   = "div[role='grid']"
	gridLoadWait   = 30 * time.Second
	rowsExpression = `Array.from(document.querySelectorAll("div[role='row']")).map(r => ({
		index: parseInt(r.getAttribute("aria-rowindex") || "0", 10),
		classes: r.getAttribute("class") || "",
		cells: Array.from(r.querySelectorAll("div[role='gridcell']")).map(c => c.innerText.trim()),
	}))`
	scrollExpression = `(() => {
		const grid = document.querySelector("div[role='grid']");
		if (!grid) return false;
		grid.scrollBy(0, %d);
		return true;
	})()`
	searchExpression = `(() => {
		const input = document.querySelector("input[placeholder='Type to filter']");
		if (!input) return false;
		const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value").set;
		setter.call(input, %s);
		input.dispatchEvent(new Event("input", { bubbles: true }));
		return true;
	})()`
)

// CDPSession drives the listing page over an attachment to an
// externally-launched Chrome instance. It never starts or stops the browser
// process itself.
type CDPSession struct {
	ctx          context.Context
	cancels      []context.CancelFunc
	scrollAmount int
	scrollWait   time.Duration
	searchWait   time.Duration
}

// Attach connects to the remote debugging endpoint, picks the page the
// operator prepared (the most recently opened one), navigates to the
// listing if needed and waits for the grid to render.
func Attach(ctx context.Context, cfg config.Scraper) (*CDPSession, error) {
	if err := probeDebugger(ctx, http.DefaultClient, cfg.Endpoint); err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, cfg.Endpoint)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s := &CDPSession{
		cancels:      []context.CancelFunc{browserCancel, allocCancel},
		scrollAmount: cfg.ScrollAmount,
		scrollWait:   cfg.ScrollWait,
		searchWait:   cfg.SearchWait,
	}

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		s.Close()
		return nil, ErrConnection{Err: fmt.Errorf("list browser targets: %w", err)}
	}

	pageCtx := browserCtx
	if id := pickPage(targets); id != "" {
		var pageCancel context.CancelFunc
		pageCtx, pageCancel = chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
		s.cancels = append([]context.CancelFunc{pageCancel}, s.cancels...)
	}
	s.ctx = pageCtx

	var location string
	if err := chromedp.Run(pageCtx, chromedp.Location(&location)); err != nil {
		s.Close()
		return nil, ErrConnection{Err: fmt.Errorf("read page location: %w", err)}
	}
	if !strings.HasPrefix(location, listingBase(cfg.ListingURL)) {
		if err := chromedp.Run(pageCtx, chromedp.Navigate(cfg.ListingURL)); err != nil {
			s.Close()
			return nil, ErrConnection{Err: fmt.Errorf("navigate to listing: %w", err)}
		}
	}

	waitCtx, cancel := context.WithTimeout(pageCtx, gridLoadWait)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(gridSelector, chromedp.ByQuery)); err != nil {
		s.Close()
		return nil, ErrExtraction{Reason: "listing grid did not appear", Err: err}
	}

	return s, nil
}

// VisibleRows extracts the currently rendered grid rows.
func (s *CDPSession) VisibleRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	if err := chromedp.Run(s.run(ctx), chromedp.Evaluate(rowsExpression, &rows)); err != nil {
		return nil, ErrExtraction{Reason: "read grid rows", Err: err}
	}
	return rows, nil
}

// NextPage scrolls the grid down and waits for the virtualized list to
// settle.
func (s *CDPSession) NextPage(ctx context.Context) error {
	var ok bool
	expr := fmt.Sprintf(scrollExpression, s.scrollAmount)
	if err := chromedp.Run(s.run(ctx), chromedp.Evaluate(expr, &ok), chromedp.Sleep(s.scrollWait)); err != nil {
		return ErrExtraction{Reason: "scroll grid", Err: err}
	}
	if !ok {
		return ErrExtraction{Reason: "listing grid not present during scroll"}
	}
	return nil
}

// Search fills the grid's filter input and waits for the filter to apply.
func (s *CDPSession) Search(ctx context.Context, term string) error {
	encoded, err := json.Marshal(term)
	if err != nil {
		return fmt.Errorf("encode search term: %w", err)
	}
	var ok bool
	expr := fmt.Sprintf(searchExpression, string(encoded))
	if err := chromedp.Run(s.run(ctx), chromedp.Evaluate(expr, &ok), chromedp.Sleep(s.searchWait)); err != nil {
		return ErrExtraction{Reason: "apply grid filter", Err: err}
	}
	if !ok {
		return ErrExtraction{Reason: "filter input not found"}
	}
	return nil
}

// Close releases the attachment contexts. The browser process stays up: it
// is owned by the operator, not by this program.
func (s *CDPSession) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

// run bounds a chromedp action by the caller's context without replacing
// the attachment context.
func (s *CDPSession) run(ctx context.Context) context.Context {
	if ctx == nil {
		return s.ctx
	}
	merged, cancel := context.WithCancel(s.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}

// pickPage returns the most recently opened page target, mirroring the
// operator workflow of solving the bot challenge in the active tab.
func pickPage(targets []*target.Info) target.ID {
	var id target.ID
	for _, t := range targets {
		if t.Type == "page" {
			id = t.TargetID
		}
	}
	return id
}

func listingBase(listingURL string) string {
	if i := strings.IndexByte(listingURL, '?'); i >= 0 {
		return listingURL[:i]
	}
	return listingURL
}

// probeDebugger checks that a debuggable browser is listening before any
// CDP traffic, so an absent browser surfaces as a clean connection error.
func probeDebugger(ctx context.Context, client *http.Client, endpoint string) error {
	url := strings.TrimRight(endpoint, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ErrConnection{Err: fmt.Errorf("build probe request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ErrConnection{Err: fmt.Errorf("no debuggable browser at %s (launch Chrome with --remote-debugging-port): %w", endpoint, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrConnection{Err: fmt.Errorf("debugger endpoint %s returned status %d", endpoint, resp.StatusCode)}
	}
	return nil
}
