package scraper

import (
	"errors"
	"fmt"
)

// ErrConnection indicates the debuggable browser endpoint is unreachable.
// Terminal for the run: the operator must relaunch Chrome with
// --remote-debugging-port and re-run.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrExtraction indicates the page no longer matches the expected grid
// structure. Terminal for the run; rows flushed so far stay in the
// checkpoint file.
type ErrExtraction struct {
	Reason string
	Err    error
}

func (e ErrExtraction) Error() string {
	if e.Err != nil {
		return fmt.Errorf("extraction: %s: %w", e.Reason, e.Err).Error()
	}
	return "extraction: " + e.Reason
}

func (e ErrExtraction) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var extraction ErrExtraction
	if errors.As(err, &extraction) {
		return "extraction"
	}
	return "other"
}
