// Package models defines the data structures shared by the scrape and
// load flows.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Status is the canonical SteamOS compatibility category derived from a
// listing row.
type Status string

const (
	StatusVerified    Status = "Verified"
	StatusPlayable    Status = "Playable"
	StatusUnsupported Status = "Unsupported"
	StatusUnknown     Status = "Unknown"
)

// StatusFromClasses maps a row's class attribute to a Status. The lookup is
// an exact token match; anything unrecognised is Unknown.
func StatusFromClasses(classAttr string) Status {
	for _, class := range strings.Fields(classAttr) {
		switch class {
		case "verified":
			return StatusVerified
		case "playable":
			return StatusPlayable
		case "unsupported":
			return StatusUnsupported
		}
	}
	return StatusUnknown
}

// Record is one scraped listing entry. Records are immutable once written
// and are appended to the checkpoint file in row-number order.
type Record struct {
	RowNumber    int    `json:"row_number"`
	LastChange   string `json:"last_change"`
	Title        string `json:"title"`
	Developer    string `json:"developer"`
	ReviewScore  string `json:"review_score"`
	Price        string `json:"price"`
	Discount     string `json:"discount"`
	ProtonRating string `json:"proton_rating"`
	Status       Status `json:"steamos_status"`
}

// CSVRow renders the record in checkpoint column order.
func (r Record) CSVRow() []string {
	return []string{
		strconv.Itoa(r.RowNumber),
		r.LastChange,
		r.Title,
		r.Developer,
		r.ReviewScore,
		r.Price,
		r.Discount,
		r.ProtonRating,
		string(r.Status),
	}
}

// ScrapeSummary holds the overall result of a scrape run.
type ScrapeSummary struct {
	StartTime      time.Time
	EndTime        time.Time
	ResumedFrom    int
	RowsWritten    int
	LastRowNumber  int
	ScrollAttempts int
	Stalls         int
	Exhausted      bool
}
