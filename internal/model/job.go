package model

import (
	"context"
	"time"
)

const (
	// SalaryNotFound marks a posting whose salary token was absent or unparseable.
	SalaryNotFound = -1
	// LocationNotFound marks a posting with no "location" token.
	LocationNotFound = "not found"
	// DateLayout is the ISO calendar form used for deadlines and dataset names.
	DateLayout = "2006-01-02"
)

// Posting holds the fields extracted from one listing fragment. Every field is
// always populated; absence is expressed through the sentinels above.
type Posting struct {
	Title      string    // lowercased, trimmed
	Employer   string    // lowercased, trimmed
	Department string    // lowercased, trimmed
	Deadline   time.Time // calendar date, UTC midnight
	Salary     int       // SalaryNotFound when missing
	Location   string    // lowercase letters only, or LocationNotFound
	DetailRef  string    // relative link to the detail page
}

// DeadlineISO returns the deadline as YYYY-MM-DD.
func (p Posting) DeadlineISO() string {
	return p.Deadline.Format(DateLayout)
}

// Record is a Posting that survived filtering and was enriched with its full
// description.
type Record struct {
	Posting
	Description string
	KeywordHit  bool
}

// RunSummary describes one pipeline run.
type RunSummary struct {
	ID          string
	Date        time.Time
	Fragments   int
	Records     int
	Hits        int
	Filtered    int // rejected by a filter stage
	Dropped     int // lost to a per-item error
	DatasetPath string
}

// Fetcher retrieves the raw document at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Notifier delivers a digest of keyword-hit records.
type Notifier interface {
	Notify(ctx context.Context, records []Record) error
}

// RunArchive keeps a history of completed runs.
type RunArchive interface {
	SaveRun(ctx context.Context, run RunSummary, records []Record) error
}
