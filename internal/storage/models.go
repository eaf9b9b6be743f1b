package storage

import "time"

// Run is one archived research run.
type Run struct {
	RunID      string
	Company    string
	SeedURL    string
	Links      int
	Attempted  int
	Succeeded  int
	TotalChars int
	Degraded   bool
	ElapsedMs  int64
	CreatedAt  time.Time
}

// PageResult is the per-page outcome archived with a run.
type PageResult struct {
	RunID    string
	URL      string
	Rank     int
	Status   string
	Strategy string
	Chars    int
	Elapsed  int64
	Err      string
}
