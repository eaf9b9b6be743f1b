// Package metrics aggregates run counters from pipeline progress events and
// exports them as JSON on exit.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sitescout/sitescout/internal/research"
)

// Snapshot is the exported metrics payload for one run
type Snapshot struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	LinksDiscovered   int       `json:"links_discovered"`
	PagesAttempted    int       `json:"pages_attempted"`
	PagesSucceeded    int       `json:"pages_succeeded"`
	PagesFailed       int       `json:"pages_failed"`
	CharsExtracted    int       `json:"chars_extracted"`
	ProviderCalls     int       `json:"provider_calls"`
	ProviderFailovers int       `json:"provider_failovers"`
	TerminationReason string    `json:"termination_reason"`
}

// Tracker holds and manages run metrics. It implements research.ProgressSink
// so it can be fanned in alongside the log sink.
type Tracker struct {
	mu   sync.Mutex
	data Snapshot
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: Snapshot{
			StartTime: time.Now(),
		},
	}
}

// OnEvent updates counters from pipeline progress events
func (t *Tracker) OnEvent(stage string, status research.EventStatus, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch stage {
	case "discovery":
		if status == research.EventCompleted {
			fmt.Sscanf(detail, "%d links", &t.data.LinksDiscovered)
		}
	case "extraction.page":
		t.data.PagesAttempted++
		if status == research.EventCompleted {
			t.data.PagesSucceeded++
			var chars int
			if i := strings.Index(detail, "chars="); i >= 0 {
				fmt.Sscanf(detail[i:], "chars=%d", &chars)
			}
			t.data.CharsExtracted += chars
		} else {
			t.data.PagesFailed++
		}
	case "provider":
		t.data.ProviderCalls++
		if strings.Contains(detail, "failover=true") {
			t.data.ProviderFailovers++
		}
	}
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress prints current metrics to console (for periodic updates)
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Links: %d discovered | Pages: %d attempted, %d succeeded, %d failed | Provider: %d calls, %d failovers",
		t.data.LinksDiscovered,
		t.data.PagesAttempted,
		t.data.PagesSucceeded,
		t.data.PagesFailed,
		t.data.ProviderCalls,
		t.data.ProviderFailovers,
	)
}
