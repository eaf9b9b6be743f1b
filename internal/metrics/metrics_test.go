package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/research"
)

func TestTrackerCountsEvents(t *testing.T) {
	tracker := NewTracker()

	tracker.OnEvent("discovery", research.EventCompleted, "42 links")
	tracker.OnEvent("extraction.page", research.EventCompleted, "https://x.example/a status=success chars=1200 strategy=structured_text elapsed=80ms")
	tracker.OnEvent("extraction.page", research.EventCompleted, "https://x.example/b status=success chars=800 strategy=content_selectors elapsed=90ms")
	tracker.OnEvent("extraction.page", research.EventFailed, "https://x.example/c status=timeout chars=0 strategy= elapsed=12s")
	tracker.OnEvent("provider", research.EventCompleted, "openai/selection tokens~500 latency=300ms failover=false")
	tracker.OnEvent("provider", research.EventCompleted, "gemini/synthesis tokens~9000 latency=2s failover=true")

	snap := tracker.GetSnapshot()
	assert.Equal(t, 42, snap.LinksDiscovered)
	assert.Equal(t, 3, snap.PagesAttempted)
	assert.Equal(t, 2, snap.PagesSucceeded)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, 2000, snap.CharsExtracted)
	assert.Equal(t, 2, snap.ProviderCalls)
	assert.Equal(t, 1, snap.ProviderFailovers)
}

func TestTrackerConcurrentEvents(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.OnEvent("extraction.page", research.EventCompleted, "url status=success chars=10 strategy=s elapsed=1ms")
		}()
	}
	wg.Wait()

	snap := tracker.GetSnapshot()
	assert.Equal(t, 50, snap.PagesAttempted)
	assert.Equal(t, 50, snap.PagesSucceeded)
	assert.Equal(t, 500, snap.CharsExtracted)
}

func TestTrackerWriteToFile(t *testing.T) {
	tracker := NewTracker()
	tracker.OnEvent("discovery", research.EventCompleted, "7 links")

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, "completed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 7, snap.LinksDiscovered)
	assert.Equal(t, "completed", snap.TerminationReason)
	assert.False(t, snap.EndTime.IsZero())
}

func TestLogProgress(t *testing.T) {
	tracker := NewTracker()
	tracker.OnEvent("provider", research.EventCompleted, "openai/selection tokens~10 latency=1ms failover=false")
	assert.Contains(t, tracker.LogProgress(), "1 calls")
}
