package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/research"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleBatch() research.ExtractionBatch {
	return research.ExtractionBatch{
		Results: []research.PageExtractionResult{
			{URL: "https://acme.example/about", Rank: 0, Status: research.StatusSuccess, Strategy: "structured_text", Text: "text", Chars: 4, Elapsed: 120 * time.Millisecond},
			{URL: "https://acme.example/contact", Rank: 1, Status: research.StatusEmpty, Strategy: "content_selectors", Elapsed: 80 * time.Millisecond},
			{URL: "https://acme.example/broken", Rank: 2, Status: research.StatusFetchError, Err: "connection refused", Elapsed: 50 * time.Millisecond},
		},
		Attempted:  3,
		Succeeded:  1,
		TotalChars: 4,
	}
}

func TestSaveRunAndReadBack(t *testing.T) {
	store := newTestStorage(t)

	target := research.Target{Company: "Acme", URL: "https://acme.example"}
	artifact := research.IntelligenceArtifact{
		Narrative: "Acme builds widgets.",
		Industry:  "Manufacturing",
	}

	runID, err := store.SaveRun(target, 42, sampleBatch(), artifact, 3*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, "Acme", runs[0].Company)
	assert.Equal(t, 3, runs[0].Attempted)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, int64(3000), runs[0].ElapsedMs)

	pages, err := store.PageResults(runID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "https://acme.example/about", pages[0].URL)
	assert.Equal(t, string(research.StatusSuccess), pages[0].Status)
	assert.Equal(t, "connection refused", pages[2].Err)

	stored, err := store.GetArtifact(runID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Acme builds widgets.", stored.Narrative)
	assert.Equal(t, "Manufacturing", stored.Industry)
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	target := research.Target{Company: "Acme", URL: "https://acme.example"}

	first, err := store.SaveRun(target, 1, research.ExtractionBatch{}, research.IntelligenceArtifact{Degraded: true}, time.Second)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	second, err := store.SaveRun(target, 2, research.ExtractionBatch{}, research.IntelligenceArtifact{Degraded: true}, time.Second)
	require.NoError(t, err)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].RunID)
	assert.Equal(t, first, runs[1].RunID)
}

func TestGetArtifactMissingRun(t *testing.T) {
	store := newTestStorage(t)
	artifact, err := store.GetArtifact("no-such-run")
	require.NoError(t, err)
	assert.Nil(t, artifact)
}
