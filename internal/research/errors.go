package research

import "errors"

// Fatal pipeline errors. Per-page and per-source failures are recorded in
// the batch instead of being raised; only these abort a run.
var (
	// ErrDiscoveryExhausted means all three discovery sources yielded zero links.
	ErrDiscoveryExhausted = errors.New("no content discoverable: all discovery sources empty")

	// ErrProviderUnavailable means both the primary and secondary provider
	// failed for a required call.
	ErrProviderUnavailable = errors.New("primary and secondary providers unavailable")

	// ErrPipelineCancelled means the run was cancelled externally; completed
	// page results are still returned alongside it.
	ErrPipelineCancelled = errors.New("pipeline cancelled")
)
