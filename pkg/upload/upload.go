package upload

import (
	"context"

	"github.com/ethpandaops/qahub/pkg/api/store"
)

// Archiver copies automation reports to remote storage in the background.
type Archiver interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// Enqueue schedules a report for archiving. It never blocks; it
	// returns false when the queue is full and the report was dropped.
	Enqueue(report *store.AutomationReport) bool

	// Run uploads queued reports until ctx is cancelled, then drains
	// whatever is still queued.
	Run(ctx context.Context) error
}
