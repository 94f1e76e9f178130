package driving

import (
	"context"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

// HoldingsLoader is the asynchronous entry point of the sync engine.
// Both methods return immediately; completion and failure are reported
// to the holdings sink as messages.
type HoldingsLoader interface {
	// CreateSnapshot makes a remote snapshot available, reusing a fresh
	// or running one when possible.
	CreateSnapshot(ctx context.Context, req domain.SnapshotRequest)

	// LoadHoldings streams the pages of a snapshot to the sink.
	LoadHoldings(ctx context.Context, req domain.LoadRequest)
}

// HoldingsSink receives the page stream and status notifications.
type HoldingsSink interface {
	// Send enqueues a message for the sink actor.
	// It blocks only while the mailbox is full.
	Send(ctx context.Context, msg domain.SinkMessage) error

	// LoadHoldings synchronously populates (if needed), waits for and
	// reloads the full snapshot of one tenant, bypassing the mailbox.
	LoadHoldings(ctx context.Context, tenant domain.TenantConfiguration) error

	// Status returns the durable progress record of a tenant.
	Status(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error)
}
