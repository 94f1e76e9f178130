package domain

import (
	"fmt"
	"time"
)

// RemoteConfiguration holds the vendor endpoint and credentials.
// It is supplied per invocation and never persisted by the sync core.
type RemoteConfiguration struct {
	// URL is the base URL of the vendor API.
	URL string

	// CustomerID identifies the vendor account.
	CustomerID string

	// APIKey authenticates requests.
	APIKey string
}

// TenantConfiguration binds a remote configuration to the tenant and
// credentials it is loaded for.
type TenantConfiguration struct {
	TenantID      string
	CredentialsID string
	Remote        RemoteConfiguration
}

// StrategyKind selects how holdings are synchronised.
type StrategyKind string

const (
	// StrategyFullSnapshot reloads the entire remote dataset every run.
	StrategyFullSnapshot StrategyKind = "full"

	// StrategyTransactional loads only the diff between two remote transactions
	// when a previously loaded transaction is still known remotely.
	StrategyTransactional StrategyKind = "transactional"
)

// ParseStrategyKind validates a strategy name.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch StrategyKind(s) {
	case StrategyFullSnapshot, StrategyTransactional:
		return StrategyKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
	}
}

// SyncConfig holds every tunable of the synchronisation engine.
// Attempt counts are total attempts, including the first.
type SyncConfig struct {
	// Strategy selects the synchronisation strategy.
	Strategy StrategyKind

	// StatusPollDelay is the wait between snapshot status checks.
	StatusPollDelay time.Duration

	// StatusPollAttempts bounds snapshot status checks.
	StatusPollAttempts int

	// PageLoadAttempts bounds attempts to load a single page.
	PageLoadAttempts int

	// PageRetryDelay is the wait between attempts to load a page.
	PageRetryDelay time.Duration

	// RefreshPeriod is how long a completed snapshot may be reused.
	RefreshPeriod time.Duration

	// DeltaReportPollDelay is the wait between delta report status checks.
	DeltaReportPollDelay time.Duration

	// DeltaReportPollAttempts bounds delta report status checks.
	DeltaReportPollAttempts int

	// SnapshotPageSize is the page size of the full-snapshot strategy.
	SnapshotPageSize int

	// TransactionPageSize is the page size used for transaction loads.
	TransactionPageSize int

	// DeltaPageSize is the page size used for delta report loads.
	DeltaPageSize int
}

// DefaultSyncConfig returns sensible defaults for the sync engine.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Strategy:                StrategyTransactional,
		StatusPollDelay:         30 * time.Second,
		StatusPollAttempts:      20,
		PageLoadAttempts:        5,
		PageRetryDelay:          5 * time.Second,
		RefreshPeriod:           24 * time.Hour,
		DeltaReportPollDelay:    1 * time.Minute,
		DeltaReportPollAttempts: 30,
		SnapshotPageSize:        5000,
		TransactionPageSize:     4000,
		DeltaPageSize:           4000,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c SyncConfig) Validate() error {
	if _, err := ParseStrategyKind(string(c.Strategy)); err != nil {
		return err
	}
	switch {
	case c.StatusPollAttempts < 1, c.PageLoadAttempts < 1, c.DeltaReportPollAttempts < 1:
		return fmt.Errorf("%w: attempt counts must be at least 1", ErrInvalidInput)
	case c.SnapshotPageSize < 1, c.TransactionPageSize < 1, c.DeltaPageSize < 1:
		return fmt.Errorf("%w: page sizes must be positive", ErrInvalidInput)
	case c.StatusPollDelay < 0, c.PageRetryDelay < 0, c.DeltaReportPollDelay < 0, c.RefreshPeriod < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidInput)
	}
	return nil
}
