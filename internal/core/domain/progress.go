package domain

import "time"

// HoldingsLoadStatus is the durable progress record of a tenant's holdings load.
// Status-reporting endpoints read it; only the sink writes it.
type HoldingsLoadStatus struct {
	// TenantID and CredentialsID scope the record.
	TenantID      string
	CredentialsID string

	// RunID identifies the current snapshot/load cycle.
	RunID string

	// Status is the state of the current cycle.
	Status LoadStatus

	// Mode is how the current load applies pages.
	Mode LoadMode

	// TransactionID is the snapshot being loaded.
	TransactionID string

	// LastLoadedTransactionID is the last transaction loaded to completion.
	// It becomes the previous transaction of the next delta load.
	LastLoadedTransactionID string

	TotalRecords    int
	TotalPages      int
	ImportedRecords int
	ImportedPages   int

	// Error holds the failure reason when Status is FAILED.
	Error string

	StartedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time
}

// Key returns the record scope.
func (s *HoldingsLoadStatus) Key() TenantKey {
	return TenantKey{TenantID: s.TenantID, CredentialsID: s.CredentialsID}
}

// Done reports whether every announced page has been applied.
func (s *HoldingsLoadStatus) Done() bool {
	return s.ImportedPages >= s.TotalPages
}
