package domain

// TenantKey scopes durable state to one tenant and credentials pair.
type TenantKey struct {
	TenantID      string
	CredentialsID string
}

// SinkMessage is a notification consumed by the holdings sink.
// Messages are created when a step completes and never mutated afterwards.
type SinkMessage interface {
	// Tenant returns the scope the message applies to.
	Tenant() TenantKey

	sinkMessage()
}

// LoadMode tells the sink how to apply the pages of a load.
type LoadMode string

const (
	// LoadModeFull replaces the tenant's holdings with the streamed pages.
	LoadModeFull LoadMode = "full"

	// LoadModeDelta applies streamed changes on top of the stored holdings.
	LoadModeDelta LoadMode = "delta"
)

// SnapshotRequest asks the orchestrator to make a remote snapshot available.
type SnapshotRequest struct {
	Configuration RemoteConfiguration
	TenantID      string
	CredentialsID string
}

// Tenant returns the request scope.
func (r SnapshotRequest) Tenant() TenantKey {
	return TenantKey{TenantID: r.TenantID, CredentialsID: r.CredentialsID}
}

// LoadRequest carries everything needed to load (or resume loading) a snapshot.
type LoadRequest struct {
	// RunID correlates the load with its progress record.
	RunID string

	Configuration RemoteConfiguration
	TenantID      string
	CredentialsID string

	// CurrentTransactionID is the snapshot to load. Empty for the full strategy.
	CurrentTransactionID string

	// PreviousTransactionID is the last successfully loaded transaction, if any.
	PreviousTransactionID string

	TotalRecordCount int

	// TotalPages is informational; the strategy recomputes it from its page size.
	TotalPages int
}

// Tenant returns the request scope.
func (r LoadRequest) Tenant() TenantKey {
	return TenantKey{TenantID: r.TenantID, CredentialsID: r.CredentialsID}
}

// SnapshotCreated reports that a remote snapshot is ready to be loaded.
type SnapshotCreated struct {
	Configuration    RemoteConfiguration
	TenantID         string
	CredentialsID    string
	TransactionID    string
	TotalRecordCount int
	TotalPages       int
}

// SnapshotFailed reports that a snapshot could not be made available.
type SnapshotFailed struct {
	TenantID      string
	CredentialsID string
	Reason        string
}

// LoadStarted announces the page stream that follows.
//
// RunID on LoadStarted and on the page and failure messages after it ties
// them to the run recorded by SnapshotCreated. The sink drops messages of
// any other run; an empty RunID is not checked.
type LoadStarted struct {
	RunID            string
	TenantID         string
	CredentialsID    string
	TransactionID    string
	Mode             LoadMode
	TotalRecordCount int
	TotalPages       int
}

// RecordPage is one page of a full or transaction load.
type RecordPage struct {
	RunID         string
	TenantID      string
	CredentialsID string
	TransactionID string

	// Page is the 1-based page number.
	Page    int
	Records []HoldingRecord
}

// ChangesPage is one page of a delta report.
type ChangesPage struct {
	RunID         string
	TenantID      string
	CredentialsID string
	TransactionID string
	Page          int
	Changes       []HoldingChange
}

// LoadingFailed reports a terminal load failure with enough context to
// retry without recomputing page boundaries.
type LoadingFailed struct {
	RunID                 string
	TenantID              string
	CredentialsID         string
	CurrentTransactionID  string
	PreviousTransactionID string
	TotalRecordCount      int
	TotalPages            int
	PagesLoaded           int
	Reason                string
}

func (m SnapshotCreated) Tenant() TenantKey { return TenantKey{m.TenantID, m.CredentialsID} }
func (m SnapshotFailed) Tenant() TenantKey  { return TenantKey{m.TenantID, m.CredentialsID} }
func (m LoadStarted) Tenant() TenantKey     { return TenantKey{m.TenantID, m.CredentialsID} }
func (m RecordPage) Tenant() TenantKey      { return TenantKey{m.TenantID, m.CredentialsID} }
func (m ChangesPage) Tenant() TenantKey     { return TenantKey{m.TenantID, m.CredentialsID} }
func (m LoadingFailed) Tenant() TenantKey   { return TenantKey{m.TenantID, m.CredentialsID} }

func (SnapshotCreated) sinkMessage() {}
func (SnapshotFailed) sinkMessage()  {}
func (LoadStarted) sinkMessage()     {}
func (RecordPage) sinkMessage()      {}
func (ChangesPage) sinkMessage()     {}
func (LoadingFailed) sinkMessage()   {}
