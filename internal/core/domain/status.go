package domain

import (
	"fmt"
	"time"
)

// LoadStatus is the state of a remote export job or of a local load.
type LoadStatus string

const (
	// LoadStatusNone means no job exists yet.
	LoadStatusNone LoadStatus = "NONE"

	// LoadStatusInProgress means the job is still running.
	LoadStatusInProgress LoadStatus = "IN_PROGRESS"

	// LoadStatusCompleted means the job finished successfully.
	LoadStatusCompleted LoadStatus = "COMPLETED"

	// LoadStatusFailed means the job ended in failure.
	LoadStatusFailed LoadStatus = "FAILED"
)

// IsTerminal reports whether no further progress is expected.
func (s LoadStatus) IsTerminal() bool {
	return s == LoadStatusCompleted || s == LoadStatusFailed
}

// ReportStatus is the state of a remote delta report computation.
type ReportStatus string

const (
	ReportStatusInProgress ReportStatus = "IN_PROGRESS"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Status strings reported by the transactional backend.
const (
	RemoteStatusInProgress = "In Progress"
	RemoteStatusComplete   = "Complete"
	RemoteStatusFailed     = "Failed"
)

// SnapshotStatus describes the latest (or a named) remote export job.
type SnapshotStatus struct {
	// TransactionID identifies the job. Empty for backends that do not
	// model snapshots as distinct transactions.
	TransactionID string

	// Status is the job state.
	Status LoadStatus

	// CreatedAt is when the job was created. Zero if unknown.
	CreatedAt time.Time

	// TotalRecordCount is the number of records in the job, when known.
	TotalRecordCount int

	// TotalPages is the page count reported by the backend, when known.
	// Never trusted for pagination; see PageCount.
	TotalPages int
}

// TransactionSummary is one entry of the remote transaction registry,
// with the status still in the backend's string form.
type TransactionSummary struct {
	ID        string
	Status    string
	CreatedAt time.Time

	// TotalCount is only reported by status lookups.
	TotalCount int
}

// ReportSummary is a delta report as reported by the backend.
type ReportSummary struct {
	ID         string
	Status     string
	TotalCount int
}

// DeltaReportStatus describes a remote diff computation between two transactions.
type DeltaReportStatus struct {
	Status           ReportStatus
	TotalRecordCount int
}

// MapTransactionStatus converts a transactional backend status string.
// Unrecognised values are an error, never a default.
func MapTransactionStatus(s string) (LoadStatus, error) {
	switch s {
	case RemoteStatusInProgress:
		return LoadStatusInProgress, nil
	case RemoteStatusComplete:
		return LoadStatusCompleted, nil
	case RemoteStatusFailed:
		return LoadStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: transaction status %q", ErrUnknownStatus, s)
	}
}

// MapReportStatus converts a delta report status string.
func MapReportStatus(s string) (ReportStatus, error) {
	switch s {
	case RemoteStatusInProgress:
		return ReportStatusInProgress, nil
	case RemoteStatusComplete:
		return ReportStatusCompleted, nil
	case RemoteStatusFailed:
		return ReportStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: delta report status %q", ErrUnknownStatus, s)
	}
}

// PageCount returns ceil(totalRecords / pageSize).
// A non-positive page size yields zero pages.
func PageCount(totalRecords, pageSize int) int {
	if totalRecords <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalRecords + pageSize - 1) / pageSize
}

// IsFresh reports whether a job created at createdAt is still inside the
// refresh window ending at now. A zero createdAt is never fresh.
func IsFresh(createdAt, now time.Time, refreshPeriod time.Duration) bool {
	if createdAt.IsZero() {
		return false
	}
	return createdAt.After(now.Add(-refreshPeriod))
}
