package rmapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

var _ driven.TransactionalGateway = (*Client)(nil)

const (
	transactionsPath = "reports/holdings/transactions"
	deltasPath       = "reports/holdings/deltas"
)

type transactionID struct {
	TransactionID string `json:"transactionId"`
}

type transactionRow struct {
	TransactionID string    `json:"transactionId"`
	CreationDate  timestamp `json:"creationDate"`
	Status        string    `json:"status"`
}

type transactionList struct {
	Transactions []transactionRow `json:"holdingsDownloadTransactionIds"`
}

type transactionStatus struct {
	Status       string    `json:"status"`
	CreationDate timestamp `json:"creationDate"`
	TotalCount   int       `json:"totalCount"`
}

type deltaRequest struct {
	CurrentTransactionID  string `json:"currentTransactionId"`
	PreviousTransactionID string `json:"previousTransactionId"`
}

type deltaID struct {
	DeltaReportID string `json:"deltaReportId"`
}

type deltaStatus struct {
	Status     string `json:"status"`
	TotalCount int    `json:"totalCount"`
}

type deltaRow struct {
	UpdateType string  `json:"updateType"`
	Holding    holding `json:"holding"`
}

type deltaPage struct {
	Holdings []deltaRow `json:"holdings"`
}

// mapUpdateType converts a delta row's update type. Unrecognised values
// are an error.
func mapUpdateType(s string) (domain.ChangeType, error) {
	switch s {
	case "Added":
		return domain.ChangeAdded, nil
	case "Updated":
		return domain.ChangeUpdated, nil
	case "Deleted":
		return domain.ChangeDeleted, nil
	default:
		return "", fmt.Errorf("%w: update type %q", domain.ErrUnknownStatus, s)
	}
}

// PopulateTransaction starts a new transaction and returns its id.
func (c *Client) PopulateTransaction(ctx context.Context, cfg domain.RemoteConfiguration) (string, error) {
	var resp transactionID
	if err := c.do(ctx, cfg, http.MethodPost, "reports/holdings", nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.TransactionID == "" {
		return "", fmt.Errorf("populate transaction: empty transaction id")
	}
	return resp.TransactionID, nil
}

// GetTransactionStatus returns the status of a named transaction.
func (c *Client) GetTransactionStatus(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	id string,
) (domain.TransactionSummary, error) {
	var resp transactionStatus
	if err := c.do(ctx, cfg, http.MethodGet, resourcePath(transactionsPath, id, "status"), nil, nil, &resp); err != nil {
		return domain.TransactionSummary{}, err
	}
	return domain.TransactionSummary{
		ID:         id,
		Status:     resp.Status,
		CreatedAt:  resp.CreationDate.Time,
		TotalCount: resp.TotalCount,
	}, nil
}

// ListTransactions returns every transaction the backend still knows.
func (c *Client) ListTransactions(ctx context.Context, cfg domain.RemoteConfiguration) ([]domain.TransactionSummary, error) {
	var resp transactionList
	if err := c.do(ctx, cfg, http.MethodGet, transactionsPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.TransactionSummary, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		out = append(out, domain.TransactionSummary{
			ID:        t.TransactionID,
			Status:    t.Status,
			CreatedAt: t.CreationDate.Time,
		})
	}
	return out, nil
}

// LoadTransactionPage fetches one 1-based page of a transaction.
func (c *Client) LoadTransactionPage(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	id string,
	page, pageSize int,
) ([]domain.HoldingRecord, error) {
	var resp holdingsPage
	if err := c.do(ctx, cfg, http.MethodGet, resourcePath(transactionsPath, id), pageQuery(page, pageSize), nil, &resp); err != nil {
		return nil, err
	}
	return toRecords(resp.Holdings), nil
}

// PopulateDeltaReport starts a diff between two transactions.
func (c *Client) PopulateDeltaReport(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	currentID, previousID string,
) (string, error) {
	var resp deltaID
	body := deltaRequest{CurrentTransactionID: currentID, PreviousTransactionID: previousID}
	if err := c.do(ctx, cfg, http.MethodPost, deltasPath, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.DeltaReportID == "" {
		return "", fmt.Errorf("populate delta report: empty report id")
	}
	return resp.DeltaReportID, nil
}

// GetDeltaReportStatus returns the status of a delta report.
func (c *Client) GetDeltaReportStatus(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	reportID string,
) (domain.ReportSummary, error) {
	var resp deltaStatus
	if err := c.do(ctx, cfg, http.MethodGet, resourcePath(deltasPath, reportID, "status"), nil, nil, &resp); err != nil {
		return domain.ReportSummary{}, err
	}
	return domain.ReportSummary{ID: reportID, Status: resp.Status, TotalCount: resp.TotalCount}, nil
}

// LoadDeltaPage fetches one 1-based page of a delta report.
func (c *Client) LoadDeltaPage(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	reportID string,
	page, pageSize int,
) ([]domain.HoldingChange, error) {
	var resp deltaPage
	if err := c.do(ctx, cfg, http.MethodGet, resourcePath(deltasPath, reportID), pageQuery(page, pageSize), nil, &resp); err != nil {
		return nil, err
	}

	changes := make([]domain.HoldingChange, 0, len(resp.Holdings))
	for _, row := range resp.Holdings {
		changeType, err := mapUpdateType(row.UpdateType)
		if err != nil {
			return nil, err
		}
		changes = append(changes, domain.HoldingChange{Type: changeType, Holding: row.Holding.toDomain()})
	}
	return changes, nil
}
