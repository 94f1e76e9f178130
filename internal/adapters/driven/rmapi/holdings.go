package rmapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

var _ driven.LoadGateway = (*Client)(nil)

// holding is the wire form of one holdings row.
type holding struct {
	VendorID         string `json:"vendor_id"`
	VendorName       string `json:"vendor_name"`
	PackageID        string `json:"package_id"`
	PackageName      string `json:"package_name"`
	TitleID          string `json:"title_id"`
	PublicationTitle string `json:"publication_title"`
	PublisherName    string `json:"publisher_name"`
	ResourceType     string `json:"resource_type"`
}

func (h holding) toDomain() domain.HoldingRecord {
	return domain.HoldingRecord{
		ProviderID:    h.VendorID,
		PackageID:     h.PackageID,
		TitleID:       h.TitleID,
		VendorName:    h.VendorName,
		PackageName:   h.PackageName,
		TitleName:     h.PublicationTitle,
		PublisherName: h.PublisherName,
		ResourceType:  h.ResourceType,
	}
}

func toRecords(rows []holding) []domain.HoldingRecord {
	records := make([]domain.HoldingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records
}

type holdingsPage struct {
	TotalCount int       `json:"totalCount"`
	Holdings   []holding `json:"holdingsList"`
}

type snapshotStatus struct {
	Status     string    `json:"status"`
	Created    timestamp `json:"created"`
	TotalCount int       `json:"totalCount"`
}

// mapSnapshotStatus converts a global snapshot status. Unrecognised values
// are an error.
func mapSnapshotStatus(s string) (domain.LoadStatus, error) {
	switch s {
	case "NONE":
		return domain.LoadStatusNone, nil
	case "IN_PROGRESS":
		return domain.LoadStatusInProgress, nil
	case "COMPLETED":
		return domain.LoadStatusCompleted, nil
	case "FAILED":
		return domain.LoadStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: snapshot status %q", domain.ErrUnknownStatus, s)
	}
}

// PopulateSnapshot starts a new global snapshot.
func (c *Client) PopulateSnapshot(ctx context.Context, cfg domain.RemoteConfiguration) error {
	return c.do(ctx, cfg, http.MethodPost, "holdings", nil, nil, nil)
}

// GetSnapshotStatus returns the status of the global snapshot. A customer
// that never populated one reports LoadStatusNone.
func (c *Client) GetSnapshotStatus(ctx context.Context, cfg domain.RemoteConfiguration) (domain.SnapshotStatus, error) {
	var resp snapshotStatus
	if err := c.do(ctx, cfg, http.MethodGet, "holdings/status", nil, nil, &resp); err != nil {
		if IsNotFound(err) {
			return domain.SnapshotStatus{Status: domain.LoadStatusNone}, nil
		}
		return domain.SnapshotStatus{}, err
	}

	status, err := mapSnapshotStatus(resp.Status)
	if err != nil {
		return domain.SnapshotStatus{}, err
	}
	return domain.SnapshotStatus{
		Status:           status,
		CreatedAt:        resp.Created.Time,
		TotalRecordCount: resp.TotalCount,
	}, nil
}

// LoadPage fetches one 1-based page of the global snapshot.
func (c *Client) LoadPage(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	page, pageSize int,
) ([]domain.HoldingRecord, error) {
	var resp holdingsPage
	if err := c.do(ctx, cfg, http.MethodGet, "holdings", pageQuery(page, pageSize), nil, &resp); err != nil {
		return nil, err
	}
	return toRecords(resp.Holdings), nil
}
