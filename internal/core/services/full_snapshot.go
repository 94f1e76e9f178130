package services

import (
	"context"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// FullSnapshotStrategy reloads the single global remote snapshot page by
// page on every run. Correct but not incremental.
type FullSnapshotStrategy struct {
	gateway driven.LoadGateway
}

// NewFullSnapshotStrategy creates a full-snapshot strategy.
func NewFullSnapshotStrategy(gateway driven.LoadGateway) *FullSnapshotStrategy {
	return &FullSnapshotStrategy{gateway: gateway}
}

// Kind returns domain.StrategyFullSnapshot.
func (s *FullSnapshotStrategy) Kind() domain.StrategyKind {
	return domain.StrategyFullSnapshot
}

func (s *FullSnapshotStrategy) pageSize(cfg domain.SyncConfig) int {
	return cfg.SnapshotPageSize
}

func (s *FullSnapshotStrategy) latestStatus(
	ctx context.Context,
	remote domain.RemoteConfiguration,
) (domain.SnapshotStatus, error) {
	return s.gateway.GetSnapshotStatus(ctx, remote)
}

// statusByID ignores the id: there is only one global snapshot.
func (s *FullSnapshotStrategy) statusByID(
	ctx context.Context,
	remote domain.RemoteConfiguration,
	_ string,
) (domain.SnapshotStatus, error) {
	return s.gateway.GetSnapshotStatus(ctx, remote)
}

func (s *FullSnapshotStrategy) populate(ctx context.Context, remote domain.RemoteConfiguration) (string, error) {
	return "", s.gateway.PopulateSnapshot(ctx, remote)
}

func (s *FullSnapshotStrategy) loadHoldings(
	ctx context.Context,
	req domain.LoadRequest,
	cfg domain.SyncConfig,
	send sendFunc,
) (loadResult, error) {
	result := loadResult{TotalPages: req.TotalPages}

	if err := send(ctx, domain.LoadStarted{
		RunID:            req.RunID,
		TenantID:         req.TenantID,
		CredentialsID:    req.CredentialsID,
		Mode:             domain.LoadModeFull,
		TotalRecordCount: req.TotalRecordCount,
		TotalPages:       req.TotalPages,
	}); err != nil {
		return result, err
	}

	loaded, err := loadWithPagination(ctx, req.TotalPages, cfg.PageLoadAttempts, cfg.PageRetryDelay,
		func(ctx context.Context, page int) error {
			records, err := s.gateway.LoadPage(ctx, req.Configuration, page, cfg.SnapshotPageSize)
			if err != nil {
				return err
			}
			return send(ctx, domain.RecordPage{
				RunID:         req.RunID,
				TenantID:      req.TenantID,
				CredentialsID: req.CredentialsID,
				Page:          page,
				Records:       records,
			})
		})
	result.PagesLoaded = loaded
	return result, err
}
