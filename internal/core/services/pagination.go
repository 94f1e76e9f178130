package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// loadWithPagination loads pages 1..totalPages strictly in order, each page
// wrapped in retryOnFailure. The first page that still fails aborts the
// remaining pages; pages already loaded are kept. It returns how many pages
// were loaded.
func loadWithPagination(
	ctx context.Context,
	totalPages int,
	attempts int,
	delay time.Duration,
	loadPage func(ctx context.Context, page int) error,
) (int, error) {
	for page := 1; page <= totalPages; page++ {
		_, err := retryOnFailure(ctx, attempts, delay, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, loadPage(ctx, page)
		})
		if err != nil {
			return page - 1, fmt.Errorf("load page %d of %d: %w", page, totalPages, err)
		}
		logger.Debug("Loaded page %d of %d", page, totalPages)
	}
	return totalPages, nil
}
