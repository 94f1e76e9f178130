package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

func TestLoadWithPagination_SequentialOrder(t *testing.T) {
	var pages []int
	loaded, err := loadWithPagination(context.Background(), 3, 2, time.Millisecond,
		func(_ context.Context, page int) error {
			pages = append(pages, page)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestLoadWithPagination_FailingPageStopsRest(t *testing.T) {
	var pages []int
	loaded, err := loadWithPagination(context.Background(), 3, 2, time.Millisecond,
		func(_ context.Context, page int) error {
			pages = append(pages, page)
			if page == 2 {
				return errTransient
			}
			return nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "load page 2 of 3")
	assert.Equal(t, 1, loaded)
	assert.Equal(t, []int{1, 2, 2}, pages)
}

func TestLoadWithPagination_RetriesTransientFailure(t *testing.T) {
	failures := map[int]int{2: 1}
	var pages []int
	loaded, err := loadWithPagination(context.Background(), 3, 2, time.Millisecond,
		func(_ context.Context, page int) error {
			pages = append(pages, page)
			if failures[page] > 0 {
				failures[page]--
				return errTransient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
	assert.Equal(t, []int{1, 2, 2, 3}, pages)
}

func TestLoadWithPagination_NoPages(t *testing.T) {
	calls := 0
	loaded, err := loadWithPagination(context.Background(), 0, 2, time.Millisecond,
		func(context.Context, int) error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Zero(t, loaded)
	assert.Zero(t, calls)
}
