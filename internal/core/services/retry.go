package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// wait parks the goroutine for d, returning early if ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isPermanent reports whether retrying err cannot help.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrUnknownStatus) ||
		errors.Is(err, domain.ErrUnexpectedStatus) ||
		errors.Is(err, domain.ErrMailboxClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// doUntilResultMatches runs action up to attempts times, waiting delay
// between attempts, until matches accepts the outcome. The accepted outcome
// is returned as is. When the budget runs out the last error is wrapped
// together with domain.ErrRetriesExhausted.
func doUntilResultMatches[T any](
	ctx context.Context,
	attempts int,
	delay time.Duration,
	action func(context.Context) (T, error),
	matches func(T, error) bool,
) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = action(ctx)
		if matches(result, err) {
			return result, err
		}
		if attempt >= attempts {
			break
		}
		if err != nil {
			logger.Debug("Attempt %d/%d failed: %v", attempt, attempts, err)
		}
		if werr := wait(ctx, delay); werr != nil {
			return result, werr
		}
	}

	if err != nil {
		return result, fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempts, err)
	}
	return result, fmt.Errorf("%w after %d attempts", domain.ErrRetriesExhausted, attempts)
}

// retryOnFailure repeats action until it succeeds, fails permanently or
// the attempt budget is spent.
func retryOnFailure[T any](
	ctx context.Context,
	attempts int,
	delay time.Duration,
	action func(context.Context) (T, error),
) (T, error) {
	return doUntilResultMatches(ctx, attempts, delay, action, func(_ T, err error) bool {
		return err == nil || isPermanent(err)
	})
}

// waitForCompleteStatus polls fetch until the job is COMPLETED.
//
// IN_PROGRESS schedules another check after delay while attempts remain and
// fails with domain.ErrStatusTimeout once they are spent. Any other status
// fails immediately with domain.ErrUnexpectedStatus. Transient fetch errors
// use up an attempt.
func waitForCompleteStatus(
	ctx context.Context,
	attempts int,
	delay time.Duration,
	fetch func(context.Context) (domain.SnapshotStatus, error),
) (domain.SnapshotStatus, error) {
	status, err := doUntilResultMatches(ctx, attempts, delay, fetch, func(s domain.SnapshotStatus, err error) bool {
		if err != nil {
			return isPermanent(err)
		}
		return s.Status != domain.LoadStatusInProgress
	})
	if errors.Is(err, domain.ErrRetriesExhausted) {
		return status, fmt.Errorf("%w: %w", domain.ErrStatusTimeout, err)
	}
	if err != nil {
		return status, err
	}
	if status.Status != domain.LoadStatusCompleted {
		return status, fmt.Errorf("%w: %s", domain.ErrUnexpectedStatus, status.Status)
	}
	return status, nil
}

// waitForDeltaReport polls a delta report until it leaves IN_PROGRESS,
// with the same outcome rules as waitForCompleteStatus.
func waitForDeltaReport(
	ctx context.Context,
	attempts int,
	delay time.Duration,
	fetch func(context.Context) (domain.DeltaReportStatus, error),
) (domain.DeltaReportStatus, error) {
	report, err := doUntilResultMatches(ctx, attempts, delay, fetch, func(r domain.DeltaReportStatus, err error) bool {
		if err != nil {
			return isPermanent(err)
		}
		return r.Status != domain.ReportStatusInProgress
	})
	if errors.Is(err, domain.ErrRetriesExhausted) {
		return report, fmt.Errorf("%w: %w", domain.ErrStatusTimeout, err)
	}
	if err != nil {
		return report, err
	}
	if report.Status != domain.ReportStatusCompleted {
		return report, fmt.Errorf("%w: delta report %s", domain.ErrUnexpectedStatus, report.Status)
	}
	return report, nil
}
