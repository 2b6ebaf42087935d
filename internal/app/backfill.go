package app

import (
	"context"
	"errors"
	"time"

	"usage-alerts/internal/source"
	"usage-alerts/internal/storage"
)

// Backfill pulls historical usage records from the platform API into the
// archive, one day at a time.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start := opts.From.UTC().Truncate(24 * time.Hour)
	end := opts.To.UTC()
	if !start.Before(end) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	var archive *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn not configured; cannot backfill")
		}
		if closeStore != nil {
			defer closeStore()
		}
		archive = store
	}

	src := a.newAPISource()

	fetched := 0
	failedDays := 0
	for day := start; day.Before(end); day = day.Add(24 * time.Hour) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		windowEnd := day.Add(24 * time.Hour)
		if windowEnd.After(end) {
			windowEnd = end
		}

		records, fetchErr := src.FetchRange(ctx, source.RangeFilter{
			CustomerID: opts.CustomerID,
			Start:      day,
			End:        windowEnd,
		})
		if fetchErr != nil {
			failedDays++
			a.Logger.Error().Err(fetchErr).Time("day", day).Msg("backfill fetch failed")
			continue
		}

		fetched += len(records)
		if archive == nil {
			continue
		}
		if insertErr := archive.InsertUsageRecords(ctx, records); insertErr != nil {
			failedDays++
			a.Logger.Error().Err(insertErr).Time("day", day).Msg("backfill insert failed")
		}
	}

	a.Logger.Info().Int("records", fetched).Int("failed_days", failedDays).Msg("backfill complete")
	if failedDays > 0 {
		return errors.New("some days failed to backfill; check the logs")
	}
	return nil
}
