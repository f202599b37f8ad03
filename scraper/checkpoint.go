package scraper

import (
	"time"

	appconfig "nseflow/config"
	"nseflow/models"
	"nseflow/writer"
)

// Checkpoint decides where the next fetch window starts. The best signal is
// the latest disclosure date already on disk; when the dataset exists but
// carries no usable dates the file's modification time stands in, and a cold
// start falls back to the configured default lookback.
func Checkpoint(existing *models.Dataset, store *writer.Store, dateCol string, lookback appconfig.LookbackConfig, now time.Time) time.Time {
	if existing != nil {
		if max, ok := existing.MaxTime(dateCol); ok {
			return max
		}
		if mtime, ok := store.ModTime(); ok {
			return mtime
		}
	}
	return now.AddDate(0, 0, -lookback.DefaultDays)
}

// Window clamps the checkpoint to the remote API's maximum supported range
// and returns the fetch window ending at now. A checkpoint in the future
// collapses the window to a single day.
func Window(checkpoint time.Time, lookback appconfig.LookbackConfig, now time.Time) (from, to time.Time) {
	from = checkpoint
	if oldest := now.AddDate(0, 0, -lookback.MaxDays); from.Before(oldest) {
		from = oldest
	}
	if from.After(now) {
		from = now
	}
	return from, now
}
