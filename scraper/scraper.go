package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	appconfig "nseflow/config"
	"nseflow/logger"
	"nseflow/models"
	"nseflow/processor"
	"nseflow/reader/nse"
	"nseflow/writer"
)

// Scraper drives one fetch-normalize-merge-persist cycle. Cycles are
// sequential; there is never more than one in flight.
type Scraper struct {
	config     *appconfig.Config
	session    *nse.Session
	normalizer *processor.Normalizer
	store      *writer.Store
	archiver   *writer.Archiver
	log        *logger.Log
}

// NewScraper wires the pipeline components together. The archiver is
// optional; a nil archiver disables parquet snapshots.
func NewScraper(cfg *appconfig.Config, store *writer.Store, archiver *writer.Archiver) *Scraper {
	return &Scraper{
		config:     cfg,
		session:    nse.NewSession(cfg.Source.NSE),
		normalizer: processor.NewNormalizer(),
		store:      store,
		archiver:   archiver,
		log:        logger.GetLogger(),
	}
}

// RunCycle executes one complete collection cycle. A cycle that adds no new
// records leaves the dataset file untouched. The error reflects whether the
// cycle reached a consistent end state; persistence problems with the
// existing file are downgraded to a fresh start, not failures.
func (s *Scraper) RunCycle(ctx context.Context) error {
	cycleID := uuid.New().String()
	log := s.log.WithComponent("scraper").WithFields(logger.Fields{"cycle_id": cycleID})

	start := time.Now()
	log.Info("starting collection cycle")

	err := s.runCycle(ctx, log)
	logger.IncrementCycle(err == nil)
	logger.LogPerformanceEntry(log, "scraper", "cycle", time.Since(start), nil)

	if err != nil {
		log.WithError(err).Error("collection cycle failed")
		return err
	}
	log.Info("collection cycle completed")
	return nil
}

func (s *Scraper) runCycle(ctx context.Context, log *logger.Entry) error {
	existing, err := s.store.Load()
	if err != nil {
		var perr *writer.PersistenceError
		if !errors.As(err, &perr) {
			return err
		}
		// An unreadable dataset file is not fatal: the cycle proceeds as a
		// cold start and the next save rotates the bad file aside as a backup.
		log.WithError(err).Warn("existing dataset unreadable, starting fresh")
		existing = nil
	}

	now := time.Now()
	checkpoint := Checkpoint(existing, s.store, s.config.Dataset.DateColumn, s.config.Source.NSE.Lookback, now)
	from, to := Window(checkpoint, s.config.Source.NSE.Lookback, now)
	log = log.WithFields(logger.Fields{
		"from_date": from.Format(nse.QueryDateLayout),
		"to_date":   to.Format(nse.QueryDateLayout),
	})

	if err := s.session.Warmup(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The API sometimes answers without the warmup cookies; try anyway.
		log.WithError(err).Warn("cookie warmup failed, attempting fetch regardless")
	}

	if err := s.session.PacingDelay(ctx); err != nil {
		return err
	}

	raw, err := s.session.FetchWindow(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch window: %w", err)
	}
	if len(raw) == 0 {
		log.Info("no disclosures in window, nothing to persist")
		return nil
	}

	incoming := s.normalizer.Normalize(raw)
	result := processor.Merge(existing, incoming, s.config.Dataset.DateColumn)

	if len(result.NewRecords) == 0 {
		log.WithFields(logger.Fields{"fetched": incoming.Len()}).Info("no new records, dataset unchanged")
		return nil
	}

	if err := s.store.Save(result.Merged); err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}
	logger.IncrementRecordsAdded(len(result.NewRecords))

	s.archive(ctx, result.NewRecords, result.Merged.Columns, to, log)

	log.WithFields(logger.Fields{
		"new_records":      len(result.NewRecords),
		"total_records":    result.Merged.Len(),
		"unique_companies": result.Merged.UniqueCount(models.ColCompany),
		"unique_symbols":   result.Merged.UniqueCount(models.ColSymbol),
	}).Info("dataset updated")

	return nil
}

// archive uploads the cycle's new records as a parquet snapshot. Failures
// are logged only; the CSV write already succeeded and stays authoritative.
func (s *Scraper) archive(ctx context.Context, rows []models.Row, columns []string, asOf time.Time, log *logger.Entry) {
	if s.archiver == nil {
		return
	}
	snapshot := models.NewDataset(columns...)
	snapshot.Append(rows...)
	if err := s.archiver.ArchiveSnapshot(ctx, snapshot, asOf); err != nil {
		log.WithError(err).Warn("snapshot archive failed")
	}
}

// RunContinuous runs cycles until the context is cancelled, waiting the full
// interval between attempts whether the previous cycle succeeded or not.
func (s *Scraper) RunContinuous(ctx context.Context, interval time.Duration) error {
	log := s.log.WithComponent("scraper").WithFields(logger.Fields{"interval": interval})
	log.Info("starting continuous collection")

	for {
		if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("cycle failed, waiting for next attempt")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("continuous collection stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
