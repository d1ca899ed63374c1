// Package pipeline sequences fetch, extraction, normalization and
// persistence for every discovered unit of work.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weibo-harvest/internal/extract"
	"weibo-harvest/internal/harvest"
	"weibo-harvest/internal/normalize"
	"weibo-harvest/internal/telemetry"
)

// State names one step of a unit's lifecycle.
type State string

// Unit lifecycle states. Errored absorbs from any step and
// short-circuits the remaining steps for that unit only.
const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateExtracting  State = "extracting"
	StateNormalizing State = "normalizing"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateErrored     State = "errored"
)

// Config controls Coordinator behavior.
type Config struct {
	MaxInFlight int
}

// Summary aggregates one run's outcome.
type Summary struct {
	Units            int
	UnitsFailed      int
	UnitsEmpty       int
	RecordsExtracted int
	RecordsDropped   int
	RecordsPersisted int
	RecordsFailed    int
}

// ImageFetcher mirrors records' media to local storage. A nil fetcher
// disables mirroring.
type ImageFetcher interface {
	Fetch(ctx context.Context, urls []string) []string
}

// Coordinator drives units through the stage chain under a bounded
// in-flight fetch count. Failures are reported and dead-lettered, never
// escalated to abort the run.
type Coordinator struct {
	fetcher     harvest.Fetcher
	store       harvest.RecordStore
	stage       *normalize.Stage
	clock       harvest.Clock
	throttle    *Throttle
	deadLetters *DeadLetterSink
	images      ImageFetcher
	listing     *extract.Listing
	detail      *extract.Detail
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Coordinator.
func New(
	fetcher harvest.Fetcher,
	store harvest.RecordStore,
	stage *normalize.Stage,
	clock harvest.Clock,
	throttle *Throttle,
	deadLetters *DeadLetterSink,
	images ImageFetcher,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	return &Coordinator{
		fetcher:     fetcher,
		store:       store,
		stage:       stage,
		clock:       clock,
		throttle:    throttle,
		deadLetters: deadLetters,
		images:      images,
		listing:     extract.NewListing(logger),
		detail:      extract.NewDetail(logger),
		cfg:         cfg,
		logger:      logger,
	}
}

// Run processes every request and blocks until all units settle.
func (c *Coordinator) Run(ctx context.Context, requests []harvest.FetchRequest) Summary {
	sem := make(chan struct{}, c.cfg.MaxInFlight)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary Summary
	)

	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(req harvest.FetchRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			res := c.process(ctx, req)

			mu.Lock()
			summary.Units++
			if res.failed {
				summary.UnitsFailed++
			}
			if res.empty {
				summary.UnitsEmpty++
			}
			summary.RecordsExtracted += res.extracted
			summary.RecordsDropped += res.dropped
			summary.RecordsPersisted += res.persisted
			summary.RecordsFailed += res.storeFailed
			mu.Unlock()
		}(req)
	}
	wg.Wait()

	c.report(summary)
	return summary
}

type unitResult struct {
	failed      bool
	empty       bool
	extracted   int
	dropped     int
	persisted   int
	storeFailed int
}

func (c *Coordinator) process(ctx context.Context, req harvest.FetchRequest) unitResult {
	unit := struct {
		ID    string
		State State
	}{ID: uuid.NewString(), State: StatePending}
	var res unitResult

	unit.State = StateFetching
	if err := c.throttle.Wait(ctx, req.URL); err != nil {
		c.fail(unit.ID, req, unit.State, err)
		res.failed = true
		return res
	}

	telemetry.FetchesTotal.WithLabelValues(string(req.Mode)).Inc()
	fetched, err := c.fetcher.Fetch(ctx, req)
	c.throttle.Observe(req.URL, fetched.Duration, err != nil)
	if err != nil {
		c.fail(unit.ID, req, unit.State, err)
		res.failed = true
		return res
	}
	telemetry.ObserveFetchDuration(string(req.Mode), fetched.Duration)

	unit.State = StateExtracting
	records, err := c.extractRecords(req, fetched)
	if err != nil {
		if errors.Is(err, harvest.ErrEmptyResult) {
			c.logger.Info("no cards in upstream result",
				zap.String("unit_id", unit.ID),
				zap.String("keyword", req.Keyword),
				zap.String("url", req.URL),
			)
			res.empty = true
			return res
		}
		c.fail(unit.ID, req, unit.State, err)
		res.failed = true
		return res
	}
	res.extracted = len(records)
	telemetry.RecordsExtracted.Add(float64(len(records)))

	for i := range records {
		record := &records[i]

		unit.State = StateNormalizing
		c.stage.Apply(record)
		record.FetchedAt = c.clock.Now()
		if !record.WellFormed() {
			res.dropped++
			telemetry.RecordsDropped.Inc()
			continue
		}
		if c.images != nil && len(record.ImageURLs) > 0 {
			record.Images = c.images.Fetch(ctx, record.ImageURLs)
		}

		unit.State = StatePersisting
		if err := c.store.Save(ctx, *record); err != nil {
			c.fail(unit.ID, req, unit.State, err)
			res.storeFailed++
			continue
		}
		res.persisted++
		telemetry.RecordsPersisted.Inc()
	}

	unit.State = StateDone
	c.logger.Debug("unit done",
		zap.String("unit_id", unit.ID),
		zap.String("url", req.URL),
		zap.Int("extracted", res.extracted),
		zap.Int("persisted", res.persisted),
	)
	return res
}

func (c *Coordinator) extractRecords(req harvest.FetchRequest, fetched harvest.FetchResult) ([]harvest.Record, error) {
	switch req.Mode {
	case harvest.ModeDetailPage:
		record, err := c.detail.Extract(fetched.Body, req.URL, req.Keyword)
		if err != nil {
			return nil, err
		}
		return []harvest.Record{record}, nil
	default:
		return c.listing.Extract(fetched.Body, req.Keyword)
	}
}

func (c *Coordinator) fail(unitID string, req harvest.FetchRequest, state State, err error) {
	kind := harvest.ErrorKind(err)
	c.logger.Error("unit failed",
		zap.String("unit_id", unitID),
		zap.String("url", req.URL),
		zap.String("keyword", req.Keyword),
		zap.String("stage", string(state)),
		zap.String("kind", kind),
		zap.Error(err),
	)
	telemetry.FetchErrorsTotal.WithLabelValues(kind).Inc()
	if c.deadLetters == nil {
		return
	}
	entry := DeadLetter{
		UnitID:  unitID,
		URL:     req.URL,
		Keyword: req.Keyword,
		Stage:   string(state),
		Kind:    kind,
		Error:   err.Error(),
		At:      c.clock.Now(),
	}
	if werr := c.deadLetters.Write(entry); werr != nil {
		c.logger.Error("dead-letter write failed", zap.Error(werr))
		return
	}
	telemetry.DeadLettersTotal.Inc()
}

// report distinguishes an empty upstream from a run where every fetch
// failed, so "zero captured" is diagnosable from the log alone.
func (c *Coordinator) report(summary Summary) {
	fields := []zap.Field{
		zap.Int("units", summary.Units),
		zap.Int("units_failed", summary.UnitsFailed),
		zap.Int("units_empty", summary.UnitsEmpty),
		zap.Int("records_extracted", summary.RecordsExtracted),
		zap.Int("records_dropped", summary.RecordsDropped),
		zap.Int("records_persisted", summary.RecordsPersisted),
		zap.Int("records_failed", summary.RecordsFailed),
	}
	switch {
	case summary.RecordsPersisted > 0:
		c.logger.Info("harvest run complete", fields...)
	case summary.Units > 0 && summary.UnitsFailed == summary.Units:
		c.logger.Warn("zero records captured: every fetch failed", fields...)
	case summary.UnitsEmpty > 0 && summary.RecordsExtracted == 0:
		c.logger.Warn("zero records captured: upstream returned empty results", fields...)
	default:
		c.logger.Warn("zero records captured", fields...)
	}
}
