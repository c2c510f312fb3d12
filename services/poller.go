package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"garage-scraper/config"
	"garage-scraper/metrics"
	"garage-scraper/models"
	"garage-scraper/scraper/garages"
	"garage-scraper/storage"
	"garage-scraper/utils"
)

// Policy decides how long the poller sleeps between cycles.
type Policy struct {
	DayStart      int
	DayEnd        int
	DayInterval   time.Duration
	NightInterval time.Duration
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		DayStart:      cfg.DayStartHour,
		DayEnd:        cfg.DayEndHour,
		DayInterval:   time.Duration(cfg.DayIntervalSec) * time.Second,
		NightInterval: time.Duration(cfg.NightIntervalSec) * time.Second,
	}
}

// Interval returns DayInterval for hours in [DayStart, DayEnd) and
// NightInterval otherwise.
func (p Policy) Interval(hour int) time.Duration {
	if hour >= p.DayStart && hour < p.DayEnd {
		return p.DayInterval
	}
	return p.NightInterval
}

// Poller drives fetch, extract, normalize and append on the adaptive schedule.
// Everything runs on the caller's goroutine; sleeping blocks it.
type Poller struct {
	fetcher    garages.Fetcher
	normalizer *Normalizer
	store      storage.SampleAppender
	mirrors    []storage.SampleAppender
	policy     Policy
	loc        *time.Location
	logger     *utils.Logger
	metrics    *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type PollerOption func(*Poller)

// WithMirror adds a secondary sink. Mirror failures are logged, never fatal.
func WithMirror(m storage.SampleAppender) PollerOption {
	return func(p *Poller) { p.mirrors = append(p.mirrors, m) }
}

func WithMetrics(m *metrics.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) { p.sleep = sleep }
}

func NewPoller(
	fetcher garages.Fetcher,
	normalizer *Normalizer,
	store storage.SampleAppender,
	policy Policy,
	loc *time.Location,
	logger *utils.Logger,
	opts ...PollerOption,
) *Poller {
	p := &Poller{
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		policy:     policy,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOnce performs a single cycle and reports its failure, if any.
func (p *Poller) RunOnce(ctx context.Context) error {
	return p.cycle(ctx)
}

// Run cycles forever, re-deciding the sleep interval after every cycle from
// the local hour. Cycle failures are logged and never stop the loop. Run only
// returns once ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	for {
		_ = p.cycle(ctx)

		interval := p.policy.Interval(p.now().In(p.loc).Hour())
		if p.metrics != nil {
			p.metrics.NextInterval.Set(interval.Seconds())
		}
		p.logger.Debug("[poller] Sleeping %v", interval)

		if err := p.sleep(ctx, interval); err != nil {
			p.logger.Info("[poller] Stopping: %v", err)
			return err
		}
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	start := p.now()
	capturedAt := start.In(p.loc)
	cycleID := uuid.NewString()[:8]

	body, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.logger.Error("[poller] Cycle %s: unable to retrieve garage status: %v", cycleID, err)
		p.observe(metrics.ResultFetchFailed, start)
		return fmt.Errorf("fetch: %w", err)
	}

	tables, err := garages.Extract(strings.NewReader(body))
	if err != nil {
		p.logger.Error("[poller] Cycle %s: %v", cycleID, err)
		p.observe(metrics.ResultParseFailed, start)
		return err
	}
	if len(tables) == 0 {
		p.logger.Warn("[poller] Cycle %s: page had no parking tables", cycleID)
	}

	weekday := capturedAt.Weekday().String()
	var (
		errs    []error
		written int
	)
	claimed := make(map[models.StreamID]int, len(tables))
	for _, table := range tables {
		id := models.StreamID{Weekday: weekday, Garage: garages.GarageID(table.Index)}
		if first, ok := claimed[id]; ok {
			p.logger.Warn("[poller] Cycle %s: tables %d and %d both map to %s; their samples share one stream",
				cycleID, first, table.Index, id)
		} else {
			claimed[id] = table.Index
		}
		samples, dropped := p.normalizer.NormalizeTable(table, capturedAt)
		if p.metrics != nil && dropped > 0 {
			p.metrics.SamplesSkipped.Add(float64(dropped))
		}
		if len(samples) == 0 {
			continue
		}

		if err := p.store.Append(id, samples); err != nil {
			p.logger.Error("[poller] Cycle %s: %s: %v", cycleID, id, err)
			if p.metrics != nil {
				p.metrics.StoreFailures.Inc()
			}
			errs = append(errs, err)
			continue
		}
		written += len(samples)
		if p.metrics != nil {
			p.metrics.AddWritten(id.Garage, len(samples))
		}

		for _, m := range p.mirrors {
			if err := m.Append(id, samples); err != nil {
				p.logger.Warn("[poller] Cycle %s: mirror %s: %v", cycleID, id, err)
			}
		}
	}

	if len(errs) > 0 {
		p.observe(metrics.ResultStoreFailed, start)
		return errors.Join(errs...)
	}

	p.logger.Info("[poller] Cycle %s: saved %d samples from %d garages (%s %02d:%02d)",
		cycleID, written, len(tables), weekday, capturedAt.Hour(), capturedAt.Minute())
	p.observe(metrics.ResultOK, start)
	return nil
}

func (p *Poller) observe(result string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveCycle(result, p.now().Sub(start))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
