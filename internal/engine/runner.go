package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/observability"
)

// GridSource supplies reference threshold grids per country and return
// period. Grids are loaded once per country per pass, outside the per-cycle
// hot loop, and treated as immutable afterwards.
type GridSource interface {
	Load(countryCode string, returnPeriodYears float64) (*domain.Grid, error)
}

// CycleSource supplies the de-duplicated, time-sorted forecast cycles for a
// country.
type CycleSource interface {
	Cycles(countryCode string) ([]domain.ForecastCycle, error)
}

// ResultSink receives a completed country analysis: the report writer and
// the Kafka publishers implement this.
type ResultSink interface {
	Consume(ctx context.Context, result *CountryResult) error
}

// Runner analyzes every configured country once per interval.
type Runner struct {
	countries  *config.Countries
	grids      GridSource
	forecasts  CycleSource
	sinks      []ResultSink
	aggregator *BasinAggregator
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	interval   time.Duration
	ready      atomic.Bool
}

// NewRunner wires the analysis loop. Sinks are invoked in order after each
// country completes; a failing sink is logged and does not abort the pass.
func NewRunner(countries *config.Countries, grids GridSource, forecasts CycleSource, sinks []ResultSink, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, interval time.Duration) *Runner {
	return &Runner{
		countries:  countries,
		grids:      grids,
		forecasts:  forecasts,
		sinks:      sinks,
		aggregator: NewBasinAggregator(NewStationAnalyzer(logger, metrics), logger),
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		interval:   interval,
	}
}

// CheckReadiness returns nil once a full analysis pass has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no analysis pass has completed yet")
	}
	return nil
}

// Run executes analysis passes until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		r.RunOnce(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		case <-r.clock.After(r.interval):
		}
	}
}

// RunOnce analyzes every configured country. Per-country failures are
// surfaced at Error level and do not abort the pass; cancellation is honored
// between countries so partial output stays valid.
func (r *Runner) RunOnce(ctx context.Context) {
	start := r.clock.Now()
	r.metrics.RunRunning.Set(1)
	defer r.metrics.RunRunning.Set(0)

	for _, code := range r.countries.Codes() {
		if ctx.Err() != nil {
			return
		}
		if err := r.runCountry(ctx, code); err != nil {
			r.logger.Error("country analysis failed", "country_code", code, "error", err)
		}
	}

	r.metrics.RunDuration.Observe(r.clock.Since(start).Seconds())
	r.metrics.LastRunUnixtime.Set(float64(r.clock.Now().Unix()))
	r.ready.Store(true)
	r.logger.Info("analysis pass complete", "duration", r.clock.Since(start).String())
}

func (r *Runner) runCountry(ctx context.Context, code string) error {
	country, err := r.countries.Get(code)
	if err != nil {
		r.metrics.CountryFailures.WithLabelValues("configuration").Inc()
		return err
	}

	grids, err := r.loadGrids(code)
	if err != nil {
		r.metrics.CountryFailures.WithLabelValues("threshold").Inc()
		return err
	}

	cycles, err := r.forecasts.Cycles(code)
	if err != nil {
		r.metrics.CountryFailures.WithLabelValues("forecast").Inc()
		return err
	}
	if len(cycles) == 0 {
		r.logger.Warn("no forecast cycles available", "country_code", code)
		return nil
	}

	result, err := r.aggregator.Aggregate(country, grids, cycles)
	if err != nil {
		r.metrics.CountryFailures.WithLabelValues("threshold").Inc()
		return err
	}

	for _, sink := range r.sinks {
		if err := sink.Consume(ctx, result); err != nil {
			r.logger.Error("result sink failed", "country_code", code, "error", err)
		}
	}

	high, moderate, low := countAlerts(result)
	r.logger.Info("country analysis complete",
		"country_code", code,
		"stations", len(result.Stations),
		"cycles", len(cycles),
		"high", high,
		"moderate", moderate,
		"low", low,
	)
	if high > 0 {
		r.logger.Warn("HIGH flood trigger alerts detected", "country_code", code, "high", high)
	}
	return nil
}

func (r *Runner) loadGrids(code string) (domain.ReferenceGrids, error) {
	low, err := r.grids.Load(code, 2.0)
	if err != nil {
		return domain.ReferenceGrids{}, err
	}
	high, err := r.grids.Load(code, 5.0)
	if err != nil {
		return domain.ReferenceGrids{}, err
	}
	return domain.ReferenceGrids{TwoYear: low, FiveYear: high}, nil
}

func countAlerts(result *CountryResult) (high, moderate, low int) {
	result.Records(func(rec domain.TriggerRecord) {
		switch rec.AlertStatus {
		case domain.AlertHigh:
			high++
		case domain.AlertModerate:
			moderate++
		default:
			low++
		}
	})
	return high, moderate, low
}
