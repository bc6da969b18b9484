package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
)

// StationResult pairs one analyzed station with its monthly record series.
type StationResult struct {
	BasinCode string
	Role      string
	Station   config.Station
	Months    []MonthlySeries
}

// ActivationDecision is the country-level reduction of the independent
// per-station classifications for one forecast cycle and lead time.
type ActivationDecision struct {
	CountryCode  string            `json:"country_code"`
	ForecastDate string            `json:"forecast_date"`
	LeadTimeDays int               `json:"lead_time_days"`
	AlertStatus  domain.AlertLevel `json:"alert_status"`
	// Stations is how many stations contributed a record to this cycle's
	// reduction; stations without data are excluded, not counted as LOW.
	Stations int `json:"stations"`
}

// CountryResult is one country's complete analysis output.
type CountryResult struct {
	CountryCode string
	CountryName string
	Stations    []StationResult
	Activations []ActivationDecision
}

// Records walks every trigger record in the result in station, month, date
// order.
func (r *CountryResult) Records(fn func(domain.TriggerRecord)) {
	for _, sr := range r.Stations {
		for _, m := range sr.Months {
			for _, rec := range m.Records {
				fn(rec)
			}
		}
	}
}

// BasinAggregator runs the station analyzer over every monitoring location
// of a country and applies the configured activation rule. Single-station
// countries degenerate to one analyzer invocation with no aggregation logic.
type BasinAggregator struct {
	analyzer *StationAnalyzer
	logger   *slog.Logger
}

// NewBasinAggregator creates a BasinAggregator around a StationAnalyzer.
func NewBasinAggregator(analyzer *StationAnalyzer, logger *slog.Logger) *BasinAggregator {
	return &BasinAggregator{analyzer: analyzer, logger: logger}
}

// Aggregate analyzes every station of the country against the same reference
// grids, forecast cycles, and trigger policy, then derives the per-cycle
// activation decisions.
func (g *BasinAggregator) Aggregate(country config.Country, grids domain.ReferenceGrids, cycles []domain.ForecastCycle) (*CountryResult, error) {
	result := &CountryResult{CountryCode: country.Code, CountryName: country.Name}

	if !country.MultiBasin() {
		months, err := g.analyzeOne(StationContext{
			Country:     country.Name,
			CountryCode: country.Code,
			Station:     *country.Station,
		}, grids, cycles, country.Trigger)
		if err != nil {
			return nil, err
		}
		result.Stations = append(result.Stations, StationResult{Station: *country.Station, Months: months})
		result.Activations = reduceActivations(country, result.Stations)
		return result, nil
	}

	for _, basinCode := range country.BasinCodes() {
		basin := country.Basins[basinCode]
		g.logger.Info("analyzing basin",
			"country_code", country.Code,
			"basin_code", basinCode,
			"provinces", basin.Provinces,
		)

		stations := []struct {
			role    string
			station config.Station
		}{
			{"primary", basin.Station},
		}
		if basin.SecondaryStation != nil {
			stations = append(stations, struct {
				role    string
				station config.Station
			}{"secondary", *basin.SecondaryStation})
		}

		for _, s := range stations {
			months, err := g.analyzeOne(StationContext{
				Country:     country.Name,
				CountryCode: country.Code,
				BasinName:   basin.Name,
				BasinCode:   basinCode,
				Role:        s.role,
				Station:     s.station,
			}, grids, cycles, country.Trigger)
			if err != nil {
				return nil, fmt.Errorf("basin %s: %w", basinCode, err)
			}
			result.Stations = append(result.Stations, StationResult{
				BasinCode: basinCode,
				Role:      s.role,
				Station:   s.station,
				Months:    months,
			})
		}
	}

	result.Activations = reduceActivations(country, result.Stations)
	return result, nil
}

func (g *BasinAggregator) analyzeOne(sc StationContext, grids domain.ReferenceGrids, cycles []domain.ForecastCycle, policy config.TriggerPolicy) ([]MonthlySeries, error) {
	return g.analyzer.Analyze(sc, grids, cycles, policy)
}

// reduceActivations applies the activation rule across per-station
// classifications for each forecast date. This is a reduction of the
// independent station alert levels, never a recomputation from pooled
// ensemble data.
func reduceActivations(country config.Country, stations []StationResult) []ActivationDecision {
	votes := make(map[string][]domain.AlertLevel)
	for _, sr := range stations {
		for _, m := range sr.Months {
			for _, rec := range m.Records {
				votes[rec.ForecastDate] = append(votes[rec.ForecastDate], rec.AlertStatus)
			}
		}
	}

	dates := make([]string, 0, len(votes))
	for d := range votes {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	decisions := make([]ActivationDecision, 0, len(dates))
	for _, d := range dates {
		decisions = append(decisions, ActivationDecision{
			CountryCode:  country.Code,
			ForecastDate: d,
			LeadTimeDays: country.Trigger.LeadTimeDays,
			AlertStatus:  applyRule(country.Trigger.ActivationRule, votes[d]),
			Stations:     len(votes[d]),
		})
	}
	return decisions
}

// applyRule reduces the station votes for one cycle to a single level. New
// rules become new cases without touching the vote collection above.
func applyRule(rule config.ActivationRule, votes []domain.AlertLevel) domain.AlertLevel {
	switch rule {
	case config.ActivationAny:
		fallthrough
	default:
		level := domain.AlertLow
		for _, v := range votes {
			if v.Severity() > level.Severity() {
				level = v
			}
		}
		return level
	}
}
