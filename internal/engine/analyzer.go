package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/observability"
)

// StationContext identifies the station under analysis and the reporting
// metadata carried into every record it produces. Basin fields are empty for
// single-station countries.
type StationContext struct {
	Country     string
	CountryCode string
	BasinName   string
	BasinCode   string
	Role        string // "primary" or "secondary"
	Station     config.Station
}

// MonthlySeries holds one calendar month of trigger records, sorted
// ascending by forecast issue date.
type MonthlySeries struct {
	YearMonth string
	Records   []domain.TriggerRecord
}

// StationAnalyzer reduces a time series of forecast cycles to trigger
// records for one monitoring location. It holds no mutable state between
// invocations, so callers may analyze stations concurrently.
type StationAnalyzer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStationAnalyzer creates a StationAnalyzer with the given observability.
func NewStationAnalyzer(logger *slog.Logger, metrics *observability.Metrics) *StationAnalyzer {
	return &StationAnalyzer{logger: logger, metrics: metrics}
}

// Analyze resolves the station's threshold once, evaluates every forecast
// cycle at the policy lead time, and returns the records grouped by issue
// month. Cycles missing the lead time or containing no valid members are
// skipped; the rest of the batch continues. Output ordering is by issue
// date regardless of input order, and identical inputs always produce
// identical records.
func (a *StationAnalyzer) Analyze(sc StationContext, grids domain.ReferenceGrids, cycles []domain.ForecastCycle, policy config.TriggerPolicy) ([]MonthlySeries, error) {
	thr, err := domain.ResolveThreshold(grids.TwoYear, grids.FiveYear, sc.Station.Lat, sc.Station.Lon, policy.ReturnPeriodYears)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", sc.Station.ID, err)
	}

	a.logger.Info("station threshold resolved",
		"station_id", sc.Station.ID,
		"lat", thr.ResolvedLat,
		"lon", thr.ResolvedLon,
		"threshold_2yr_m3s", thr.Discharge2yr,
		"threshold_m3s", thr.Discharge,
		"threshold_5yr_m3s", thr.Discharge5yr,
		"return_period_years", policy.ReturnPeriodYears,
	)

	records := make([]domain.TriggerRecord, 0, len(cycles))
	for i := range cycles {
		rec, ok := a.analyzeCycle(sc, &cycles[i], thr, policy)
		if ok {
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ForecastDate < records[j].ForecastDate
	})

	a.metrics.StationsAnalyzed.Inc()
	return groupByMonth(records), nil
}

// analyzeCycle evaluates one forecast cycle. ok is false when the cycle is
// skipped (missing lead time or no valid ensemble members).
func (a *StationAnalyzer) analyzeCycle(sc StationContext, cycle *domain.ForecastCycle, thr domain.Threshold, policy config.TriggerPolicy) (domain.TriggerRecord, bool) {
	a.metrics.CyclesAnalyzed.Inc()

	step, err := cycle.StepIndex(policy.LeadTimeDays)
	if err != nil {
		a.logger.Warn("lead time unavailable, skipping cycle",
			"station_id", sc.Station.ID,
			"issue_date", cycle.IssueDate.Format(domain.DateLayout),
			"lead_time_days", policy.LeadTimeDays,
		)
		a.metrics.CyclesSkipped.WithLabelValues("lead_time_unavailable").Inc()
		return domain.TriggerRecord{}, false
	}

	// Nearest cell against the forecast grid's own coordinate arrays, which
	// may differ in resolution from the reference grids.
	ilat := domain.NearestIndex(cycle.Latitude, sc.Station.Lat)
	ilon := domain.NearestIndex(cycle.Longitude, sc.Station.Lon)

	stats, ok := domain.SummarizeEnsemble(cycle.EnsembleAt(ilat, ilon, step), thr.Discharge)
	if !ok {
		a.logger.Debug("no valid ensemble members, skipping cycle",
			"station_id", sc.Station.ID,
			"issue_date", cycle.IssueDate.Format(domain.DateLayout),
		)
		a.metrics.CyclesSkipped.WithLabelValues("no_valid_members").Inc()
		return domain.TriggerRecord{}, false
	}

	level := domain.ClassifyAlert(stats.ExceedanceProbability, policy.ProbabilityThreshold)
	a.metrics.RecordsEmitted.WithLabelValues(string(level)).Inc()

	return domain.TriggerRecord{
		Country:      sc.Country,
		CountryCode:  sc.CountryCode,
		BasinName:    sc.BasinName,
		BasinCode:    sc.BasinCode,
		StationName:  sc.Station.Name,
		StationID:    sc.Station.ID,
		StationRole:  sc.Role,
		ForecastDate: cycle.IssueDate.Format(domain.DateLayout),
		LeadTimeDays: policy.LeadTimeDays,
		Latitude:     cycle.Latitude[ilat],
		Longitude:    cycle.Longitude[ilon],

		ThresholdRPYears:   policy.ReturnPeriodYears,
		ThresholdDischarge: thr.Discharge,
		Threshold2yr:       thr.Discharge2yr,
		Threshold5yr:       thr.Discharge5yr,

		AlertStatus:   level,
		EnsembleStats: stats,
	}, true
}

// groupByMonth partitions date-sorted records into per-month series.
func groupByMonth(records []domain.TriggerRecord) []MonthlySeries {
	var months []MonthlySeries
	for _, rec := range records {
		ym := rec.YearMonth()
		if n := len(months); n > 0 && months[n-1].YearMonth == ym {
			months[n-1].Records = append(months[n-1].Records, rec)
			continue
		}
		months = append(months, MonthlySeries{YearMonth: ym, Records: []domain.TriggerRecord{rec}})
	}
	return months
}
