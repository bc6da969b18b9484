// Package report writes the per-station monthly CSV trigger reports and the
// country activation summaries consumed by downstream forecasting teams.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/engine"
)

var csvHeader = []string{
	"country", "country_code", "basin_name", "basin_code",
	"station_name", "station_id", "station_role",
	"forecast_date", "lead_time_days", "latitude", "longitude",
	"threshold_rp_years", "threshold_discharge_m3s", "threshold_2yr_m3s", "threshold_5yr_m3s",
	"total_members", "exceeding_members", "exceedance_probability",
	"median_discharge_m3s", "mean_discharge_m3s", "min_discharge_m3s", "max_discharge_m3s",
	"p25_discharge_m3s", "p75_discharge_m3s",
	"median_exceeds_threshold", "median_exceedance_pct",
	"alert_status",
}

// Writer renders a CountryResult to the output directory: one CSV per
// station per month, plus an activations JSON per country. It implements
// engine.ResultSink.
type Writer struct {
	outDir string
	logger *slog.Logger
}

// NewWriter creates a report Writer rooted at outDir.
func NewWriter(outDir string, logger *slog.Logger) *Writer {
	return &Writer{outDir: outDir, logger: logger}
}

// Consume writes the result's reports. Files are rewritten whole on every
// pass, so re-running an analysis replaces rather than appends.
func (w *Writer) Consume(_ context.Context, result *engine.CountryResult) error {
	dir := filepath.Join(w.outDir, result.CountryCode, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	for _, sr := range result.Stations {
		for _, month := range sr.Months {
			if err := w.writeMonth(dir, sr.Station.ID, month); err != nil {
				return err
			}
		}
	}

	if err := w.writeActivations(dir, result); err != nil {
		return err
	}

	w.logger.Info("reports written",
		"country_code", result.CountryCode,
		"dir", dir,
		"stations", len(result.Stations),
	)
	return nil
}

func (w *Writer) writeMonth(dir, stationID string, month engine.MonthlySeries) error {
	first := month.Records[0]
	name := fmt.Sprintf("flood_trigger_analysis_%s_%.1fyr_lead%dd_%s.csv",
		month.YearMonth, first.ThresholdRPYears, first.LeadTimeDays, stationID)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write report %s: %w", name, err)
	}
	var high, moderate, low int
	for _, rec := range month.Records {
		if err := cw.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("write report %s: %w", name, err)
		}
		switch rec.AlertStatus {
		case domain.AlertHigh:
			high++
		case domain.AlertModerate:
			moderate++
		default:
			low++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write report %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", name, err)
	}

	w.logger.Info("monthly report written",
		"station_id", stationID,
		"year_month", month.YearMonth,
		"records", len(month.Records),
		"high", high,
		"moderate", moderate,
		"low", low,
	)
	return nil
}

// writeActivations dumps the country-level activation decisions as JSON, the
// format the anticipatory-action dashboards ingest.
func (w *Writer) writeActivations(dir string, result *engine.CountryResult) error {
	if len(result.Activations) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(result.Activations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal activations: %w", err)
	}
	data = append(data, '\n')
	path := filepath.Join(dir, "flood_trigger_activations.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write activations: %w", err)
	}
	return nil
}

func csvRow(r domain.TriggerRecord) []string {
	return []string{
		r.Country, r.CountryCode, r.BasinName, r.BasinCode,
		r.StationName, r.StationID, r.StationRole,
		r.ForecastDate, strconv.Itoa(r.LeadTimeDays), fnum(r.Latitude), fnum(r.Longitude),
		fnum(r.ThresholdRPYears), fnum(r.ThresholdDischarge), fnum(r.Threshold2yr), fnum(r.Threshold5yr),
		strconv.Itoa(r.TotalMembers), strconv.Itoa(r.ExceedingMembers), fnum(r.ExceedanceProbability),
		fnum(r.MedianDischarge), fnum(r.MeanDischarge), fnum(r.MinDischarge), fnum(r.MaxDischarge),
		fnum(r.P25Discharge), fnum(r.P75Discharge),
		strconv.FormatBool(r.MedianExceeds), fnum(r.MedianExceedancePct),
		string(r.AlertStatus),
	}
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
