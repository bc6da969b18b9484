package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout formats forecast issue dates as calendar days.
const DateLayout = "2006-01-02"

// MonthLayout formats the year-month partition key used for reporting.
const MonthLayout = "2006_01"

// Grid is a static spatial field of threshold discharge values for one
// return period, pre-cropped to a country bounding box. Loaded once per
// analysis run and never mutated.
type Grid struct {
	ReturnPeriodYears float64
	Latitude          []float64
	Longitude         []float64
	// Values is indexed [lat][lon]; missing cells are NaN.
	Values [][]float64
}

// ReferenceGrids bundles the two known return-period fields the threshold
// interpolation works from.
type ReferenceGrids struct {
	TwoYear  *Grid
	FiveYear *Grid
}

// ErrLeadTimeUnavailable reports that a forecast cycle does not contain the
// requested lead-time offset. Recoverable: the cycle is skipped and the rest
// of the batch continues.
var ErrLeadTimeUnavailable = errors.New("lead time unavailable in forecast cycle")

// ForecastCycle is one ensemble forecast issued on a calendar day. The
// coordinate arrays belong to the forecast grid itself, which may differ in
// resolution from the reference grids.
type ForecastCycle struct {
	CountryCode string
	IssueDate   time.Time
	Latitude    []float64
	Longitude   []float64
	StepsDays   []int
	// Discharge is indexed [member][step][lat][lon]; missing values are NaN.
	Discharge [][][][]float64
}

// StepIndex locates the exact integer day offset among the cycle's lead-time
// steps. Returns ErrLeadTimeUnavailable if the offset is absent.
func (c *ForecastCycle) StepIndex(leadTimeDays int) (int, error) {
	for i, d := range c.StepsDays {
		if d == leadTimeDays {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %d days not in cycle issued %s",
		ErrLeadTimeUnavailable, leadTimeDays, c.IssueDate.Format(DateLayout))
}

// EnsembleAt extracts the per-member discharge values at one grid cell and
// lead-time step.
func (c *ForecastCycle) EnsembleAt(ilat, ilon, step int) []float64 {
	values := make([]float64, len(c.Discharge))
	for m := range c.Discharge {
		values[m] = c.Discharge[m][step][ilat][ilon]
	}
	return values
}

// TriggerRecord is the analysis engine's sole output unit: one per
// (monitoring location, forecast cycle, lead time). Immutable once produced.
// The raw 2-year/5-year thresholds are carried for auditability.
type TriggerRecord struct {
	Country      string  `json:"country"`
	CountryCode  string  `json:"country_code"`
	BasinName    string  `json:"basin_name,omitempty"`
	BasinCode    string  `json:"basin_code,omitempty"`
	StationName  string  `json:"station_name"`
	StationID    string  `json:"station_id"`
	StationRole  string  `json:"station_role,omitempty"`
	ForecastDate string  `json:"forecast_date"`
	LeadTimeDays int     `json:"lead_time_days"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`

	ThresholdRPYears   float64 `json:"threshold_rp_years"`
	ThresholdDischarge float64 `json:"threshold_discharge_m3s"`
	Threshold2yr       float64 `json:"threshold_2yr_m3s"`
	Threshold5yr       float64 `json:"threshold_5yr_m3s"`

	AlertStatus AlertLevel `json:"alert_status"`

	EnsembleStats
}

// YearMonth returns the record's calendar year-month partition key.
func (r TriggerRecord) YearMonth() string {
	t, err := time.Parse(DateLayout, r.ForecastDate)
	if err != nil {
		return ""
	}
	return t.Format(MonthLayout)
}
