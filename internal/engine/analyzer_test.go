package engine_test

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/engine"
	"github.com/floodwatch/flood-trigger-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnalyzer() *engine.StationAnalyzer {
	return engine.NewStationAnalyzer(discardLogger(), observability.NewMetricsForTesting())
}

// uniformGrids builds single-cell 2-year/5-year reference grids.
func uniformGrids(v2, v5 float64) domain.ReferenceGrids {
	grid := func(rp, v float64) *domain.Grid {
		return &domain.Grid{
			ReturnPeriodYears: rp,
			Latitude:          []float64{14.0},
			Longitude:         []float64{-90.3},
			Values:            [][]float64{{v}},
		}
	}
	return domain.ReferenceGrids{TwoYear: grid(2, v2), FiveYear: grid(5, v5)}
}

// singleCellCycle builds a cycle over a 1x1 forecast grid where
// members[m][s] is member m's discharge at step s.
func singleCellCycle(t *testing.T, day string, steps []int, members [][]float64) domain.ForecastCycle {
	t.Helper()
	issued, err := time.Parse(domain.DateLayout, day)
	require.NoError(t, err)

	discharge := make([][][][]float64, len(members))
	for m := range members {
		discharge[m] = make([][][]float64, len(steps))
		for s := range steps {
			discharge[m][s] = [][]float64{{members[m][s]}}
		}
	}
	return domain.ForecastCycle{
		CountryCode: "guatemala",
		IssueDate:   issued,
		Latitude:    []float64{14.0},
		Longitude:   []float64{-90.3},
		StepsDays:   steps,
		Discharge:   discharge,
	}
}

func testContext() engine.StationContext {
	return engine.StationContext{
		Country:     "Guatemala",
		CountryCode: "guatemala",
		Station:     config.Station{Name: "Puente Orellana", ID: "GT-MOT-01", Lat: 14.211, Lon: -90.341},
	}
}

// Target return period 2 makes the resolved threshold exactly the 2-year
// value, keeping expectations exact.
func testPolicy() config.TriggerPolicy {
	return config.TriggerPolicy{
		ReturnPeriodYears:    2,
		ProbabilityThreshold: 0.5,
		LeadTimeDays:         3,
		ActivationRule:       config.ActivationAny,
	}
}

func TestAnalyze_EmitsSortedRecords(t *testing.T) {
	cycles := []domain.ForecastCycle{
		// Deliberately out of order: output must sort by issue date.
		singleCellCycle(t, "2025-10-05", []int{1, 3}, [][]float64{{90, 150}, {90, 50}}),
		singleCellCycle(t, "2025-10-02", []int{1, 3}, [][]float64{{90, 150}, {90, 160}}),
	}

	months, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)

	require.Len(t, months, 1)
	assert.Equal(t, "2025_10", months[0].YearMonth)
	require.Len(t, months[0].Records, 2)

	first, second := months[0].Records[0], months[0].Records[1]
	assert.Equal(t, "2025-10-02", first.ForecastDate)
	assert.Equal(t, "2025-10-05", second.ForecastDate)

	// Lead time 3 days is step index 1: both members exceed on the 2nd.
	assert.Equal(t, domain.AlertHigh, first.AlertStatus)
	assert.Equal(t, 1.0, first.ExceedanceProbability)
	// On the 5th only one of two members exceeds: probability 0.5 is HIGH.
	assert.Equal(t, domain.AlertHigh, second.AlertStatus)
	assert.Equal(t, 0.5, second.ExceedanceProbability)

	assert.Equal(t, "GT-MOT-01", first.StationID)
	assert.Equal(t, 3, first.LeadTimeDays)
	assert.Equal(t, 14.0, first.Latitude)
	assert.Equal(t, -90.3, first.Longitude)
	assert.Equal(t, 100.0, first.ThresholdDischarge)
	assert.Equal(t, 100.0, first.Threshold2yr)
	assert.Equal(t, 200.0, first.Threshold5yr)
	assert.Equal(t, 2.0, first.ThresholdRPYears)
}

func TestAnalyze_GroupsByMonth(t *testing.T) {
	cycles := []domain.ForecastCycle{
		singleCellCycle(t, "2025-11-01", []int{3}, [][]float64{{150}}),
		singleCellCycle(t, "2025-10-30", []int{3}, [][]float64{{50}}),
	}

	months, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)

	require.Len(t, months, 2)
	assert.Equal(t, "2025_10", months[0].YearMonth)
	assert.Equal(t, "2025_11", months[1].YearMonth)
	require.Len(t, months[0].Records, 1)
	require.Len(t, months[1].Records, 1)
}

func TestAnalyze_SkipsCycleMissingLeadTime(t *testing.T) {
	cycles := []domain.ForecastCycle{
		// Lead time 3 absent: skipped, no error raised.
		singleCellCycle(t, "2025-10-01", []int{1, 2}, [][]float64{{90, 90}}),
		singleCellCycle(t, "2025-10-02", []int{1, 3}, [][]float64{{90, 150}}),
	}

	months, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)

	require.Len(t, months, 1)
	require.Len(t, months[0].Records, 1)
	assert.Equal(t, "2025-10-02", months[0].Records[0].ForecastDate)
}

func TestAnalyze_SkipsCycleWithNoValidMembers(t *testing.T) {
	nan := math.NaN()
	cycles := []domain.ForecastCycle{
		singleCellCycle(t, "2025-10-01", []int{3}, [][]float64{{nan}, {nan}}),
		singleCellCycle(t, "2025-10-02", []int{3}, [][]float64{{150}, {nan}}),
	}

	months, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)

	require.Len(t, months, 1)
	require.Len(t, months[0].Records, 1)
	rec := months[0].Records[0]
	assert.Equal(t, "2025-10-02", rec.ForecastDate)
	// The NaN member is excluded from both numerator and denominator.
	assert.Equal(t, 1, rec.TotalMembers)
	assert.Equal(t, 1.0, rec.ExceedanceProbability)
}

func TestAnalyze_Idempotent(t *testing.T) {
	cycles := []domain.ForecastCycle{
		singleCellCycle(t, "2025-10-03", []int{1, 3}, [][]float64{{90.5, 103.2}, {91.1, math.NaN()}, {88.8, 120.4}}),
		singleCellCycle(t, "2025-10-01", []int{1, 3}, [][]float64{{90.5, 99.9}, {91.1, 100.0}, {88.8, 100.1}}),
	}

	first, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)
	second, err := newAnalyzer().Analyze(testContext(), uniformGrids(100, 200), cycles, testPolicy())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_ThresholdUnavailable(t *testing.T) {
	grids := domain.ReferenceGrids{TwoYear: uniformGrids(100, 200).TwoYear} // 5-year grid missing

	_, err := newAnalyzer().Analyze(testContext(), grids, nil, testPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrThresholdUnavailable)
	assert.Contains(t, err.Error(), "GT-MOT-01")
}
