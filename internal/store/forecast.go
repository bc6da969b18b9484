// Package store reads the analysis engine's on-disk inputs: monthly combined
// ensemble forecast files and static return-period reference grids. Both are
// JSON files produced per country by the upstream GRIB-to-JSON converter,
// laid out under a single data directory:
//
//	<data>/<country_code>/ensemble_forecast/glofas_<cc>_ensemble_YYYY_MM_combined.json
//	<data>/<country_code>/return_periods/flood_threshold_glofas_v4_rl_<rp>.json
//
// JSON cannot encode NaN, so files mark missing cells with a sentinel value
// (-9999 unless the file says otherwise); the stores replace the sentinel
// with NaN on load so downstream code has a single missing-value convention.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/floodwatch/flood-trigger-service/internal/domain"
)

const defaultMissingValue = -9999

// ForecastStore loads a country's forecast cycle history from its monthly
// combined files.
type ForecastStore struct {
	dataDir string
	logger  *slog.Logger
}

// NewForecastStore creates a ForecastStore rooted at dataDir.
func NewForecastStore(dataDir string, logger *slog.Logger) *ForecastStore {
	return &ForecastStore{dataDir: dataDir, logger: logger}
}

type forecastFile struct {
	CountryCode  string          `json:"country_code"`
	Latitude     []float64       `json:"latitude"`
	Longitude    []float64       `json:"longitude"`
	StepsDays    []int           `json:"steps_days"`
	MissingValue *float64        `json:"missing_value"`
	Cycles       []forecastBlock `json:"cycles"`
}

type forecastBlock struct {
	IssueDate string          `json:"issue_date"`
	Discharge [][][][]float64 `json:"discharge"`
}

// Cycles returns every forecast cycle on disk for the country, de-duplicated
// by issue day (first occurrence wins) and sorted ascending by issue date.
// The upstream converter appends to monthly files as forecasts arrive, so
// re-running a merge may leave the same day in two files; the dedup makes
// repeated analysis passes idempotent.
func (s *ForecastStore) Cycles(countryCode string) ([]domain.ForecastCycle, error) {
	pattern := filepath.Join(s.dataDir, countryCode, "ensemble_forecast",
		fmt.Sprintf("glofas_%s_ensemble_*_combined.json", countryCode))
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob forecast files: %w", err)
	}
	sort.Strings(paths)

	var cycles []domain.ForecastCycle
	seen := make(map[string]bool)
	for _, path := range paths {
		fileCycles, err := s.readFile(path, countryCode)
		if err != nil {
			return nil, fmt.Errorf("forecast file %s: %w", filepath.Base(path), err)
		}
		for _, c := range fileCycles {
			day := c.IssueDate.Format(domain.DateLayout)
			if seen[day] {
				s.logger.Warn("duplicate forecast cycle dropped",
					"country_code", countryCode,
					"issue_date", day,
					"file", filepath.Base(path),
				)
				continue
			}
			seen[day] = true
			cycles = append(cycles, c)
		}
	}

	// Files are read in name order and days within a file in file order, but
	// nothing upstream guarantees that; re-sort before handing out.
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].IssueDate.Before(cycles[j].IssueDate)
	})
	return cycles, nil
}

func (s *ForecastStore) readFile(path, countryCode string) ([]domain.ForecastCycle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f forecastFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(f.Latitude) == 0 || len(f.Longitude) == 0 {
		return nil, fmt.Errorf("empty coordinate arrays")
	}
	if len(f.StepsDays) == 0 {
		return nil, fmt.Errorf("no lead-time steps")
	}

	sentinel := float64(defaultMissingValue)
	if f.MissingValue != nil {
		sentinel = *f.MissingValue
	}

	cycles := make([]domain.ForecastCycle, 0, len(f.Cycles))
	for _, block := range f.Cycles {
		issued, err := time.Parse(domain.DateLayout, block.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("issue date %q: %w", block.IssueDate, err)
		}
		if err := validateDischarge(block.Discharge, len(f.StepsDays), len(f.Latitude), len(f.Longitude)); err != nil {
			return nil, fmt.Errorf("cycle %s: %w", block.IssueDate, err)
		}
		replaceSentinel(block.Discharge, sentinel)
		cycles = append(cycles, domain.ForecastCycle{
			CountryCode: countryCode,
			IssueDate:   issued,
			Latitude:    f.Latitude,
			Longitude:   f.Longitude,
			StepsDays:   f.StepsDays,
			Discharge:   block.Discharge,
		})
	}
	return cycles, nil
}

// validateDischarge checks the [member][step][lat][lon] block against the
// file's coordinate and step arrays so indexing downstream cannot go out of
// bounds.
func validateDischarge(discharge [][][][]float64, steps, lats, lons int) error {
	if len(discharge) == 0 {
		return fmt.Errorf("no ensemble members")
	}
	for m, member := range discharge {
		if len(member) != steps {
			return fmt.Errorf("member %d has %d steps, want %d", m, len(member), steps)
		}
		for s, field := range member {
			if len(field) != lats {
				return fmt.Errorf("member %d step %d has %d latitude rows, want %d", m, s, len(field), lats)
			}
			for _, row := range field {
				if len(row) != lons {
					return fmt.Errorf("member %d step %d has a row of %d columns, want %d", m, s, len(row), lons)
				}
			}
		}
	}
	return nil
}

func replaceSentinel(discharge [][][][]float64, sentinel float64) {
	for _, member := range discharge {
		for _, field := range member {
			for _, row := range field {
				for i, v := range row {
					if v == sentinel {
						row[i] = math.NaN()
					}
				}
			}
		}
	}
}
