package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/floodwatch/flood-trigger-service/internal/domain"
)

// RefGridStore loads the static return-period threshold grids. Any failure
// here is fatal for the country's analysis, so every error wraps
// domain.ErrThresholdUnavailable.
type RefGridStore struct {
	dataDir string
}

// NewRefGridStore creates a RefGridStore rooted at dataDir.
func NewRefGridStore(dataDir string) *RefGridStore {
	return &RefGridStore{dataDir: dataDir}
}

type refGridFile struct {
	ReturnPeriodYears float64     `json:"return_period_years"`
	Latitude          []float64   `json:"latitude"`
	Longitude         []float64   `json:"longitude"`
	MissingValue      *float64    `json:"missing_value"`
	Values            [][]float64 `json:"values"`
}

// Load reads the country's reference grid for one return period.
func (s *RefGridStore) Load(countryCode string, returnPeriodYears float64) (*domain.Grid, error) {
	path := filepath.Join(s.dataDir, countryCode, "return_periods",
		fmt.Sprintf("flood_threshold_glofas_v4_rl_%.1f.json", returnPeriodYears))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reference grid %s: %w", filepath.Base(path),
			errors.Join(domain.ErrThresholdUnavailable, err))
	}

	var f refGridFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("reference grid %s: %w", filepath.Base(path),
			errors.Join(domain.ErrThresholdUnavailable, err))
	}
	if err := validateGrid(&f, returnPeriodYears); err != nil {
		return nil, fmt.Errorf("reference grid %s: %w", filepath.Base(path),
			errors.Join(domain.ErrThresholdUnavailable, err))
	}

	sentinel := float64(defaultMissingValue)
	if f.MissingValue != nil {
		sentinel = *f.MissingValue
	}
	for _, row := range f.Values {
		for i, v := range row {
			if v == sentinel {
				row[i] = math.NaN()
			}
		}
	}

	return &domain.Grid{
		ReturnPeriodYears: f.ReturnPeriodYears,
		Latitude:          f.Latitude,
		Longitude:         f.Longitude,
		Values:            f.Values,
	}, nil
}

func validateGrid(f *refGridFile, wantRP float64) error {
	if f.ReturnPeriodYears != wantRP {
		return fmt.Errorf("file declares return period %.1f, want %.1f", f.ReturnPeriodYears, wantRP)
	}
	if len(f.Latitude) == 0 || len(f.Longitude) == 0 {
		return errors.New("empty coordinate arrays")
	}
	if len(f.Values) != len(f.Latitude) {
		return fmt.Errorf("%d value rows for %d latitudes", len(f.Values), len(f.Latitude))
	}
	for i, row := range f.Values {
		if len(row) != len(f.Longitude) {
			return fmt.Errorf("row %d has %d columns for %d longitudes", i, len(row), len(f.Longitude))
		}
	}
	return nil
}
