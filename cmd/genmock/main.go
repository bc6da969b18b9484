// Command genmock generates a deterministic mock data directory for the
// flood-trigger service: return-period reference grids and monthly combined
// ensemble forecast files for every country in a countries file. The output
// matches the store schemas exactly, so the service can run end to end
// against it.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -countries config/countries.yaml \
//	  -out data \
//	  -days 14 -members 51 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
)

// Fixed clock so fixture issue dates are reproducible across runs.
var clock = clockwork.NewFakeClockAt(time.Date(2025, time.October, 15, 6, 0, 0, 0, time.UTC))

const (
	gridStep     = 0.1 // degrees between fixture grid points
	maxGridCells = 24  // per axis, keeps fixtures small for wide bboxes
	missingValue = -9999.0
	stepsCount   = 7 // daily lead times 1..7
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	countriesPath := flag.String("countries", "config/countries.yaml", "countries configuration file")
	outDir := flag.String("out", "data", "output data directory")
	days := flag.Int("days", 14, "forecast cycles to generate, ending at the pinned clock date")
	members := flag.Int("members", 51, "ensemble members per cycle")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	countries, err := config.LoadCountries(*countriesPath)
	if err != nil {
		return fmt.Errorf("load countries: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for _, code := range countries.Codes() {
		country, err := countries.Get(code)
		if err != nil {
			return err
		}
		if err := generateCountry(rng, *outDir, country, *days, *members); err != nil {
			return fmt.Errorf("country %s: %w", code, err)
		}
		log.Printf("%s: %d cycles, %d members", code, *days, *members)
	}
	return nil
}

func generateCountry(rng *rand.Rand, outDir string, country config.Country, days, members int) error {
	lats := axis(country.BBox.South(), country.BBox.North())
	lons := axis(country.BBox.West(), country.BBox.East())

	// 2-year baseline per cell, 5-year strictly above it. A few cells are
	// masked with the sentinel to exercise the NaN handling downstream.
	base := make([][]float64, len(lats))
	for i := range base {
		base[i] = make([]float64, len(lons))
		for j := range base[i] {
			base[i][j] = 80 + 60*rng.Float64()
		}
	}

	grids := []struct {
		rp    float64
		scale float64
	}{
		{2.0, 1.0},
		{5.0, 1.8},
	}
	for _, g := range grids {
		values := make([][]float64, len(lats))
		for i := range values {
			values[i] = make([]float64, len(lons))
			for j := range values[i] {
				if rng.Float64() < 0.02 {
					values[i][j] = missingValue
					continue
				}
				values[i][j] = base[i][j] * g.scale
			}
		}
		file := map[string]any{
			"return_period_years": g.rp,
			"latitude":            lats,
			"longitude":           lons,
			"missing_value":       missingValue,
			"values":              values,
		}
		path := filepath.Join(outDir, country.Code, "return_periods",
			fmt.Sprintf("flood_threshold_glofas_v4_rl_%.1f.json", g.rp))
		if err := writeJSON(path, file); err != nil {
			return err
		}
	}

	return generateForecasts(rng, outDir, country, lats, lons, base, days, members)
}

type monthFile struct {
	CountryCode  string    `json:"country_code"`
	Latitude     []float64 `json:"latitude"`
	Longitude    []float64 `json:"longitude"`
	StepsDays    []int     `json:"steps_days"`
	MissingValue float64   `json:"missing_value"`
	Cycles       []any     `json:"cycles"`
}

// generateForecasts writes monthly combined files covering the trailing
// `days` cycles. Discharge hovers near the 2-year baseline so fixtures
// produce a realistic mix of LOW, MODERATE, and HIGH records.
func generateForecasts(rng *rand.Rand, outDir string, country config.Country, lats, lons []float64, base [][]float64, days, members int) error {
	steps := make([]int, stepsCount)
	for i := range steps {
		steps[i] = i + 1
	}

	months := make(map[string]*monthFile)
	end := clock.Now().UTC().Truncate(24 * time.Hour)
	for d := days - 1; d >= 0; d-- {
		issued := end.AddDate(0, 0, -d)
		discharge := make([][][][]float64, members)
		for m := range discharge {
			discharge[m] = make([][][]float64, len(steps))
			for s := range steps {
				field := make([][]float64, len(lats))
				for i := range field {
					field[i] = make([]float64, len(lons))
					for j := range field[i] {
						if rng.Float64() < 0.01 {
							field[i][j] = missingValue
							continue
						}
						// Spread roughly 0.5x..1.5x of the 2-year level.
						field[i][j] = base[i][j] * (0.5 + rng.Float64())
					}
				}
				discharge[m][s] = field
			}
		}

		ym := issued.Format(domain.MonthLayout)
		mf, ok := months[ym]
		if !ok {
			mf = &monthFile{
				CountryCode:  country.Code,
				Latitude:     lats,
				Longitude:    lons,
				StepsDays:    steps,
				MissingValue: missingValue,
			}
			months[ym] = mf
		}
		mf.Cycles = append(mf.Cycles, map[string]any{
			"issue_date": issued.Format(domain.DateLayout),
			"discharge":  discharge,
		})
	}

	for ym, mf := range months {
		path := filepath.Join(outDir, country.Code, "ensemble_forecast",
			fmt.Sprintf("glofas_%s_ensemble_%s_combined.json", country.Code, ym))
		if err := writeJSON(path, mf); err != nil {
			return err
		}
	}
	return nil
}

// axis builds an ascending coordinate array spanning [lo, hi], at gridStep
// resolution for small bboxes and coarsened to maxGridCells points for wide
// ones so the full extent stays covered.
func axis(lo, hi float64) []float64 {
	n := int((hi-lo)/gridStep) + 1
	if n < 1 {
		n = 1
	}
	step := gridStep
	if n > maxGridCells {
		n = maxGridCells
		step = (hi - lo) / float64(n-1)
	}
	coords := make([]float64, n)
	for i := range coords {
		coords[i] = lo + float64(i)*step
	}
	return coords
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
