// Command validate checks a data directory and countries file for integrity
// before the service runs against them: configuration sanity, reference grid
// loadability and threshold resolution per station, and forecast cycle
// coverage at the configured lead times.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -countries config/countries.yaml \
//	  -data data
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/store"
)

// phase tracks pass/fail for a validation phase. Warnings surface operator
// concerns without failing the run.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	countriesPath := flag.String("countries", "config/countries.yaml", "countries configuration file")
	dataDir := flag.String("data", "data", "data directory")
	flag.Parse()

	os.Exit(run(*countriesPath, *dataDir))
}

func run(countriesPath, dataDir string) int {
	fmt.Println("=== Flood Trigger Data Validation ===")
	fmt.Println()

	countries, err := config.LoadCountries(countriesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load countries: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateConfiguration(countries),
		validateReferenceGrids(countries, dataDir),
		validateForecastCycles(countries, dataDir),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		if len(p.warnings) > 0 {
			status += fmt.Sprintf(" \033[33m(%d warnings)\033[0m", len(p.warnings))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [E%d] %s\n", i+1, e)
		}
		for i, w := range p.warnings {
			fmt.Printf("  [W%d] %s\n", i+1, w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Configuration ──
// The loader already enforces hard constraints; this phase surfaces soft
// operational concerns.

func validateConfiguration(countries *config.Countries) *phase {
	p := &phase{name: "Phase 1: Country Configuration"}

	for _, code := range countries.Codes() {
		country, err := countries.Get(code)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}

		rp := country.Trigger.ReturnPeriodYears
		if rp < 2 || rp > 5 {
			p.warnf("%s: return period %.1f is outside the interpolation anchors [2, 5]; thresholds extrapolate in log space", code, rp)
		}
		if pt := country.Trigger.ProbabilityThreshold; pt <= 0.2 {
			p.warnf("%s: probability threshold %.2f is within the MODERATE band width; LOW becomes unreachable", code, pt)
		}

		forEachStation(country, func(basinCode, role string, s config.Station) {
			if !country.BBox.Contains(s.Lat, s.Lon) {
				p.errorf("%s: station %s (%.3f, %.3f) lies outside the country bbox", code, s.ID, s.Lat, s.Lon)
			}
		})
	}
	return p
}

// ── Phase 2: Reference Grids ──
// Loads both return-period grids per country and resolves each station's
// threshold exactly as the engine would.

func validateReferenceGrids(countries *config.Countries, dataDir string) *phase {
	p := &phase{name: "Phase 2: Reference Grids"}
	grids := store.NewRefGridStore(dataDir)

	for _, code := range countries.Codes() {
		country, err := countries.Get(code)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}

		low, err := grids.Load(code, 2.0)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}
		high, err := grids.Load(code, 5.0)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}

		forEachStation(country, func(basinCode, role string, s config.Station) {
			thr, err := domain.ResolveThreshold(low, high, s.Lat, s.Lon, country.Trigger.ReturnPeriodYears)
			if err != nil {
				p.errorf("%s: station %s: %v", code, s.ID, err)
				return
			}
			if thr.Discharge5yr <= thr.Discharge2yr {
				p.warnf("%s: station %s: 5-year threshold %.1f is not above the 2-year %.1f", code, s.ID, thr.Discharge5yr, thr.Discharge2yr)
			}
		})
	}
	return p
}

// ── Phase 3: Forecast Cycles ──
// Loads the cycle history per country and checks the configured lead time is
// present.

func validateForecastCycles(countries *config.Countries, dataDir string) *phase {
	p := &phase{name: "Phase 3: Forecast Cycles"}
	forecasts := store.NewForecastStore(dataDir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, code := range countries.Codes() {
		country, err := countries.Get(code)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}

		cycles, err := forecasts.Cycles(code)
		if err != nil {
			p.errorf("%s: %v", code, err)
			continue
		}
		if len(cycles) == 0 {
			p.warnf("%s: no forecast cycles on disk", code)
			continue
		}

		missing := 0
		for i := range cycles {
			if _, err := cycles[i].StepIndex(country.Trigger.LeadTimeDays); err != nil {
				missing++
			}
		}
		if missing == len(cycles) {
			p.errorf("%s: lead time %d days absent from every cycle", code, country.Trigger.LeadTimeDays)
		} else if missing > 0 {
			p.warnf("%s: lead time %d days absent from %d of %d cycles", code, country.Trigger.LeadTimeDays, missing, len(cycles))
		}

		fmt.Printf("  %s: %d cycles, %s to %s\n", code, len(cycles),
			cycles[0].IssueDate.Format(domain.DateLayout),
			cycles[len(cycles)-1].IssueDate.Format(domain.DateLayout))
	}
	return p
}

func forEachStation(country config.Country, fn func(basinCode, role string, s config.Station)) {
	if country.Station != nil {
		fn("", "primary", *country.Station)
		return
	}
	for _, basinCode := range country.BasinCodes() {
		basin := country.Basins[basinCode]
		fn(basinCode, "primary", basin.Station)
		if basin.SecondaryStation != nil {
			fn(basinCode, "secondary", *basin.SecondaryStation)
		}
	}
}
