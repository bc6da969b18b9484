package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
)

// ActivationRule combines per-station alert levels into one country-level
// decision. Additional rules (ALL, MAJORITY) become new constants here.
type ActivationRule string

// ActivationAny alerts when any station or basin alerts. The sole rule in
// operational use.
const ActivationAny ActivationRule = "ANY"

// BoundingBox is [north, west, south, east] in degrees.
type BoundingBox [4]float64

func (b BoundingBox) North() float64 { return b[0] }
func (b BoundingBox) West() float64  { return b[1] }
func (b BoundingBox) South() float64 { return b[2] }
func (b BoundingBox) East() float64  { return b[3] }

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat <= b.North() && lat >= b.South() && lon >= b.West() && lon <= b.East()
}

// Station is a monitored river location. Coordinates are fixed at
// configuration time and never mutated.
type Station struct {
	Name string  `yaml:"name"`
	ID   string  `yaml:"id"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Basin groups the stations draining one named river basin. Provinces and
// drainage area are carried through for reporting, not used in computation.
type Basin struct {
	Name             string   `yaml:"name"`
	Provinces        []string `yaml:"provinces"`
	DrainageAreaKm2  float64  `yaml:"drainage_area_km2"`
	Station          Station  `yaml:"station"`
	SecondaryStation *Station `yaml:"secondary_station"`
}

// TriggerPolicy holds the flood-trigger criteria for one country. The same
// policy applies to every basin and station of the country.
type TriggerPolicy struct {
	ReturnPeriodYears    float64        `yaml:"return_period_years"`
	ProbabilityThreshold float64        `yaml:"probability_threshold"`
	LeadTimeDays         int            `yaml:"lead_time_days"`
	ActivationRule       ActivationRule `yaml:"activation_rule"`
}

// Country is one country configuration. Exactly one of Station or Basins is
// set.
type Country struct {
	Code    string           `yaml:"-"`
	Name    string           `yaml:"name"`
	BBox    BoundingBox      `yaml:"bbox"`
	Station *Station         `yaml:"station"`
	Basins  map[string]Basin `yaml:"basins"`
	Trigger TriggerPolicy    `yaml:"trigger"`
}

// MultiBasin reports whether the country uses the multi-basin configuration.
func (c Country) MultiBasin() bool { return len(c.Basins) > 0 }

// BasinCodes returns the country's basin codes in sorted order.
func (c Country) BasinCodes() []string {
	codes := make([]string, 0, len(c.Basins))
	for code := range c.Basins {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Countries is the immutable set of country configurations, loaded once at
// process start and passed into every component.
type Countries struct {
	byCode map[string]Country
	codes  []string
}

type countriesFile struct {
	Countries map[string]Country `yaml:"countries"`
}

// LoadCountries reads and validates the country configuration file.
func LoadCountries(path string) (*Countries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read countries file: %w", err)
	}

	var f countriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse countries file: %w", err)
	}
	if len(f.Countries) == 0 {
		return nil, errors.New("countries file defines no countries")
	}

	byCode := make(map[string]Country, len(f.Countries))
	codes := make([]string, 0, len(f.Countries))
	for code, c := range f.Countries {
		c.Code = code
		if c.Trigger.ActivationRule == "" {
			c.Trigger.ActivationRule = ActivationAny
		}
		if err := validateCountry(c); err != nil {
			return nil, fmt.Errorf("country %q: %w", code, err)
		}
		byCode[code] = c
		codes = append(codes, code)
	}
	sort.Strings(codes)

	return &Countries{byCode: byCode, codes: codes}, nil
}

// Get returns the configuration for a country code.
func (cs *Countries) Get(code string) (Country, error) {
	c, ok := cs.byCode[code]
	if !ok {
		return Country{}, fmt.Errorf("unknown country code %q", code)
	}
	return c, nil
}

// Codes returns all configured country codes in sorted order.
func (cs *Countries) Codes() []string {
	out := make([]string, len(cs.codes))
	copy(out, cs.codes)
	return out
}

func validateCountry(c Country) error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	single := c.Station != nil
	if single == c.MultiBasin() {
		return errors.New("exactly one of station or basins must be set")
	}
	if single {
		if err := validateStation(*c.Station); err != nil {
			return err
		}
	}
	for _, code := range c.BasinCodes() {
		b := c.Basins[code]
		if b.Name == "" {
			return fmt.Errorf("basin %q: name is required", code)
		}
		if err := validateStation(b.Station); err != nil {
			return fmt.Errorf("basin %q: %w", code, err)
		}
		if b.SecondaryStation != nil {
			if err := validateStation(*b.SecondaryStation); err != nil {
				return fmt.Errorf("basin %q secondary station: %w", code, err)
			}
		}
	}
	return validatePolicy(c.Trigger)
}

func validateStation(s Station) error {
	if s.ID == "" {
		return errors.New("station id is required")
	}
	if s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
		return fmt.Errorf("station %s: coordinates out of range", s.ID)
	}
	return nil
}

func validatePolicy(p TriggerPolicy) error {
	if p.ProbabilityThreshold <= 0 || p.ProbabilityThreshold > 1 {
		return errors.New("trigger probability_threshold must be in (0,1]")
	}
	if p.ReturnPeriodYears <= 0 {
		return errors.New("trigger return_period_years must be positive")
	}
	if p.LeadTimeDays < 0 {
		return errors.New("trigger lead_time_days must be non-negative")
	}
	if p.ActivationRule != ActivationAny {
		return fmt.Errorf("unsupported activation rule %q", p.ActivationRule)
	}
	return nil
}
