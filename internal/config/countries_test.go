package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCountriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCountries(t *testing.T) {
	cs, err := LoadCountries(filepath.Join("testdata", "countries.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"guatemala", "philippines"}, cs.Codes())

	gt, err := cs.Get("guatemala")
	require.NoError(t, err)
	assert.Equal(t, "guatemala", gt.Code)
	assert.Equal(t, "Guatemala", gt.Name)
	assert.False(t, gt.MultiBasin())
	require.NotNil(t, gt.Station)
	assert.Equal(t, "GT-MOT-01", gt.Station.ID)
	assert.Equal(t, 14.211, gt.Station.Lat)
	assert.Equal(t, 0.5, gt.Trigger.ProbabilityThreshold)
	assert.Equal(t, 3, gt.Trigger.LeadTimeDays)
	// activation_rule omitted in YAML defaults to ANY.
	assert.Equal(t, ActivationAny, gt.Trigger.ActivationRule)

	ph, err := cs.Get("philippines")
	require.NoError(t, err)
	assert.True(t, ph.MultiBasin())
	assert.Equal(t, []string{"agusan", "cagayan"}, ph.BasinCodes())
	cagayan := ph.Basins["cagayan"]
	assert.Equal(t, "Cagayan", cagayan.Name)
	assert.Equal(t, []string{"Cagayan", "Isabela"}, cagayan.Provinces)
	require.NotNil(t, cagayan.SecondaryStation)
	assert.Equal(t, "PH-CAG-02", cagayan.SecondaryStation.ID)
	assert.Nil(t, ph.Basins["agusan"].SecondaryStation)
}

func TestLoadCountries_UnknownCode(t *testing.T) {
	cs, err := LoadCountries(filepath.Join("testdata", "countries.yaml"))
	require.NoError(t, err)

	_, err = cs.Get("atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atlantis")
}

func TestLoadCountries_MissingFile(t *testing.T) {
	_, err := LoadCountries(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadCountries_StationAndBasins(t *testing.T) {
	path := writeCountriesFile(t, `
countries:
  broken:
    name: Broken
    bbox: [1, 2, 3, 4]
    station: {name: A, id: X-1, lat: 1, lon: 2}
    basins:
      b1:
        name: B1
        station: {name: B, id: X-2, lat: 1, lon: 2}
    trigger: {return_period_years: 3, probability_threshold: 0.5, lead_time_days: 3}
`)
	_, err := LoadCountries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of station or basins")
}

func TestLoadCountries_MissingProbabilityThreshold(t *testing.T) {
	path := writeCountriesFile(t, `
countries:
  broken:
    name: Broken
    bbox: [1, 2, 3, 4]
    station: {name: A, id: X-1, lat: 1, lon: 2}
    trigger: {return_period_years: 3, lead_time_days: 3}
`)
	_, err := LoadCountries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probability_threshold")
}

func TestLoadCountries_UnsupportedActivationRule(t *testing.T) {
	path := writeCountriesFile(t, `
countries:
  broken:
    name: Broken
    bbox: [1, 2, 3, 4]
    station: {name: A, id: X-1, lat: 1, lon: 2}
    trigger:
      return_period_years: 3
      probability_threshold: 0.5
      lead_time_days: 3
      activation_rule: MAJORITY
`)
	_, err := LoadCountries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAJORITY")
}

func TestLoadCountries_MissingStationID(t *testing.T) {
	path := writeCountriesFile(t, `
countries:
  broken:
    name: Broken
    bbox: [1, 2, 3, 4]
    station: {name: A, lat: 1, lon: 2}
    trigger: {return_period_years: 3, probability_threshold: 0.5, lead_time_days: 3}
`)
	_, err := LoadCountries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "station id")
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{17.82, -92.23, 13.73, -88.23}

	assert.True(t, box.Contains(14.211, -90.341))
	assert.False(t, box.Contains(20.0, -90.341))
	assert.False(t, box.Contains(14.211, -95.0))
}
