package store_test

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/store"
)

func writeGridFile(t *testing.T, dataDir, countryCode string, rp float64, body string) {
	t.Helper()
	dir := filepath.Join(dataDir, countryCode, "return_periods")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	name := fmt.Sprintf("flood_threshold_glofas_v4_rl_%.1f.json", rp)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_ReadsGrid(t *testing.T) {
	dataDir := t.TempDir()
	writeGridFile(t, dataDir, "guatemala", 2.0, `{
		"return_period_years": 2.0,
		"latitude": [14.0, 14.1],
		"longitude": [-90.3],
		"missing_value": -9999,
		"values": [[100], [-9999]]
	}`)

	grid, err := store.NewRefGridStore(dataDir).Load("guatemala", 2.0)
	require.NoError(t, err)

	assert.Equal(t, 2.0, grid.ReturnPeriodYears)
	assert.Equal(t, []float64{14.0, 14.1}, grid.Latitude)
	assert.Equal(t, 100.0, grid.Values[0][0])
	assert.True(t, math.IsNaN(grid.Values[1][0]))
}

func TestLoad_MissingFileIsThresholdUnavailable(t *testing.T) {
	_, err := store.NewRefGridStore(t.TempDir()).Load("guatemala", 5.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrThresholdUnavailable)
	assert.Contains(t, err.Error(), "flood_threshold_glofas_v4_rl_5.0.json")
}

func TestLoad_ReturnPeriodMismatch(t *testing.T) {
	dataDir := t.TempDir()
	writeGridFile(t, dataDir, "guatemala", 2.0, `{
		"return_period_years": 5.0,
		"latitude": [14.0],
		"longitude": [-90.3],
		"values": [[100]]
	}`)

	_, err := store.NewRefGridStore(dataDir).Load("guatemala", 2.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrThresholdUnavailable)
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dataDir := t.TempDir()
	writeGridFile(t, dataDir, "guatemala", 2.0, `{
		"return_period_years": 2.0,
		"latitude": [14.0, 14.1],
		"longitude": [-90.3],
		"values": [[100]]
	}`)

	_, err := store.NewRefGridStore(dataDir).Load("guatemala", 2.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrThresholdUnavailable)
	assert.Contains(t, err.Error(), "value rows")
}
