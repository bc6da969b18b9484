package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrThresholdUnavailable reports that a reference grid is missing or holds
// no value for the requested location. Fatal for the affected country: no
// threshold can be computed.
var ErrThresholdUnavailable = errors.New("reference threshold unavailable")

// Threshold is a location-specific flood-severity threshold resolved from
// the reference grids. ResolvedLat/ResolvedLon are the center of the 2-year
// grid cell the lookup landed on.
type Threshold struct {
	TargetReturnPeriod float64
	Discharge          float64
	Discharge2yr       float64
	Discharge5yr       float64
	ResolvedLat        float64
	ResolvedLon        float64
}

// ResolveThreshold looks up the 2-year and 5-year discharge values nearest
// to (lat, lon) in each grid independently and interpolates to the target
// return period in log space. Each grid resolves its own nearest cell, so
// grids of different resolution may land on different cells.
func ResolveThreshold(low, high *Grid, lat, lon, targetRP float64) (Threshold, error) {
	v2, cellLat, cellLon, err := lookupCell(low, lat, lon)
	if err != nil {
		return Threshold{}, err
	}
	v5, _, _, err := lookupCell(high, lat, lon)
	if err != nil {
		return Threshold{}, err
	}
	return Threshold{
		TargetReturnPeriod: targetRP,
		Discharge:          InterpolateReturnPeriod(v2, v5, targetRP),
		Discharge2yr:       v2,
		Discharge5yr:       v5,
		ResolvedLat:        cellLat,
		ResolvedLon:        cellLon,
	}, nil
}

// InterpolateReturnPeriod interpolates discharge between the 2-year and
// 5-year return-period values in log space. A target outside [2,5] years
// extrapolates; callers wanting a hard guard must validate the target
// themselves.
func InterpolateReturnPeriod(val2yr, val5yr, targetRP float64) float64 {
	return val2yr + (val5yr-val2yr)*(math.Log(targetRP)-math.Log(2))/(math.Log(5)-math.Log(2))
}

// NearestIndex returns the index of the coordinate with minimum absolute
// distance to target. Ties go to the first minimal match encountered.
func NearestIndex(coords []float64, target float64) int {
	best := 0
	bestDist := math.Abs(coords[0] - target)
	for i := 1; i < len(coords); i++ {
		if d := math.Abs(coords[i] - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func lookupCell(g *Grid, lat, lon float64) (value, cellLat, cellLon float64, err error) {
	if g == nil || len(g.Latitude) == 0 || len(g.Longitude) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty reference grid", ErrThresholdUnavailable)
	}
	ilat := NearestIndex(g.Latitude, lat)
	ilon := NearestIndex(g.Longitude, lon)
	v := g.Values[ilat][ilon]
	if math.IsNaN(v) {
		return 0, 0, 0, fmt.Errorf("%w: no %g-year value at cell (%.3f, %.3f)",
			ErrThresholdUnavailable, g.ReturnPeriodYears, g.Latitude[ilat], g.Longitude[ilon])
	}
	return v, g.Latitude[ilat], g.Longitude[ilon], nil
}
