package domain

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EnsembleStats summarizes the valid members of one ensemble vector against
// a discharge threshold. Every statistic is computed over the same filtered
// set of members.
type EnsembleStats struct {
	TotalMembers          int     `json:"total_members"`
	ExceedingMembers      int     `json:"exceeding_members"`
	ExceedanceProbability float64 `json:"exceedance_probability"`
	MedianDischarge       float64 `json:"median_discharge_m3s"`
	MeanDischarge         float64 `json:"mean_discharge_m3s"`
	MinDischarge          float64 `json:"min_discharge_m3s"`
	MaxDischarge          float64 `json:"max_discharge_m3s"`
	P25Discharge          float64 `json:"p25_discharge_m3s"`
	P75Discharge          float64 `json:"p75_discharge_m3s"`
	MedianExceeds         bool    `json:"median_exceeds_threshold"`
	MedianExceedancePct   float64 `json:"median_exceedance_pct"`
}

// SummarizeEnsemble filters NaN members and reduces the remainder to
// exceedance statistics. Exceedance is strict: value > threshold.
// ok is false when no valid members remain, a valid "no data" outcome that
// tells the caller to skip this cycle, not an error.
func SummarizeEnsemble(values []float64, threshold float64) (_ EnsembleStats, ok bool) {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return EnsembleStats{}, false
	}

	exceeding := 0
	for _, v := range valid {
		if v > threshold {
			exceeding++
		}
	}

	sorted := slices.Clone(valid)
	slices.Sort(sorted)
	median := percentile(sorted, 50)

	return EnsembleStats{
		TotalMembers:          len(valid),
		ExceedingMembers:      exceeding,
		ExceedanceProbability: float64(exceeding) / float64(len(valid)),
		MedianDischarge:       median,
		MeanDischarge:         stat.Mean(valid, nil),
		MinDischarge:          floats.Min(sorted),
		MaxDischarge:          floats.Max(sorted),
		P25Discharge:          percentile(sorted, 25),
		P75Discharge:          percentile(sorted, 75),
		MedianExceeds:         median > threshold,
		MedianExceedancePct:   (median/threshold - 1) * 100,
	}, true
}

// percentile linearly interpolates between order statistics at rank
// p/100*(n-1). sorted must be ascending and non-empty. This is the numpy
// "linear" convention the upstream GloFAS tooling produces, which differs
// from the estimators stat.Quantile offers.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p / 100 * float64(n-1)
	i := int(math.Floor(h))
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}
