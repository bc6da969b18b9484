package domain

// AlertLevel is the categorical classification of one station's exceedance
// probability for one forecast cycle.
type AlertLevel string

const (
	AlertHigh     AlertLevel = "HIGH"
	AlertModerate AlertLevel = "MODERATE"
	AlertLow      AlertLevel = "LOW"
)

// Severity orders alert levels for aggregation: LOW < MODERATE < HIGH.
func (l AlertLevel) Severity() int {
	switch l {
	case AlertHigh:
		return 2
	case AlertModerate:
		return 1
	default:
		return 0
	}
}

// nearMissBand widens MODERATE to 0.2 below the HIGH threshold. Fixed by
// operational policy; thresholds <= 0.2 make LOW unreachable.
const nearMissBand = 0.2

// ClassifyAlert maps an exceedance probability and the configured
// probability threshold to an alert level.
func ClassifyAlert(probability, probabilityThreshold float64) AlertLevel {
	switch {
	case probability >= probabilityThreshold:
		return AlertHigh
	case probability >= probabilityThreshold-nearMissBand:
		return AlertModerate
	default:
		return AlertLow
	}
}
