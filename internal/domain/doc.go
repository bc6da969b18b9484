// Package domain models GloFAS ensemble flood forecast data and the
// trigger analysis that reduces it to alert decisions.
//
// # Data Source
//
// Forecasts are GloFAS (Global Flood Awareness System) gridded ensemble
// river-discharge fields from the Copernicus Emergency Management Service.
// An upstream converter merges the daily GRIB2 downloads into monthly
// combined files, one discharge block per forecast issue date, indexed
// [member][step][lat][lon]. Reference flood-severity grids are the GloFAS v4
// return-period threshold fields (discharge at the 2-year and 5-year return
// periods), pre-cropped to each country's bounding box.
//
// # Conventions
//
// Discharge is in m³/s. Lead-time steps are integer day offsets from the
// forecast issue date. Ensemble members are unordered and interchangeable.
// Missing values are NaN; the stores translate on-disk sentinels before data
// reaches this package.
//
// Grid lookup is nearest row and nearest column independently per axis, not
// geodesic nearest-neighbor. This matches the resolution of the source grids
// and must be reproduced exactly: the 2-year and 5-year reference grids may
// resolve to different cells when their resolutions differ.
//
// Return-period interpolation is linear in log space,
//
//	v_t = v2 + (v5 - v2) * (ln t - ln 2) / (ln 5 - ln 2)
//
// reflecting the near-log-linear relationship between return period and
// discharge magnitude in flood-frequency analysis. Targets outside [2,5]
// years extrapolate; there is no guard.
//
// # Alert classification
//
//	HIGH      exceedance probability >= configured threshold
//	MODERATE  probability >= threshold - 0.2
//	LOW       otherwise
//
// The 0.2-wide near-miss band is an operational constant, not configuration.
// Exceedance counting is strict (value > threshold). A probability threshold
// at or below 0.2 makes LOW unreachable; accepted current behavior.
//
// All functions in this package are pure: identical inputs produce identical
// outputs, which is what makes re-running an analysis idempotent.
package domain
