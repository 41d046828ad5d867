package models

import (
	"sort"
	"time"
)

// NoiseLabel marks observations left outside every cluster by density
// detection. It is never a real hotspot.
const NoiseLabel = -1

// ClusterAssignment maps each observation of one detection run to a cluster
// label. A later run supersedes it wholesale; there is no merge semantics.
type ClusterAssignment struct {
	Observations []Observation `json:"observations"`
	Labels       []int         `json:"labels"`
	Algorithm    string        `json:"algorithm"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Members returns the observations carrying the given label, in input order.
func (a ClusterAssignment) Members(label int) []Observation {
	out := make([]Observation, 0)
	for i, l := range a.Labels {
		if l == label {
			out = append(out, a.Observations[i])
		}
	}
	return out
}

// ClusterLabels returns the sorted distinct non-noise labels.
func (a ClusterAssignment) ClusterLabels() []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, l := range a.Labels {
		if l == NoiseLabel {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// NoiseCount returns how many observations were labeled as noise.
func (a ClusterAssignment) NoiseCount() int {
	n := 0
	for _, l := range a.Labels {
		if l == NoiseLabel {
			n++
		}
	}
	return n
}

// ClusterSummary describes one hotspot for map rendering and reporting.
type ClusterSummary struct {
	Label     int     `json:"label"`
	Count     int     `json:"count"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// DailyCount is one day of a cluster's incident series.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// DailySeries is a gap-free per-day incident count series for one cluster,
// covering every calendar day from the cluster's earliest to latest
// observation. Days without observations are present with count zero so a
// weekly seasonal model reads the 7-day period correctly.
type DailySeries []DailyCount

// Counts returns the series values as floats for model fitting.
func (s DailySeries) Counts() []float64 {
	out := make([]float64, len(s))
	for i, dc := range s {
		out[i] = float64(dc.Count)
	}
	return out
}

// Total returns the sum of all daily counts.
func (s DailySeries) Total() int {
	total := 0
	for _, dc := range s {
		total += dc.Count
	}
	return total
}

// ForecastPoint carries the point estimate and 95% interval for one future day.
type ForecastPoint struct {
	Day      time.Time `json:"day"`
	Forecast float64   `json:"forecast"`
	Lower    float64   `json:"lower_ci"`
	Upper    float64   `json:"upper_ci"`
}

// ForecastResult is the outcome of one forecasting attempt. Available is
// false when the series was too short or the model failed to converge; both
// are normal, retryable outcomes rather than pipeline errors.
type ForecastResult struct {
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	Label     int             `json:"label"`
	Horizon   int             `json:"horizon"`
	Points    []ForecastPoint `json:"points,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Unavailable constructs a terminal-but-recoverable forecast outcome.
func Unavailable(label, horizon int, reason string) ForecastResult {
	return ForecastResult{
		Available: false,
		Reason:    reason,
		Label:     label,
		Horizon:   horizon,
		CreatedAt: time.Now().UTC(),
	}
}
