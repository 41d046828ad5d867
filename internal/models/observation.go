package models

import (
	"sort"
	"time"
)

// Observation is a single geocoded incident record. Rows with missing
// coordinates or unparsable timestamps never make it past the loader, so
// every Observation held in memory is valid.
type Observation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Day returns the observation's calendar day truncated to midnight UTC.
func (o Observation) Day() time.Time {
	return time.Date(o.Timestamp.Year(), o.Timestamp.Month(), o.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
}

// Dataset holds one uploaded incident table for the duration of a session.
type Dataset struct {
	Name         string        `json:"name"`
	Hash         string        `json:"hash"`
	Observations []Observation `json:"observations"`
	Dropped      int           `json:"dropped"`
	LoadedAt     time.Time     `json:"loaded_at"`
}

// DateRange returns the earliest and latest observation days in the dataset.
func (d Dataset) DateRange() (time.Time, time.Time) {
	if len(d.Observations) == 0 {
		return time.Time{}, time.Time{}
	}
	min, max := d.Observations[0].Day(), d.Observations[0].Day()
	for _, obs := range d.Observations[1:] {
		day := obs.Day()
		if day.Before(min) {
			min = day
		}
		if day.After(max) {
			max = day
		}
	}
	return min, max
}

// Categories returns the sorted set of distinct incident categories.
func Categories(observations []Observation) []string {
	seen := make(map[string]struct{}, len(observations))
	out := make([]string, 0)
	for _, obs := range observations {
		if _, ok := seen[obs.Category]; ok {
			continue
		}
		seen[obs.Category] = struct{}{}
		out = append(out, obs.Category)
	}
	sort.Strings(out)
	return out
}

// Filter narrows a dataset by category membership and an inclusive day range.
// Zero values leave the corresponding dimension unfiltered.
type Filter struct {
	Categories []string  `json:"categories"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Apply returns the observations matching the filter, preserving input order.
func (f Filter) Apply(observations []Observation) []Observation {
	var allowed map[string]struct{}
	if len(f.Categories) > 0 {
		allowed = make(map[string]struct{}, len(f.Categories))
		for _, c := range f.Categories {
			allowed[c] = struct{}{}
		}
	}

	out := make([]Observation, 0, len(observations))
	for _, obs := range observations {
		if allowed != nil {
			if _, ok := allowed[obs.Category]; !ok {
				continue
			}
		}
		day := obs.Day()
		if !f.Start.IsZero() && day.Before(dayOf(f.Start)) {
			continue
		}
		if !f.End.IsZero() && day.After(dayOf(f.End)) {
			continue
		}
		out = append(out, obs)
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
