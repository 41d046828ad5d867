// Package hotspot assigns incident observations to spatial clusters. Two
// algorithms are offered: density clustering under great-circle distance,
// which leaves isolated points out as noise, and partition clustering with a
// fixed target cluster count.
package hotspot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// Detection errors. ErrInvalidInput covers malformed or empty tables,
// ErrInvalidParameter covers out-of-range algorithm parameters. Both abort
// only the requested run; any prior assignment stays valid.
var (
	ErrInvalidInput     = errors.New("invalid observation table")
	ErrInvalidParameter = errors.New("invalid detection parameter")
)

// Algorithm names accepted by Detect.
const (
	AlgorithmDensity   = "density"
	AlgorithmPartition = "partition"
)

// Options selects the clustering algorithm and its parameters. RadiusKm and
// MinNeighbors apply to density mode, K to partition mode.
type Options struct {
	Algorithm    string
	RadiusKm     float64
	MinNeighbors int
	K            int
}

func (o Options) validate() error {
	switch o.Algorithm {
	case AlgorithmDensity:
		if o.RadiusKm <= 0 {
			return fmt.Errorf("%w: radius_km must be positive, got %g", ErrInvalidParameter, o.RadiusKm)
		}
		if o.MinNeighbors <= 0 {
			return fmt.Errorf("%w: min_neighbors must be positive, got %d", ErrInvalidParameter, o.MinNeighbors)
		}
	case AlgorithmPartition:
		if o.K <= 0 {
			return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidParameter, o.K)
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParameter, o.Algorithm)
	}
	return nil
}

// Detect labels every observation in the table with a cluster id. It is a
// pure function of the table and options: identical input ordering and
// parameters yield identical assignments.
func Detect(table []models.Observation, opts Options) (models.ClusterAssignment, error) {
	if err := opts.validate(); err != nil {
		return models.ClusterAssignment{}, err
	}
	if len(table) == 0 {
		return models.ClusterAssignment{}, fmt.Errorf("%w: empty table", ErrInvalidInput)
	}
	for i, obs := range table {
		if obs.Latitude < -90 || obs.Latitude > 90 || obs.Longitude < -180 || obs.Longitude > 180 {
			return models.ClusterAssignment{}, fmt.Errorf("%w: row %d has coordinates out of range", ErrInvalidInput, i)
		}
	}

	var labels []int
	switch opts.Algorithm {
	case AlgorithmDensity:
		labels = dbscan(table, opts.RadiusKm, opts.MinNeighbors)
	case AlgorithmPartition:
		labels = kmeans(table, opts.K)
	}

	return models.ClusterAssignment{
		Observations: append([]models.Observation(nil), table...),
		Labels:       labels,
		Algorithm:    opts.Algorithm,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Summaries reduces an assignment to per-cluster size and centroid, largest
// first. Noise is never summarised.
func Summaries(a models.ClusterAssignment) []models.ClusterSummary {
	out := make([]models.ClusterSummary, 0)
	for _, label := range a.ClusterLabels() {
		members := a.Members(label)
		if len(members) == 0 {
			continue
		}
		var sumLat, sumLon float64
		for _, obs := range members {
			sumLat += obs.Latitude
			sumLon += obs.Longitude
		}
		out = append(out, models.ClusterSummary{
			Label:     label,
			Count:     len(members),
			CenterLat: sumLat / float64(len(members)),
			CenterLon: sumLon / float64(len(members)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
