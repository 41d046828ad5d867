package hotspot

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/crimelens/crimelens-engine/internal/models"
)

func obsAt(lat, lon float64) models.Observation {
	return models.Observation{
		Latitude:  lat,
		Longitude: lon,
		Category:  "theft",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// scatterAround places n points within roughly spreadKm of a center.
func scatterAround(rng *rand.Rand, centerLat, centerLon float64, n int, spreadKm float64) []models.Observation {
	// 1 degree latitude ~= 111 km.
	spreadDeg := spreadKm / 111.0
	out := make([]models.Observation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, obsAt(
			centerLat+(rng.Float64()*2-1)*spreadDeg,
			centerLon+(rng.Float64()*2-1)*spreadDeg,
		))
	}
	return out
}

func TestDetectRejectsBadParameters(t *testing.T) {
	table := []models.Observation{obsAt(40, -74)}
	cases := []Options{
		{Algorithm: AlgorithmDensity, RadiusKm: 0, MinNeighbors: 5},
		{Algorithm: AlgorithmDensity, RadiusKm: 1, MinNeighbors: 0},
		{Algorithm: AlgorithmPartition, K: 0},
		{Algorithm: AlgorithmPartition, K: -3},
		{Algorithm: "voronoi", K: 3},
	}
	for _, opts := range cases {
		if _, err := Detect(table, opts); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("opts %+v: expected ErrInvalidParameter, got %v", opts, err)
		}
	}
}

func TestDetectRejectsEmptyTable(t *testing.T) {
	_, err := Detect(nil, Options{Algorithm: AlgorithmDensity, RadiusKm: 1, MinNeighbors: 3})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDensityGroupsNeighborsAndMarksNoise(t *testing.T) {
	// Six points within a few hundred meters of each other, one 50 km away.
	table := scatterAround(rand.New(rand.NewSource(1)), 40.0, -74.0, 6, 0.3)
	table = append(table, obsAt(40.45, -74.0))

	assignment, err := Detect(table, Options{Algorithm: AlgorithmDensity, RadiusKm: 1, MinNeighbors: 3})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	first := assignment.Labels[0]
	if first == models.NoiseLabel {
		t.Fatalf("expected dense point in a cluster, got noise")
	}
	for i := 0; i < 6; i++ {
		if assignment.Labels[i] != first {
			t.Fatalf("expected transitive density reachability, point %d got label %d", i, assignment.Labels[i])
		}
	}
	if assignment.Labels[6] != models.NoiseLabel {
		t.Fatalf("expected isolated point to be noise, got label %d", assignment.Labels[6])
	}
}

func TestDensityTwoCentersScenario(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// Two tight groups of 50 points with centers ~5 km apart, plus 10 points
	// scattered far from both.
	table := scatterAround(rng, 40.0, -74.0, 50, 0.4)
	table = append(table, scatterAround(rng, 40.045, -74.0, 50, 0.4)...)
	for i := 0; i < 10; i++ {
		table = append(table, obsAt(40.0+float64(i+2)*0.5, -73.0-float64(i)*0.7))
	}

	assignment, err := Detect(table, Options{Algorithm: AlgorithmDensity, RadiusKm: 1, MinNeighbors: 5})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	labels := assignment.ClusterLabels()
	if len(labels) != 2 {
		t.Fatalf("expected exactly 2 hotspots, got %d (%v)", len(labels), labels)
	}
	clustered := 0
	for _, l := range labels {
		clustered += len(assignment.Members(l))
	}
	if clustered != 100 {
		t.Fatalf("expected 100 clustered points, got %d", clustered)
	}
	if assignment.NoiseCount() != 10 {
		t.Fatalf("expected 10 noise points, got %d", assignment.NoiseCount())
	}
}

func TestDensityIsDeterministic(t *testing.T) {
	table := scatterAround(rand.New(rand.NewSource(3)), 51.5, -0.12, 40, 2)
	opts := Options{Algorithm: AlgorithmDensity, RadiusKm: 0.8, MinNeighbors: 4}

	first, err := Detect(table, opts)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	second, err := Detect(table, opts)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	for i := range first.Labels {
		if first.Labels[i] != second.Labels[i] {
			t.Fatalf("labels diverged at %d: %d vs %d", i, first.Labels[i], second.Labels[i])
		}
	}
}

func TestPartitionProducesExactlyKClusters(t *testing.T) {
	table := scatterAround(rand.New(rand.NewSource(11)), 34.05, -118.25, 80, 20)

	assignment, err := Detect(table, Options{Algorithm: AlgorithmPartition, K: 5})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	labels := assignment.ClusterLabels()
	if len(labels) != 5 {
		t.Fatalf("expected 5 clusters, got %d", len(labels))
	}
	for _, l := range assignment.Labels {
		if l < 0 || l >= 5 {
			t.Fatalf("partition mode produced out-of-range label %d", l)
		}
	}

	repeat, err := Detect(table, Options{Algorithm: AlgorithmPartition, K: 5})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	for i := range assignment.Labels {
		if assignment.Labels[i] != repeat.Labels[i] {
			t.Fatalf("repeated run diverged at %d", i)
		}
	}
}

func TestPartitionCollapsesWhenKExceedsDistinctPoints(t *testing.T) {
	table := []models.Observation{obsAt(10, 10), obsAt(10, 10), obsAt(12, 12)}

	assignment, err := Detect(table, Options{Algorithm: AlgorithmPartition, K: 5})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if got := len(assignment.ClusterLabels()); got != 2 {
		t.Fatalf("expected 2 clusters for 2 distinct points, got %d", got)
	}
}

func TestSummariesSkipNoiseAndSortBySize(t *testing.T) {
	assignment := models.ClusterAssignment{
		Observations: []models.Observation{
			obsAt(10, 10), obsAt(10.001, 10.001),
			obsAt(20, 20), obsAt(20.001, 20), obsAt(20, 20.001),
			obsAt(55, 55),
		},
		Labels: []int{0, 0, 1, 1, 1, models.NoiseLabel},
	}

	summaries := Summaries(assignment)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Label != 1 || summaries[0].Count != 3 {
		t.Fatalf("expected biggest cluster first, got %+v", summaries[0])
	}
	if summaries[1].CenterLat < 9.99 || summaries[1].CenterLat > 10.01 {
		t.Fatalf("unexpected centroid %+v", summaries[1])
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Paris to London is roughly 344 km.
	d := haversineKm(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 360 {
		t.Fatalf("expected ~344 km, got %f", d)
	}
}
