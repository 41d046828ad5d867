package hotspot

import "github.com/crimelens/crimelens-engine/internal/models"

// dbscan labels points by density reachability under great-circle distance.
// A point is core when at least minNeighbors other points lie within radiusKm
// of it; clusters grow outward from core points in input order, so the
// labeling is deterministic for a fixed table. Points neither core nor
// reachable from one stay at models.NoiseLabel.
func dbscan(table []models.Observation, radiusKm float64, minNeighbors int) []int {
	n := len(table)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = models.NoiseLabel
	}

	neighborhoods := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if haversineKm(table[i].Latitude, table[i].Longitude, table[j].Latitude, table[j].Longitude) <= radiusKm {
				neighborhoods[i] = append(neighborhoods[i], j)
				neighborhoods[j] = append(neighborhoods[j], i)
			}
		}
	}

	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		if len(neighborhoods[i]) < minNeighbors {
			continue // noise unless later reached from a core point
		}

		labels[i] = next
		queue := append([]int(nil), neighborhoods[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]

			if labels[p] == models.NoiseLabel {
				labels[p] = next // border point adopted by the cluster
			}
			if visited[p] {
				continue
			}
			visited[p] = true
			labels[p] = next
			if len(neighborhoods[p]) >= minNeighbors {
				queue = append(queue, neighborhoods[p]...)
			}
		}
		next++
	}

	return labels
}
