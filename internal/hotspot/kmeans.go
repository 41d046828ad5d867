package hotspot

import (
	"math"
	"math/rand"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// Seed for centroid initialisation. Fixed so repeated runs with identical
// input and parameters produce identical assignments.
const kmeansSeed = 42

const kmeansMaxIterations = 100

// kmeans partitions points into k clusters on the raw coordinate plane with
// k-means++ seeding and Lloyd iterations. Every point gets a non-negative
// label; when k exceeds the number of distinct coordinates, the cluster count
// collapses to that distinct count.
func kmeans(table []models.Observation, k int) []int {
	points := make([][2]float64, len(table))
	distinct := make(map[[2]float64]struct{}, len(table))
	for i, obs := range table {
		points[i] = [2]float64{obs.Latitude, obs.Longitude}
		distinct[points[i]] = struct{}{}
	}
	if k > len(distinct) {
		k = len(distinct)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := seedCentroids(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := squaredDist(p, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[labels[i]][0] += p[0]
			sums[labels[i]][1] += p[1]
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an emptied cluster on the point farthest from its centroid.
				centroids[c] = farthestPoint(points, labels, centroids)
				changed = true
				continue
			}
			centroids[c] = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
		}

		if !changed && iter > 0 {
			break
		}
	}

	fillEmptyClusters(points, labels, centroids)
	return labels
}

// fillEmptyClusters guarantees every one of the k labels has at least one
// member by donating the worst-fitting point from a multi-member cluster.
func fillEmptyClusters(points [][2]float64, labels []int, centroids [][2]float64) {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		donor, donorDist := -1, -1.0
		for i, p := range points {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := squaredDist(p, centroids[labels[i]]); d > donorDist {
				donor, donorDist = i, d
			}
		}
		if donor < 0 {
			continue
		}
		counts[labels[donor]]--
		labels[donor] = c
		counts[c]++
	}
}

// seedCentroids picks initial centroids k-means++ style: the first uniformly,
// the rest weighted by squared distance to the nearest chosen centroid.
func seedCentroids(points [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	centroids := make([][2]float64, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if sd := squaredDist(p, c); sd < d {
					d = sd
				}
			}
			dists[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with a centroid; fall back to
			// uniform choice to keep the requested count.
			centroids = append(centroids, points[rng.Intn(len(points))])
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}
	return centroids
}

func farthestPoint(points [][2]float64, labels []int, centroids [][2]float64) [2]float64 {
	best, bestDist := points[0], -1.0
	for i, p := range points {
		if d := squaredDist(p, centroids[labels[i]]); d > bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func squaredDist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
