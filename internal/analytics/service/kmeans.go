package service

import (
	"math"
	"math/rand"
)

// clusterSeed fixes the centroid initialization so repeated builds over the
// same snapshot produce identical segment assignments.
const clusterSeed = 42

const maxClusterIterations = 100

// kMeans partitions the feature rows into k clusters and returns the cluster
// index per row. Rows must already be normalized; Lloyd iterations run until
// assignments stabilize or the iteration cap is hit.
func kMeans(rows [][]float64, k int) []int {
	if len(rows) == 0 {
		return nil
	}
	if k > len(rows) {
		k = len(rows)
	}

	rng := rand.New(rand.NewSource(clusterSeed))
	perm := rng.Perm(len(rows))

	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), rows[perm[i]]...)
	}

	assignments := make([]int, len(rows))
	for iter := 0; iter < maxClusterIterations; iter++ {
		changed := false
		for i, row := range rows {
			best := nearestCentroid(row, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(rows, assignments, centroids)
	}
	return assignments
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best, bestDist := 0, -1.0
	for c, centroid := range centroids {
		var dist float64
		for j := range row {
			d := row[j] - centroid[j]
			dist += d * d
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

func recomputeCentroids(rows [][]float64, assignments []int, centroids [][]float64) {
	dims := len(rows[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, row := range rows {
		c := assignments[i]
		counts[c]++
		for j := range row {
			sums[c][j] += row[j]
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue // empty cluster keeps its previous centroid
		}
		for j := 0; j < dims; j++ {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

// normalize scales each feature column to zero mean and unit variance.
// Constant columns are left at zero so they do not dominate distances.
func normalize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return rows
	}
	dims := len(rows[0])
	mean := make([]float64, dims)
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}

	variance := make([]float64, dims)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			variance[j] += d * d
		}
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, dims)
		for j, v := range row {
			sd := variance[j] / float64(len(rows))
			if sd > 0 {
				out[i][j] = (v - mean[j]) / math.Sqrt(sd)
			}
		}
	}
	return out
}
