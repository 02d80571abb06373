// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cluster assigns rows of numeric data to clusters.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// DefaultMaxIter is the iteration limit used when KMeans.MaxIter is 0.
const DefaultMaxIter = 300

// KMeans partitions points into K clusters with Lloyd's algorithm,
// seeded by k-means++.
type KMeans struct {
	K int
	// MaxIter bounds the number of assignment/update rounds.
	MaxIter int
	// Seed seeds the random choice of initial centers, so equal
	// inputs give equal labels.
	Seed int64

	// Centroids and Inertia are set by FitPredict. Inertia is the
	// sum of squared distances from each point to its centroid.
	Centroids [][]float64
	Inertia   float64
}

// FitPredict clusters rows and returns the cluster of each row, in
// [0, K). Every row must have the same, non-zero number of finite
// values.
func (m *KMeans) FitPredict(rows [][]float64) ([]int, error) {
	if m.K < 1 {
		return nil, fmt.Errorf("number of clusters must be at least 1, got %d", m.K)
	}
	n := len(rows)
	if n == 0 {
		return nil, errors.New("no rows to cluster")
	}
	if n < m.K {
		return nil, fmt.Errorf("cannot form %d clusters from %d rows", m.K, n)
	}
	p := len(rows[0])
	if p == 0 {
		return nil, errors.New("rows have no values")
	}
	for i, row := range rows {
		if len(row) != p {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), p)
		}
		for _, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("row %d has a non-finite value", i)
			}
		}
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.Centroids = initCenters(rows, m.K, rng)

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	for it := 0; it < maxIter; it++ {
		changed := m.assign(rows, assign)

		// Move each centroid to the mean of its points. A
		// centroid with no points stays where it is.
		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, row := range rows {
			k := assign[i]
			counts[k]++
			for j, x := range row {
				sums[k][j] += x
			}
		}
		for k := range sums {
			if counts[k] == 0 {
				continue
			}
			for j := range sums[k] {
				m.Centroids[k][j] = sums[k][j] / float64(counts[k])
			}
		}

		if !changed {
			break
		}
	}

	m.Inertia = 0
	for i, row := range rows {
		m.Inertia += distSquared(row, m.Centroids[assign[i]])
	}
	return assign, nil
}

// assign sets assign[i] to the nearest centroid of rows[i] and
// reports whether any assignment changed. Rows are split across
// GOMAXPROCS workers.
func (m *KMeans) assign(rows [][]float64, assign []int) bool {
	n := len(rows)
	workers := runtime.GOMAXPROCS(0)
	per := (n + workers - 1) / workers
	changed := make([]bool, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start, end := w*per, (w+1)*per
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				best := nearest(rows[i], m.Centroids)
				if assign[i] != best {
					assign[i] = best
					changed[w] = true
				}
			}
		}(w, start, end)
	}
	wg.Wait()
	for _, c := range changed {
		if c {
			return true
		}
	}
	return false
}

func nearest(x []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for k, c := range centers {
		if d := distSquared(x, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

func distSquared(a, b []float64) float64 {
	d := 0.0
	for j := range a {
		dx := a[j] - b[j]
		d += dx * dx
	}
	return d
}

// initCenters picks k initial centers with k-means++: the first
// uniformly, each further one with probability proportional to its
// squared distance from the nearest center already chosen.
func initCenters(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), rows[rng.Intn(len(rows))]...))

	dist := make([]float64, len(rows))
	for len(centers) < k {
		total := 0.0
		for i, row := range rows {
			dist[i] = distSquared(row, centers[nearest(row, centers)])
			total += dist[i]
		}
		pick := len(rows) - 1
		if total > 0 {
			r := rng.Float64() * total
			cum := 0.0
			for i, d := range dist {
				cum += d
				if cum >= r && d > 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(len(rows))
		}
		centers = append(centers, append([]float64(nil), rows[pick]...))
	}
	return centers
}
