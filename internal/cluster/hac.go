package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// averageLinkage runs agglomerative clustering with average linkage over a
// precomputed distance matrix until k clusters remain. It returns the
// member indices of each cluster, ordered by smallest member, members
// ascending.
//
// Distances between merged clusters follow the Lance-Williams update for
// UPGMA. Ties merge the lowest (i, j) pair first.
func averageLinkage(d mat.Symmetric, k int) ([][]int, error) {
	n := d.SymmetricDim()
	if k < 1 || k > n {
		return nil, fmt.Errorf("cannot cut %d points into %d clusters", n, k)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			v := d.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite distance at (%d, %d)", i, j)
			}
			dist[i][j] = v
		}
	}

	members := make([][]int, n)
	active := make([]bool, n)
	for i := range members {
		members[i] = []int{i}
		active[i] = true
	}

	for remaining := n; remaining > k; remaining-- {
		a, b := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && dist[i][j] < best {
					best, a, b = dist[i][j], i, j
				}
			}
		}
		if a < 0 {
			return nil, fmt.Errorf("no mergeable pair with %d clusters left", remaining)
		}

		na, nb := float64(len(members[a])), float64(len(members[b]))
		for x := 0; x < n; x++ {
			if !active[x] || x == a || x == b {
				continue
			}
			v := (na*dist[a][x] + nb*dist[b][x]) / (na + nb)
			dist[a][x], dist[x][a] = v, v
		}
		members[a] = mergeSorted(members[a], members[b])
		members[b] = nil
		active[b] = false
	}

	// Slot a holds the smallest index of its cluster, so slot order is
	// smallest-member order.
	clusters := make([][]int, 0, k)
	for i := 0; i < n; i++ {
		if active[i] {
			clusters = append(clusters, members[i])
		}
	}
	return clusters, nil
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
