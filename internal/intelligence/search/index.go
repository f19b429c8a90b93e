// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package search

import "sort"

// flatIndex is an exact nearest-neighbor index over squared L2 distance.
// Vectors are keyed by insertion ordinal. Exhaustive scan is fine at
// library-catalog scale; an approximate index would only pay off orders of
// magnitude beyond it.
type flatIndex struct {
	dimension int
	vectors   [][]float32
}

func newFlatIndex(dimension int) *flatIndex {
	return &flatIndex{dimension: dimension}
}

// add appends vectors, assigning consecutive ordinals.
func (ix *flatIndex) add(vectors [][]float32) {
	ix.vectors = append(ix.vectors, vectors...)
}

func (ix *flatIndex) len() int { return len(ix.vectors) }

// neighbor is one search hit: the ordinal and its squared L2 distance.
type neighbor struct {
	ordinal  int
	distance float64
}

// search returns the k nearest vectors to query, ascending by distance.
// Ties keep ordinal order.
func (ix *flatIndex) search(query []float32, k int) []neighbor {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}

	hits := make([]neighbor, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits[i] = neighbor{ordinal: i, distance: squaredL2(query, vec)}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// squaredL2 returns the squared euclidean distance. Vectors shorter than
// the other are treated as zero-padded.
func squaredL2(a, b []float32) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	for i := len(a); i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}
	return sum
}
