// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package recommender

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "lowercases and splits punctuation",
			doc:  "The Name of the Wind!",
			want: []string{"name", "wind"},
		},
		{
			name: "drops stop words and single chars",
			doc:  "a tale of two cities",
			want: []string{"tale", "two", "cities"},
		},
		{
			name: "empty document",
			doc:  "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.doc, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFitProducesNormalizedVectors(t *testing.T) {
	v := NewVectorizer(10000)
	vectors := v.Fit([]string{
		"dragons and swords in a fantasy kingdom",
		"spaceships exploring distant galaxies",
		"dragons guarding ancient treasure",
	})

	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}

	for i, vec := range vectors {
		var norm float64
		for _, val := range vec {
			norm += val * val
		}
		if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
			t.Errorf("vector %d norm = %f, want 1", i, math.Sqrt(norm))
		}
	}

	// Documents sharing "dragons" are more similar to each other than to
	// the unrelated one.
	if Dot(vectors[0], vectors[2]) <= Dot(vectors[0], vectors[1]) {
		t.Error("dragon documents not more similar than unrelated pair")
	}
}

func TestFitCapsVocabulary(t *testing.T) {
	v := NewVectorizer(3)
	v.Fit([]string{
		"alpha alpha alpha beta beta gamma delta epsilon",
	})

	if len(v.Vocabulary) != 3 {
		t.Fatalf("vocabulary size = %d, want 3", len(v.Vocabulary))
	}
	// The most frequent terms survive the cap.
	if _, ok := v.Vocabulary["alpha"]; !ok {
		t.Error("most frequent term missing from capped vocabulary")
	}
	if _, ok := v.Vocabulary["beta"]; !ok {
		t.Error("second most frequent term missing from capped vocabulary")
	}
}

func TestFitIsDeterministic(t *testing.T) {
	docs := []string{
		"dragons and swords in a fantasy kingdom",
		"spaceships exploring distant galaxies",
		"murder mystery in a quiet village",
	}

	a := NewVectorizer(10000)
	b := NewVectorizer(10000)
	va := a.Fit(docs)
	vb := b.Fit(docs)

	for i := range va {
		for col, val := range va[i] {
			if math.Abs(vb[i][col]-val) > 1e-12 {
				t.Fatalf("vector %d differs between identical fits", i)
			}
		}
	}
}

func TestTransformIgnoresUnknownTerms(t *testing.T) {
	v := NewVectorizer(10000)
	v.Fit([]string{"dragons fantasy kingdom"})

	vec := v.Transform("quantum chromodynamics dragons")
	if len(vec) != 1 {
		t.Fatalf("got %d components, want 1 (only the known term)", len(vec))
	}
}

func TestDotIdenticalVectorsIsOne(t *testing.T) {
	v := NewVectorizer(10000)
	vectors := v.Fit([]string{"dragons fantasy kingdom", "dragons fantasy kingdom"})

	if got := Dot(vectors[0], vectors[1]); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Dot(identical docs) = %f, want 1", got)
	}
}
