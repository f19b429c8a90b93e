// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package search

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns texts into fixed-dimension vectors. Implementations must
// be deterministic for identical inputs: the index build relies on it.
type Embedder interface {
	// Embed returns one vector per input text, co-indexed with texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector width every Embed result uses.
	Dimension() int
}

// LocalEmbedder is a deterministic offline embedder. Tokens are hashed into
// dimension buckets with a signed feature-hashing trick and the result is
// L2-normalized. It needs no network and no model files, which makes it the
// default provider and the fixture for tests.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a hashing embedder of the given width.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalEmbedder{dimension: dimension}
}

// Dimension implements Embedder.
func (e *LocalEmbedder) Dimension() int { return e.dimension }

// Embed implements Embedder.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()

		bucket := int(sum % uint32(e.dimension)) //nolint:gosec // dimension is small and positive
		// One hash bit decides the sign so collisions partially cancel
		// instead of always accumulating.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}

		// Token bigram-of-characters bucket adds positional variety for
		// short catalog texts.
		if len(tok) >= 2 {
			h2 := fnv.New32a()
			_, _ = h2.Write([]byte(tok[:2]))
			vec[int(h2.Sum32()%uint32(e.dimension))] += 0.5 //nolint:gosec // dimension is small and positive
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
