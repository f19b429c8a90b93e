// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package recommender

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// SparseVector is an L2-normalized term-weight vector keyed by vocabulary
// index.
type SparseVector map[int]float64

// Vectorizer holds a fitted TF-IDF term space. Fields are exported for gob
// persistence inside the model artifact.
type Vectorizer struct {
	// Vocabulary maps term to column index.
	Vocabulary map[string]int

	// IDF is the smoothed inverse document frequency per column:
	// ln((1+n)/(1+df)) + 1.
	IDF []float64

	// MaxVocabulary caps the term space, keeping the most frequent terms.
	MaxVocabulary int
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(maxVocabulary int) *Vectorizer {
	if maxVocabulary <= 0 {
		maxVocabulary = 10000
	}
	return &Vectorizer{MaxVocabulary: maxVocabulary}
}

// Fit learns the vocabulary and IDF weights from docs and returns one
// normalized vector per document, co-indexed with docs.
func (v *Vectorizer) Fit(docs []string) []SparseVector {
	tokenized := make([][]string, len(docs))
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		tokens := tokenize(doc)
		tokenized[i] = tokens

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	v.Vocabulary = buildVocabulary(termFreq, v.MaxVocabulary)

	n := float64(len(docs))
	v.IDF = make([]float64, len(v.Vocabulary))
	for term, col := range v.Vocabulary {
		v.IDF[col] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make([]SparseVector, len(docs))
	for i, tokens := range tokenized {
		vectors[i] = v.vectorize(tokens)
	}
	return vectors
}

// Transform vectorizes a document against the fitted vocabulary. Terms
// outside the vocabulary are ignored.
func (v *Vectorizer) Transform(doc string) SparseVector {
	return v.vectorize(tokenize(doc))
}

// vectorize counts in-vocabulary terms, applies IDF, and L2-normalizes.
func (v *Vectorizer) vectorize(tokens []string) SparseVector {
	vec := make(SparseVector)
	for _, tok := range tokens {
		if col, ok := v.Vocabulary[tok]; ok {
			vec[col]++
		}
	}

	var norm float64
	for col := range vec {
		vec[col] *= v.IDF[col]
		norm += vec[col] * vec[col]
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for col := range vec {
		vec[col] /= norm
	}
	return vec
}

// buildVocabulary assigns column indices to the most frequent terms. Ties
// break alphabetically so fitting is deterministic.
func buildVocabulary(termFreq map[string]int, limit int) map[string]int {
	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}

	// Column order is alphabetical over the kept terms, again for
	// deterministic fits.
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	return vocab
}

// Dot returns the dot product of two sparse vectors. For L2-normalized
// vectors this is the cosine similarity.
func Dot(a, b SparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for col, val := range a {
		sum += val * b[col]
	}
	return sum
}

// tokenize lowercases, splits on non-alphanumeric runes, and drops stop
// words and single characters.
func tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// stopWords is the english stop word list applied during tokenization.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"few", "for", "from", "further", "had", "has", "have", "having",
		"he", "her", "here", "hers", "herself", "him", "himself", "his",
		"how", "i", "if", "in", "into", "is", "it", "its", "itself", "me",
		"more", "most", "my", "myself", "no", "nor", "not", "of", "off",
		"on", "once", "only", "or", "other", "our", "ours", "ourselves",
		"out", "over", "own", "same", "she", "should", "so", "some", "such",
		"than", "that", "the", "their", "theirs", "them", "themselves",
		"then", "there", "these", "they", "this", "those", "through", "to",
		"too", "under", "until", "up", "very", "was", "we", "were", "what",
		"when", "where", "which", "while", "who", "whom", "why", "with",
		"would", "you", "your", "yours", "yourself", "yourselves",
	} {
		stopWords[w] = struct{}{}
	}
}
