// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package predictor

import "sort"

// LabelEncoder maps category strings to ordinals. Classes are assigned in
// sorted order at fit time; values unseen during fitting encode to 0.
// Exported fields for gob persistence inside the model artifact.
type LabelEncoder struct {
	Classes map[string]int
}

// FitLabelEncoder learns the class set from values.
func FitLabelEncoder(values []string) *LabelEncoder {
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}

	sorted := make([]string, 0, len(distinct))
	for v := range distinct {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	classes := make(map[string]int, len(sorted))
	for i, v := range sorted {
		classes[v] = i
	}
	return &LabelEncoder{Classes: classes}
}

// Encode returns the ordinal for value, or 0 when unseen.
func (e *LabelEncoder) Encode(value string) float64 {
	if e == nil {
		return 0
	}
	if code, ok := e.Classes[value]; ok {
		return float64(code)
	}
	return 0
}
