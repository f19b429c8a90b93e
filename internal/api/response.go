// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/shelfwise/shelfwise/internal/logging"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status   string      `json:"status"` // "ok" or "error"
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	LatencyMS int64     `json:"latency_ms"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used across handlers.
const (
	codeValidation = "validation_error"
	codeNotFound   = "not_found"
	codeInternal   = "internal_error"
)

// respondJSON writes the envelope with status ok.
func respondJSON(w http.ResponseWriter, status int, start time.Time, data interface{}) {
	writeEnvelope(w, status, &APIResponse{
		Status: "ok",
		Data:   data,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			LatencyMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError writes an error envelope. err is logged, not exposed.
func respondError(w http.ResponseWriter, status int, start time.Time, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("api error")
	}
	writeEnvelope(w, status, &APIResponse{
		Status: "error",
		Error:  &APIError{Code: code, Message: message},
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			LatencyMS: time.Since(start).Milliseconds(),
		},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("marshal api response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("write api response")
	}
}
