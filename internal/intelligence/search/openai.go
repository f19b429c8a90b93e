// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/shelfwise/shelfwise/internal/metrics"
)

// maxEmbedBatch bounds the number of inputs per provider call.
const maxEmbedBatch = 100

// RemoteEmbedderConfig configures an OpenAI-compatible embeddings endpoint.
type RemoteEmbedderConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int

	// RequestsPerSecond caps outbound calls. 0 disables the limiter.
	RequestsPerSecond float64
}

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint. Calls go
// through a circuit breaker so a failing provider degrades search to
// not-ready instead of stalling builds, and through a rate limiter to stay
// inside provider quotas.
type RemoteEmbedder struct {
	cfg     RemoteEmbedderConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[][]float32]
	limiter *rate.Limiter
	logger  zerolog.Logger
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewRemoteEmbedder creates a remote embedder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRemoteEmbedder(cfg RemoteEmbedderConfig, logger zerolog.Logger) *RemoteEmbedder {
	if cfg.Dimension <= 0 {
		switch cfg.Model {
		case "text-embedding-3-large":
			cfg.Dimension = 3072
		default:
			cfg.Dimension = 1536
		}
	}

	componentLogger := logger.With().Str("component", "embedder").Logger()

	breaker := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "embedding-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("embedding circuit breaker state change")
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &RemoteEmbedder{
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		breaker: breaker,
		limiter: limiter,
		logger:  componentLogger,
	}
}

// Dimension implements Embedder.
func (e *RemoteEmbedder) Dimension() int { return e.cfg.Dimension }

// Embed implements Embedder, batching inputs per provider call.
func (e *RemoteEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *RemoteEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	vectors, err := e.breaker.Execute(func() ([][]float32, error) {
		return e.call(ctx, texts)
	})
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.EmbeddingRequests.WithLabelValues("openai", "ok").Inc()
		return vectors, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EmbeddingRequests.WithLabelValues("openai", "breaker_open").Inc()
		return nil, fmt.Errorf("embedding provider unavailable: %w", err)
	default:
		metrics.EmbeddingRequests.WithLabelValues("openai", "error").Inc()
		return nil, err
	}
}

func (e *RemoteEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Input: texts, Model: e.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding provider error: %s", parsed.Error.Message)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding provider returned no vector for input %d", i)
		}
	}
	return vectors, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
