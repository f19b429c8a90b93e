// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

// blockingService signals once running and blocks until canceled.
type blockingService struct {
	started chan struct{}
}

func (s *blockingService) Serve(ctx context.Context) error {
	select {
	case <-s.started:
	default:
		close(s.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return "blocking-service" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.FailureDecay != 30.0 {
		t.Errorf("failure params = %v/%v, want 5/30", cfg.FailureThreshold, cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("timings = %v/%v, want 15s/10s", cfg.FailureBackoff, cfg.ShutdownTimeout)
	}
}

func TestTreeServesAndStops(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})

	intel := &blockingService{started: make(chan struct{})}
	api := &blockingService{started: make(chan struct{})}
	tree.AddIntelligenceService(intel)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	for _, svc := range []*blockingService{intel, api} {
		select {
		case <-svc.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not start", svc)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}

	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(unstopped) != 0 {
		t.Errorf("unstopped services = %v, want none", unstopped)
	}
}

func TestTreeZeroConfigGetsDefaults(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("threshold = %v, want default 5.0", tree.config.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}
