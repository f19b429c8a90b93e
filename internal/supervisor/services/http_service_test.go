// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// fakeServer blocks in ListenAndServe until Shutdown is called or a
// startup error is injected.
type fakeServer struct {
	startErr    error
	shutdownErr error
	closed      chan struct{}
	shutdowns   int
}

func newFakeServer() *fakeServer {
	return &fakeServer{closed: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns++
	close(f.closed)
	return f.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the listener goroutine start before canceling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("address already in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.startErr) {
		t.Errorf("Serve() error = %v, want wrapped startup error", err)
	}
	if srv.shutdowns != 0 {
		t.Errorf("shutdowns = %d, want 0 on startup failure", srv.shutdowns)
	}
}

func TestHTTPServiceShutdownFailure(t *testing.T) {
	srv := newFakeServer()
	srv.shutdownErr = errors.New("connections still draining")
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil || !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve() error = %v, want wrapped shutdown error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestHTTPServiceString(t *testing.T) {
	if got := NewHTTPService(newFakeServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q, want http-server", got)
	}
}
