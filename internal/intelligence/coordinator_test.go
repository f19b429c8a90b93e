// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package intelligence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// fakeComponent is a scriptable Component for coordinator tests.
type fakeComponent struct {
	name       string
	mu         sync.Mutex
	ready      bool
	restoreErr error
	buildErr   error
	builds     int
	restores   int
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeComponent) Restore(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.ready = true
	return nil
}

func (f *fakeComponent) Build(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	if f.buildErr != nil {
		return f.buildErr
	}
	f.ready = true
	return nil
}

func (f *fakeComponent) Status() ComponentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ComponentStatus{Name: f.name, Ready: f.ready}
}

func (f *fakeComponent) buildCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

func newTestCoordinator(cfg CoordinatorConfig) (*Coordinator, *gochannel.GoChannel) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	return NewCoordinator(cfg, bus, bus, zerolog.Nop()), bus
}

func TestInitializeAllRestoresBeforeBuilding(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{BuildOnStartup: true})
	comp := &fakeComponent{name: ComponentRecommender}
	coord.Register(comp)

	if err := coord.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll() error = %v", err)
	}

	if comp.restores != 1 {
		t.Errorf("restores = %d, want 1", comp.restores)
	}
	if comp.buildCount() != 0 {
		t.Errorf("builds = %d, want 0 after successful restore", comp.buildCount())
	}
	if !coord.AllReady() {
		t.Error("AllReady() = false, want true")
	}
}

func TestInitializeAllBuildsWhenArtifactMissing(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{BuildOnStartup: true})
	comp := &fakeComponent{name: ComponentSearch, restoreErr: ErrArtifactCorrupt}
	coord.Register(comp)

	if err := coord.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll() error = %v", err)
	}

	if comp.buildCount() != 1 {
		t.Errorf("builds = %d, want 1 after corrupt artifact", comp.buildCount())
	}
	if !comp.Ready() {
		t.Error("component not ready after rebuild")
	}
}

func TestInitializeAllIsolatesFailures(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{BuildOnStartup: true})
	broken := &fakeComponent{
		name:       ComponentPredictor,
		restoreErr: errors.New("disk on fire"),
		buildErr:   ErrInsufficientData,
	}
	healthy := &fakeComponent{name: ComponentRecommender}
	coord.Register(broken)
	coord.Register(healthy)

	if err := coord.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll() error = %v", err)
	}

	ready := coord.Ready()
	if ready[ComponentPredictor] {
		t.Error("broken component reported ready")
	}
	if !ready[ComponentRecommender] {
		t.Error("healthy component not ready")
	}
	if coord.AllReady() {
		t.Error("AllReady() = true with a failed component")
	}
	if !coord.Initialized() {
		t.Error("Initialized() = false after startup pass")
	}
}

func TestRunProcessesRebuildTrigger(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{BuildOnStartup: false})
	recommender := &fakeComponent{name: ComponentRecommender, restoreErr: ErrArtifactCorrupt}
	search := &fakeComponent{name: ComponentSearch, restoreErr: ErrArtifactCorrupt}
	coord.Register(recommender)
	coord.Register(search)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	// Wait for the startup pass so the subscription is live.
	deadline := time.After(2 * time.Second)
	for !coord.Initialized() {
		select {
		case <-deadline:
			t.Fatal("coordinator never initialized")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := coord.RequestRebuild(ComponentSearch, "admin"); err != nil {
		t.Fatalf("RequestRebuild() error = %v", err)
	}

	deadline = time.After(2 * time.Second)
	for search.buildCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("rebuild trigger never processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if recommender.buildCount() != 0 {
		t.Errorf("recommender builds = %d, want 0 for targeted rebuild", recommender.buildCount())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRequestRebuildRejectsUnknownComponent(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{})
	coord.Register(&fakeComponent{name: ComponentRecommender})

	err := coord.RequestRebuild("astrology", "admin")
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("RequestRebuild() error = %v, want ErrUnknownEntity", err)
	}
}

func TestAllReadyRequiresComponents(t *testing.T) {
	coord, _ := newTestCoordinator(CoordinatorConfig{})
	if coord.AllReady() {
		t.Error("AllReady() = true with no registered components")
	}
}
