// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tagreco/tagreco/internal/recommend"
)

type mockTarget struct {
	reloads   atomic.Int32
	reloadErr error
	snapshot  *recommend.Snapshot
}

func (m *mockTarget) Reload(_, _, _ []byte) error {
	m.reloads.Add(1)
	return m.reloadErr
}

func (m *mockTarget) Snapshot() *recommend.Snapshot {
	return m.snapshot
}

type mockSource struct {
	readErr error
}

func (m *mockSource) Read() ([]byte, []byte, []byte, error) {
	if m.readErr != nil {
		return nil, nil, nil, m.readErr
	}
	return []byte("tags: {energy: {}}"),
		[]byte(`{"products": [{"id": "p1", "title": "P1"}]}`),
		[]byte("products:\n  - product: p1\n    match:\n      tags:\n        energy: 1.0\n"),
		nil
}

func testSnapshot(t *testing.T) *recommend.Snapshot {
	t.Helper()
	snap, err := recommend.BuildSnapshot(
		[]byte("tags: {energy: {}}"),
		[]byte(`{"products": [{"id": "p1", "title": "P1"}]}`),
		[]byte("products:\n  - product: p1\n    match:\n      tags:\n        energy: 1.0\n"),
	)
	if err != nil {
		t.Fatalf("BuildSnapshot() error = %v", err)
	}
	return snap
}

func TestNewReloadServiceSchedule(t *testing.T) {
	t.Parallel()

	target := &mockTarget{snapshot: testSnapshot(t)}
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "every descriptor", schedule: "@every 5m"},
		{name: "hourly descriptor", schedule: "@hourly"},
		{name: "five field cron", schedule: "*/10 * * * *"},
		{name: "garbage", schedule: "not-a-schedule", wantErr: true},
		{name: "empty", schedule: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewReloadService(target, &mockSource{}, tt.schedule, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewReloadService(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestReloadServiceRunOnce(t *testing.T) {
	t.Parallel()

	target := &mockTarget{snapshot: testSnapshot(t)}
	svc, err := NewReloadService(target, &mockSource{}, "@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	svc.runOnce()
	if target.reloads.Load() != 1 {
		t.Errorf("reloads = %d, want 1", target.reloads.Load())
	}
}

func TestReloadServiceRunOnceReadFailure(t *testing.T) {
	t.Parallel()

	target := &mockTarget{snapshot: testSnapshot(t)}
	svc, err := NewReloadService(target, &mockSource{readErr: errors.New("missing file")}, "@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	svc.runOnce()
	if target.reloads.Load() != 0 {
		t.Error("Reload was called despite read failure")
	}
}

func TestReloadServiceRunOnceValidationFailure(t *testing.T) {
	t.Parallel()

	target := &mockTarget{
		snapshot:  testSnapshot(t),
		reloadErr: recommend.ValidationErrors{{ProductID: "p1", Field: "match.tags", Message: "unknown tag"}},
	}
	svc, err := NewReloadService(target, &mockSource{}, "@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	// A rejected reload must not panic or crash the service.
	svc.runOnce()
	if target.reloads.Load() != 1 {
		t.Errorf("reloads = %d, want 1", target.reloads.Load())
	}
}

func TestReloadServiceStopsOnCancel(t *testing.T) {
	t.Parallel()

	target := &mockTarget{snapshot: testSnapshot(t)}
	svc, err := NewReloadService(target, &mockSource{}, "@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	select {
	case serveErr := <-errCh:
		if !errors.Is(serveErr, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", serveErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
