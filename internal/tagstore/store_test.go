// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package tagstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})

	return New(db, ttl, zerolog.Nop())
}

func TestGetUnknownUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 0)

	tags, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("Get() = %v, want empty", tags)
	}
}

func TestMergeUnionsAndSorts(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 0)
	ctx := context.Background()

	if _, err := store.Merge(ctx, "u1", []string{"sleep", "energy"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	merged, err := store.Merge(ctx, "u1", []string{"stress", "energy", ""})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := []string{"energy", "sleep", "stress"}
	if len(merged) != len(want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Fatalf("merged = %v, want %v", merged, want)
		}
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != len(want) {
		t.Errorf("Get() after merge = %v, want %v", got, want)
	}
}

func TestSetReplaces(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 0)
	ctx := context.Background()

	if _, err := store.Merge(ctx, "u2", []string{"energy", "sleep"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := store.Set(ctx, "u2", []string{"stress"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "u2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 1 || got[0] != "stress" {
		t.Errorf("Get() = %v, want [stress]", got)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 0)
	ctx := context.Background()

	if _, err := store.Merge(ctx, "u3", []string{"energy"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := store.Clear(ctx, "u3"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err := store.Get(ctx, "u3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get() after clear = %v, want empty", got)
	}

	// Clearing an absent user is a no-op.
	if err := store.Clear(ctx, "never-seen"); err != nil {
		t.Errorf("Clear() on absent user = %v", err)
	}
}

func TestEntriesExpire(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, time.Second)
	ctx := context.Background()

	if _, err := store.Merge(ctx, "u4", []string{"energy"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	got, err := store.Get(ctx, "u4")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get() after TTL = %v, want empty", got)
	}
}

func TestEmptyUserIDRejected(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, 0)
	ctx := context.Background()

	if _, err := store.Get(ctx, ""); !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("Get() error = %v, want ErrUserIDRequired", err)
	}
	if _, err := store.Merge(ctx, "", nil); !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("Merge() error = %v, want ErrUserIDRequired", err)
	}
	if err := store.Set(ctx, "", nil); !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("Set() error = %v, want ErrUserIDRequired", err)
	}
	if err := store.Clear(ctx, ""); !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("Clear() error = %v, want ErrUserIDRequired", err)
	}
}
