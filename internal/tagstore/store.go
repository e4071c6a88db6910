// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package tagstore persists derived behavioral tags per user. Upstream
// producers (quizzes, calculators, profile import) push tag sets that are
// merged into the user's stored set; entries expire after a TTL so stale
// signals age out without a cleanup job. Backed by BadgerDB native TTL.
package tagstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long a user's derived tags survive without refresh.
const DefaultTTL = 30 * 24 * time.Hour

const userTagsKeyPrefix = "usertags:"

// ErrUserIDRequired rejects calls with an empty user id.
var ErrUserIDRequired = errors.New("tagstore: user id is required")

// Store is a TTL-backed per-user tag set store.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// Open opens a BadgerDB at the given path and wraps it in a Store. The
// caller owns Close. A non-positive ttl falls back to DefaultTTL.
func Open(path string, ttl time.Duration, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for tag store: %w", err)
	}
	return New(db, ttl, logger), nil
}

// New wraps an existing BadgerDB connection. Used by tests with an
// in-memory database.
func New(db *badger.DB, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		db:     db,
		ttl:    ttl,
		logger: logger.With().Str("component", "tagstore").Logger(),
	}
}

// Get returns the user's stored tags, sorted. A user with no entry (or an
// expired one) gets an empty set, not an error.
func (s *Store) Get(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	var tags []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userTagsKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get user tags: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tags)
		})
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// Merge unions the given tags into the user's stored set and refreshes
// the TTL. Returns the merged set, sorted.
func (s *Store) Merge(ctx context.Context, userID string, tags []string) ([]string, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	var merged []string
	err := s.db.Update(func(txn *badger.Txn) error {
		set := make(map[string]struct{}, len(tags))

		item, err := txn.Get(userTagsKey(userID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get user tags: %w", err)
		}
		if err == nil {
			var existing []string
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("unmarshal user tags: %w", err)
			}
			for _, tag := range existing {
				set[tag] = struct{}{}
			}
		}

		for _, tag := range tags {
			if tag == "" {
				continue
			}
			set[tag] = struct{}{}
		}

		merged = make([]string, 0, len(set))
		for tag := range set {
			merged = append(merged, tag)
		}
		sort.Strings(merged)

		return s.write(txn, userID, merged)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("user_id", userID).Int("tags", len(merged)).Msg("Merged user tags")
	return merged, nil
}

// Set replaces the user's stored tags and refreshes the TTL.
func (s *Store) Set(ctx context.Context, userID string, tags []string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		set[tag] = struct{}{}
	}
	clean := make([]string, 0, len(set))
	for tag := range set {
		clean = append(clean, tag)
	}
	sort.Strings(clean)

	return s.db.Update(func(txn *badger.Txn) error {
		return s.write(txn, userID, clean)
	})
}

// Clear removes the user's stored tags. Clearing an absent user is a
// no-op.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(userTagsKey(userID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete user tags: %w", err)
		}
		return nil
	})
}

// Close closes the underlying BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) write(txn *badger.Txn, userID string, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal user tags: %w", err)
	}
	entry := badger.NewEntry(userTagsKey(userID), data).WithTTL(s.ttl)
	if err := txn.SetEntry(entry); err != nil {
		return fmt.Errorf("set user tags: %w", err)
	}
	return nil
}

func userTagsKey(userID string) []byte {
	return []byte(userTagsKeyPrefix + userID)
}
