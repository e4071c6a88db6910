// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tagreco/tagreco/internal/metrics"
	"github.com/tagreco/tagreco/internal/recommend"
)

// ReloadTarget is the engine surface the reloader drives. Satisfied by
// *recommend.Engine.
type ReloadTarget interface {
	Reload(ontologyRaw, catalogRaw, rulesRaw []byte) error
	Snapshot() *recommend.Snapshot
}

// SourceReader reads the three source documents. Satisfied by
// recommend.FileSource.
type SourceReader interface {
	Read() (ontology, catalog, rules []byte, err error)
}

// ReloadService periodically re-reads the source documents and swaps
// the engine snapshot on a cron schedule. A failed reload leaves the
// previous snapshot serving and is retried at the next tick, so the
// service itself never crashes over bad data.
type ReloadService struct {
	target   ReloadTarget
	source   SourceReader
	schedule cron.Schedule
	logger   zerolog.Logger
	name     string
}

// NewReloadService creates a reload service. The schedule accepts the
// standard five-field cron syntax plus descriptors such as
// "@every 5m" and "@hourly".
func NewReloadService(target ReloadTarget, source SourceReader, schedule string, logger zerolog.Logger) (*ReloadService, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", schedule, err)
	}
	return &ReloadService{
		target:   target,
		source:   source,
		schedule: sched,
		logger:   logger.With().Str("service", "reload").Logger(),
		name:     "snapshot-reloader",
	}, nil
}

// Serve implements suture.Service. It sleeps until each scheduled tick
// and runs a reload cycle, exiting only on context cancellation.
func (s *ReloadService) Serve(ctx context.Context) error {
	s.logger.Info().Time("next_run", s.schedule.Next(time.Now())).Msg("Snapshot reloader started")

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Snapshot reloader shutting down")
			return ctx.Err()

		case <-timer.C:
			s.runOnce()
		}
	}
}

// runOnce performs a single reload cycle.
func (s *ReloadService) runOnce() {
	start := time.Now()

	ontology, catalog, rules, err := s.source.Read()
	if err != nil {
		metrics.RecordReload("read_failed", 0, 0, 0, time.Time{})
		s.logger.Error().Err(err).Msg("Failed to read source documents")
		return
	}

	if err := s.target.Reload(ontology, catalog, rules); err != nil {
		metrics.RecordReload("validation_failed", 0, 0, 0, time.Time{})
		var verrs recommend.ValidationErrors
		if errors.As(err, &verrs) {
			s.logger.Error().Int("error_count", len(verrs)).Err(err).Msg("Reload rejected, previous snapshot retained")
		} else {
			s.logger.Error().Err(err).Msg("Reload failed, previous snapshot retained")
		}
		return
	}

	snap := s.target.Snapshot()
	metrics.RecordReload("success", len(snap.Rules), len(snap.Catalog), len(snap.Ontology), snap.LoadedAt)
	s.logger.Info().
		Int("rules", len(snap.Rules)).
		Int("products", len(snap.Catalog)).
		Int("tags", len(snap.Ontology)).
		Dur("duration", time.Since(start)).
		Msg("Snapshot reloaded")
}

// String implements fmt.Stringer for suture's log messages.
func (s *ReloadService) String() string {
	return s.name
}
