// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package metrics exposes Prometheus collectors for the recommendation
// pipeline, snapshot reloads, the derived tag store and the HTTP surface.
// All collectors are registered with the default registry via promauto
// and served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation metrics
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"outcome"}, // "ok", "empty", "invalid"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Recommendation scoring duration in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	RecommendCardsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_cards_returned",
			Help:    "Number of cards returned per recommendation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	RecommendExclusionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_exclusions_total",
			Help: "Total products dropped by hard exclusions",
		},
		[]string{"reason"}, // "tag_exclusion", "allergen"
	)

	// Snapshot metrics
	SnapshotReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_reloads_total",
			Help: "Total snapshot reload attempts",
		},
		[]string{"outcome"}, // "success", "validation_failed", "read_failed"
	)

	SnapshotRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_rules",
			Help: "Number of rules in the serving snapshot",
		},
	)

	SnapshotProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_products",
			Help: "Number of products in the serving snapshot",
		},
	)

	SnapshotTags = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_tags",
			Help: "Number of ontology tags in the serving snapshot",
		},
	)

	SnapshotLoadedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_loaded_timestamp_seconds",
			Help: "Unix timestamp of the serving snapshot's load",
		},
	)

	// Tag store metrics
	TagStoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagstore_operations_total",
			Help: "Total derived tag store operations",
		},
		[]string{"operation", "outcome"}, // get/merge/set/clear x ok/error
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRecommend records one recommendation call.
func RecordRecommend(outcome string, cards int, duration time.Duration) {
	RecommendRequestsTotal.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	RecommendCardsReturned.Observe(float64(cards))
}

// RecordExclusion records one product dropped by a hard exclusion.
func RecordExclusion(reason string) {
	RecommendExclusionsTotal.WithLabelValues(reason).Inc()
}

// RecordReload records a reload attempt and, on success, updates the
// snapshot gauges.
func RecordReload(outcome string, rules, products, tags int, loadedAt time.Time) {
	SnapshotReloadsTotal.WithLabelValues(outcome).Inc()
	if outcome != "success" {
		return
	}
	SnapshotRules.Set(float64(rules))
	SnapshotProducts.Set(float64(products))
	SnapshotTags.Set(float64(tags))
	SnapshotLoadedTimestamp.Set(float64(loadedAt.Unix()))
}

// RecordTagStoreOp records one tag store operation.
func RecordTagStoreOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	TagStoreOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
