// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// resolutionsTotal counts resolved requests by winning cascade stage.
	// Labels: stage (guardrail, deny, override, golden, examples, forced,
	// generated, generated_plain, relaxed, lifespan, fallback, error)
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cascade",
		Subsystem: "persona",
		Name:      "resolutions_total",
		Help:      "Resolved requests by winning cascade stage",
	}, []string{"stage"})

	// generationLatencySeconds measures the full fallback-walk latency of
	// the generation stage, including failed attempts.
	generationLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cascade",
		Subsystem: "generation",
		Name:      "latency_seconds",
		Help:      "Generation stage latency including model fallbacks",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// generationFailuresTotal counts generation stages where every model
	// in the fallback list failed.
	generationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cascade",
		Subsystem: "generation",
		Name:      "failures_total",
		Help:      "Generation stages where all fallback models failed",
	})

	// sessionEvictions counts sessions removed by LRU pressure.
	sessionEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cascade",
		Subsystem: "sessions",
		Name:      "evictions_total",
		Help:      "Sessions evicted by the LRU cap",
	})
)
