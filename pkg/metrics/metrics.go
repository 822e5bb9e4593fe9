// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics is ambient observability plumbing: a small Prometheus
// registry the streaming, monitor, and executor packages update as a
// side-channel. Nothing here serves HTTP; cmd/hilstation may optionally
// mount promhttp.Handler() over the Registry exported below.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is a private registry rather than the global default, so a
// process hosting more than one station doesn't collide on metric
// registration when each station builds its own instrument set.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// FramesPublishedTotal counts data frames a Publisher successfully
	// handed to the broker, labeled by source_id.
	FramesPublishedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_frames_published_total",
		Help: "Data frames published, by source.",
	}, []string{"source_id"})

	// FramesDroppedTotal counts data frames a Subscriber discarded
	// before delivery, labeled by source_id and reason (no_schema,
	// schema_mismatch, decode_error).
	FramesDroppedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_frames_dropped_total",
		Help: "Data frames dropped by a subscriber before delivery.",
	}, []string{"source_id", "reason"})

	// SchemaBroadcastsTotal counts schema-broadcast ticks, labeled by
	// source_id and outcome (ok, error).
	SchemaBroadcastsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_schema_broadcasts_total",
		Help: "Schema broadcast attempts, by source and outcome.",
	}, []string{"source_id", "outcome"})

	// MonitorVerdictsTotal counts monitor evaluations, labeled by
	// monitor_id and verdict.
	MonitorVerdictsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_monitor_verdicts_total",
		Help: "Monitor evaluations, by monitor and verdict.",
	}, []string{"monitor_id", "verdict"})

	// PhaseDurationSeconds observes wall-clock phase execution time,
	// labeled by phase name and terminal status.
	PhaseDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hil_phase_duration_seconds",
		Help:    "Phase execution duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"phase", "status"})

	// RunOutcomesTotal counts completed runs, labeled by mode and
	// terminal outcome (passed, failed, error, aborted).
	RunOutcomesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_run_outcomes_total",
		Help: "Completed test executor runs, by mode and outcome.",
	}, []string{"mode", "outcome"})

	// CyclesTotal counts completed HASS/HALT cycles, labeled by mode.
	CyclesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "hil_cycles_total",
		Help: "Completed HASS/HALT cycles, by mode.",
	}, []string{"mode"})
)
