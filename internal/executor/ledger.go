// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// monitorHistoryLimit bounds the number of retained MonitorResults per
// monitor id, so an unattended HASS/HALT run of unbounded duration
// cannot grow the ledger without bound. Pass/fail/skip counters remain
// exact and unbounded; only the retained sample history is capped.
const monitorHistoryLimit = 256

// ledger is the in-memory run ledger: phase results in execution order,
// plus a bounded recent-history cache per monitor with exact running
// verdict counters.
type ledger struct {
	mu sync.Mutex

	phaseResults []PhaseResult

	monitorSeq     map[telemetry.MonitorId]int
	monitorHistory map[telemetry.MonitorId]*lru.Cache[int, telemetry.MonitorResult]
	monitorCounts  map[telemetry.MonitorId]map[telemetry.MonitorVerdict]int
}

func newLedger() *ledger {
	return &ledger{
		monitorSeq:     make(map[telemetry.MonitorId]int),
		monitorHistory: make(map[telemetry.MonitorId]*lru.Cache[int, telemetry.MonitorResult]),
		monitorCounts:  make(map[telemetry.MonitorId]map[telemetry.MonitorVerdict]int),
	}
}

func (l *ledger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phaseResults = nil
	l.monitorSeq = make(map[telemetry.MonitorId]int)
	l.monitorHistory = make(map[telemetry.MonitorId]*lru.Cache[int, telemetry.MonitorResult])
	l.monitorCounts = make(map[telemetry.MonitorId]map[telemetry.MonitorVerdict]int)
}

func (l *ledger) addPhaseResult(r PhaseResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phaseResults = append(l.phaseResults, r)
}

func (l *ledger) phases() []PhaseResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]PhaseResult, len(l.phaseResults))
	copy(cp, l.phaseResults)
	return cp
}

func (l *ledger) anyPhaseFailed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.phaseResults {
		if r.Status == PhaseFailed {
			return true
		}
	}
	return false
}

func (l *ledger) recordMonitorResult(result telemetry.MonitorResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cache, ok := l.monitorHistory[result.MonitorId]
	if !ok {
		cache, _ = lru.New[int, telemetry.MonitorResult](monitorHistoryLimit)
		l.monitorHistory[result.MonitorId] = cache
	}
	seq := l.monitorSeq[result.MonitorId]
	cache.Add(seq, result)
	l.monitorSeq[result.MonitorId] = seq + 1

	counts, ok := l.monitorCounts[result.MonitorId]
	if !ok {
		counts = make(map[telemetry.MonitorVerdict]int)
		l.monitorCounts[result.MonitorId] = counts
	}
	counts[result.Verdict]++
}

// MonitorSummary reports one monitor's exact verdict counts and its
// most recently retained results (oldest first, capped at
// monitorHistoryLimit).
type MonitorSummary struct {
	MonitorId    telemetry.MonitorId
	VerdictCount map[telemetry.MonitorVerdict]int
	Recent       []telemetry.MonitorResult
}

func (l *ledger) monitorSummaries() map[telemetry.MonitorId]MonitorSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[telemetry.MonitorId]MonitorSummary, len(l.monitorHistory))
	for id, cache := range l.monitorHistory {
		keys := cache.Keys()
		recent := make([]telemetry.MonitorResult, 0, len(keys))
		for _, k := range keys {
			if v, ok := cache.Peek(k); ok {
				recent = append(recent, v)
			}
		}
		counts := make(map[telemetry.MonitorVerdict]int, len(l.monitorCounts[id]))
		for verdict, n := range l.monitorCounts[id] {
			counts[verdict] = n
		}
		out[id] = MonitorSummary{MonitorId: id, VerdictCount: counts, Recent: recent}
	}
	return out
}
