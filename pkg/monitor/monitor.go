// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package monitor implements the threshold evaluator (C6): a monitor
// definition keyed by (state, channel) holds either a Threshold or the
// "any" marker meaning the channel is intentionally unchecked in that
// state, and Evaluate applies it to a batch of measured values.
// Evaluation is pure and side-effect-free; the monitor does not emit on
// any channel itself.
package monitor

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// Bound is one entry of a MonitorDefinition for a (state, channel) pair:
// either a concrete Threshold or the "any" marker (IsAny=true, in which
// case Threshold is the zero value and must not be consulted).
type Bound struct {
	Threshold telemetry.Threshold
	IsAny     bool
}

// AnyBound returns a Bound meaning "this channel is intentionally
// unchecked in this state".
func AnyBound() Bound { return Bound{IsAny: true} }

// ThresholdBound wraps a concrete Threshold as a Bound.
func ThresholdBound(t telemetry.Threshold) Bound { return Bound{Threshold: t} }

// Definition is a monitor's full bounds table: for every state it cares
// about, the bounds for every channel it checks in that state. It is
// immutable after construction by pkg/testdef.
type Definition struct {
	Name   string
	States map[telemetry.StateId]map[telemetry.ChannelId]Bound
}

// Fields returns the set of channel names this definition ever checks,
// across all states, in no particular order. Evaluation does not use
// it; Evaluate only looks at the current state's map.
func (d Definition) Fields() []telemetry.ChannelId {
	seen := make(map[telemetry.ChannelId]struct{})
	for _, channels := range d.States {
		for ch := range channels {
			seen[ch] = struct{}{}
		}
	}
	out := make([]telemetry.ChannelId, 0, len(seen))
	for ch := range seen {
		out = append(out, ch)
	}
	return out
}

// bound returns the Bound configured for (state, channel), if any.
func (d Definition) bound(state telemetry.StateId, channel telemetry.ChannelId) (Bound, bool) {
	channels, ok := d.States[state]
	if !ok {
		return Bound{}, false
	}
	b, ok := channels[channel]
	return b, ok
}

// Monitor evaluates measured values against a Definition. start()/stop()
// arm/disarm it; Evaluate itself never checks the armed flag, since the
// spec defines evaluation as pure — arming only gates whether the
// executor is expected to call Evaluate at all.
type Monitor struct {
	id  telemetry.MonitorId
	def Definition

	mu      sync.Mutex
	running atomic.Bool
}

// New builds a Monitor for def, defaulting its MonitorId to def.Name
// unless id is given explicitly.
func New(def Definition, id telemetry.MonitorId) *Monitor {
	if id == "" {
		id = telemetry.MonitorId(def.Name)
	}
	return &Monitor{id: id, def: def}
}

func (m *Monitor) MonitorId() telemetry.MonitorId { return m.id }

// Start arms the monitor. It may now produce results (a bookkeeping
// signal for the executor; Evaluate itself is always callable).
func (m *Monitor) Start() error {
	m.running.Store(true)
	return nil
}

// Stop disarms the monitor.
func (m *Monitor) Stop() error {
	m.running.Store(false)
	return nil
}

func (m *Monitor) IsRunning() bool { return m.running.Load() }

// Evaluate applies the monitor's bounds for state to values, producing
// one MonitorResult:
//
//  1. If state.IsTransition, return Skip with no violations.
//  2. For each channel present in both values and the definition's
//     fields for this state: "any" or undefined bounds increment
//     skipped; otherwise the value is checked, recording a
//     ThresholdViolation on failure.
//  3. Any violations => Fail. Else zero checked => Skip. Else Pass.
//
// A channel in values but not the definition, or in the definition but
// not values, is silently ignored either way — monitors never
// synthesise failures for missing data.
func (m *Monitor) Evaluate(values map[telemetry.ChannelId]float64, state telemetry.EnvironmentalState) telemetry.MonitorResult {
	timestamp := telemetry.NowLocal()

	if state.IsTransition {
		return telemetry.MonitorResult{
			MonitorId: m.id,
			Verdict:   telemetry.VerdictSkip,
			Timestamp: timestamp,
			StateId:   state.StateId,
			Message:   "skipping evaluation during state transition",
		}
	}

	var violations []telemetry.ThresholdViolation
	checked := 0
	skipped := 0

	for channel, measured := range values {
		bound, ok := m.bound(state.StateId, channel)
		if !ok {
			continue
		}
		if bound.IsAny {
			skipped++
			continue
		}
		checked++
		if !bound.Threshold.Check(measured) {
			violations = append(violations, telemetry.ThresholdViolation{
				Channel:   channel,
				Measured:  measured,
				Threshold: bound.Threshold,
				Message:   violationMessage(channel, measured, bound.Threshold),
			})
		}
	}

	if len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.Message
		}
		return telemetry.MonitorResult{
			MonitorId:  m.id,
			Verdict:    telemetry.VerdictFail,
			Timestamp:  timestamp,
			StateId:    state.StateId,
			Violations: violations,
			Message:    "failed: " + strings.Join(msgs, "; "),
		}
	}

	if checked == 0 {
		return telemetry.MonitorResult{
			MonitorId: m.id,
			Verdict:   telemetry.VerdictSkip,
			Timestamp: timestamp,
			StateId:   state.StateId,
			Message:   fmt.Sprintf("no fields checked (skipped %d)", skipped),
		}
	}

	return telemetry.MonitorResult{
		MonitorId: m.id,
		Verdict:   telemetry.VerdictPass,
		Timestamp: timestamp,
		StateId:   state.StateId,
		Message:   fmt.Sprintf("all %d field(s) within bounds for %s", checked, state.Name),
	}
}

func (m *Monitor) bound(state telemetry.StateId, channel telemetry.ChannelId) (Bound, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.bound(state, channel)
}

func violationMessage(channel telemetry.ChannelId, measured float64, t telemetry.Threshold) string {
	switch {
	case t.Low != nil && t.High != nil:
		return fmt.Sprintf("%s=%.4f outside [%s%.4f, %.4f%s]", channel, measured,
			boundOpen(t.Low.Bound), t.Low.Value, t.High.Value, boundClose(t.High.Bound))
	case t.Low != nil:
		return fmt.Sprintf("%s=%.4f below %s %.4f", channel, measured, t.Low.Bound, t.Low.Value)
	case t.High != nil:
		return fmt.Sprintf("%s=%.4f above %s %.4f", channel, measured, t.High.Bound, t.High.Value)
	default:
		return fmt.Sprintf("%s=%.4f failed check", channel, measured)
	}
}

func boundOpen(b telemetry.BoundType) string {
	if b == telemetry.Exclusive {
		return "("
	}
	return "["
}

func boundClose(b telemetry.BoundType) string {
	if b == telemetry.Exclusive {
		return ")"
	}
	return "]"
}
