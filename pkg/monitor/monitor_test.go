// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package monitor

import (
	"testing"

	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voltageThreshold(low, high float64) telemetry.Threshold {
	return telemetry.Threshold{
		Channel: "voltage",
		Low:     &telemetry.ThresholdBound{Value: low, Bound: telemetry.Inclusive},
		High:    &telemetry.ThresholdBound{Value: high, Bound: telemetry.Inclusive},
	}
}

func TestEvaluateSkipsDuringTransition(t *testing.T) {
	def := Definition{
		Name: "voltage_monitor",
		States: map[telemetry.StateId]map[telemetry.ChannelId]Bound{
			"ramp": {"voltage": ThresholdBound(voltageThreshold(0, 5))},
		},
	}
	m := New(def, "")

	state := telemetry.EnvironmentalState{StateId: "ramp", IsTransition: true}
	result := m.Evaluate(map[telemetry.ChannelId]float64{"voltage": 100.0}, state)

	assert.Equal(t, telemetry.VerdictSkip, result.Verdict)
	assert.Empty(t, result.Violations)
}

func TestEvaluatePassAndFail(t *testing.T) {
	def := Definition{
		Name: "voltage_monitor",
		States: map[telemetry.StateId]map[telemetry.ChannelId]Bound{
			"soak": {"voltage": ThresholdBound(voltageThreshold(4.5, 5.5))},
		},
	}
	m := New(def, "voltage_monitor")
	require.Equal(t, telemetry.MonitorId("voltage_monitor"), m.MonitorId())

	state := telemetry.EnvironmentalState{StateId: "soak", Name: "soak"}

	pass := m.Evaluate(map[telemetry.ChannelId]float64{"voltage": 5.0}, state)
	assert.Equal(t, telemetry.VerdictPass, pass.Verdict)
	assert.Empty(t, pass.Violations)

	fail := m.Evaluate(map[telemetry.ChannelId]float64{"voltage": 6.0}, state)
	assert.Equal(t, telemetry.VerdictFail, fail.Verdict)
	require.Len(t, fail.Violations, 1)
	assert.Equal(t, telemetry.ChannelId("voltage"), fail.Violations[0].Channel)
	assert.Equal(t, 6.0, fail.Violations[0].Measured)
}

func TestEvaluateAnyBoundIsSkippedNotChecked(t *testing.T) {
	def := Definition{
		Name: "m",
		States: map[telemetry.StateId]map[telemetry.ChannelId]Bound{
			"soak": {"noise": AnyBound()},
		},
	}
	m := New(def, "")
	state := telemetry.EnvironmentalState{StateId: "soak"}

	result := m.Evaluate(map[telemetry.ChannelId]float64{"noise": 1e9}, state)
	assert.Equal(t, telemetry.VerdictSkip, result.Verdict)
}

func TestEvaluateUnknownChannelsAreIgnoredBothWays(t *testing.T) {
	def := Definition{
		Name: "m",
		States: map[telemetry.StateId]map[telemetry.ChannelId]Bound{
			"soak": {"voltage": ThresholdBound(voltageThreshold(0, 5))},
		},
	}
	m := New(def, "")
	state := telemetry.EnvironmentalState{StateId: "soak"}

	// channel in values but not definition: ignored, nothing checked -> skip
	result := m.Evaluate(map[telemetry.ChannelId]float64{"current": 1.0}, state)
	assert.Equal(t, telemetry.VerdictSkip, result.Verdict)

	// channel in definition but not values: also nothing checked -> skip
	result = m.Evaluate(map[telemetry.ChannelId]float64{}, state)
	assert.Equal(t, telemetry.VerdictSkip, result.Verdict)
}

func TestEvaluateDeterministic(t *testing.T) {
	def := Definition{
		Name: "m",
		States: map[telemetry.StateId]map[telemetry.ChannelId]Bound{
			"soak": {"voltage": ThresholdBound(voltageThreshold(0, 5))},
		},
	}
	m := New(def, "")
	state := telemetry.EnvironmentalState{StateId: "soak"}
	values := map[telemetry.ChannelId]float64{"voltage": 10.0}

	a := m.Evaluate(values, state)
	b := m.Evaluate(values, state)
	assert.Equal(t, a.Verdict, b.Verdict)
	assert.Equal(t, a.Violations, b.Violations)
}

func TestStartStopIsRunning(t *testing.T) {
	m := New(Definition{Name: "m"}, "")
	assert.False(t, m.IsRunning())
	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	require.NoError(t, m.Stop())
	assert.False(t, m.IsRunning())
}
