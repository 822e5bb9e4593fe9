// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package testdef

import (
	"testing"

	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
  "case_parameters": {"cycles": 3, "label": "voltage_echo"},
  "environmental_states": [
    {"state_id": "ambient", "name": "Ambient", "is_transition": false},
    {"state_id": "ramp", "name": "Ramp", "is_transition": true},
    {"state_id": "soak", "name": "Soak", "is_transition": false}
  ],
  "monitors": {
    "echo_voltage_monitor": {
      "states": {
        "soak": {
          "voltage": {"low": {"value": 4.5, "inclusive": true}, "high": {"value": 5.5, "inclusive": false}},
          "noise": "any"
        }
      }
    }
  }
}`

func TestLoadValidDocument(t *testing.T) {
	doc, err := Load([]byte(validDoc))
	require.NoError(t, err)

	require.Len(t, doc.EnvironmentalStates, 3)
	soak, ok := doc.State("soak")
	require.True(t, ok)
	assert.False(t, soak.IsTransition)

	ramp, ok := doc.State("ramp")
	require.True(t, ok)
	assert.True(t, ramp.IsTransition)

	def, ok := doc.Monitors["echo_voltage_monitor"]
	require.True(t, ok)
	bound, ok := def.States["soak"]["voltage"]
	require.True(t, ok)
	assert.False(t, bound.IsAny)
	assert.True(t, bound.Threshold.Check(5.0))
	assert.False(t, bound.Threshold.Check(5.5))

	anyBound, ok := def.States["soak"]["noise"]
	require.True(t, ok)
	assert.True(t, anyBound.IsAny)
}

func TestLoadParsesStateDuration(t *testing.T) {
	doc, err := Load([]byte(`{
  "environmental_states": [{"state_id": "soak", "name": "Soak", "duration_seconds": 90}],
  "monitors": {}
}`))
	require.NoError(t, err)

	soak, ok := doc.State("soak")
	require.True(t, ok)
	assert.Equal(t, 90.0, soak.DurationSeconds)
}

func TestLoadRejectsLowAboveHigh(t *testing.T) {
	doc := `{
  "environmental_states": [{"state_id": "soak", "name": "Soak"}],
  "monitors": {"m": {"states": {"soak": {"voltage": {"low": {"value": 10, "inclusive": true}, "high": {"value": 5, "inclusive": true}}}}}}
}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestLoadRejectsEmptyExclusiveInterval(t *testing.T) {
	doc := `{
  "environmental_states": [{"state_id": "soak", "name": "Soak"}],
  "monitors": {"m": {"states": {"soak": {"voltage": {"low": {"value": 5, "inclusive": false}, "high": {"value": 5, "inclusive": false}}}}}}
}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	_, err := Load([]byte(`{"environmental_states": [{"name": "missing state id"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestLoadRejectsUnknownMonitorMarker(t *testing.T) {
	doc := `{
  "environmental_states": [{"state_id": "soak", "name": "Soak"}],
  "monitors": {"m": {"states": {"soak": {"voltage": "all"}}}}
}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
}

func TestStateLookupMiss(t *testing.T) {
	doc, err := Load([]byte(validDoc))
	require.NoError(t, err)
	_, ok := doc.State(telemetry.StateId("does-not-exist"))
	assert.False(t, ok)
}
