// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package testdef

import (
	"encoding/json"
	"fmt"

	"github.com/hiltest/hilcore/pkg/monitor"
	"github.com/hiltest/hilcore/pkg/telemetry"
)

// Document is the decoded, validated form of the test-definition
// external file: case parameters, the environmental states a test case
// cycles through, and the monitor definitions those states are checked
// against.
type Document struct {
	CaseParameters      map[string]any
	EnvironmentalStates []telemetry.EnvironmentalState
	Monitors            map[string]monitor.Definition
}

// State looks up one of the document's environmental states by id.
func (d Document) State(id telemetry.StateId) (telemetry.EnvironmentalState, bool) {
	for _, s := range d.EnvironmentalStates {
		if s.StateId == id {
			return s, true
		}
	}
	return telemetry.EnvironmentalState{}, false
}

type rawDocument struct {
	CaseParameters      map[string]any                  `json:"case_parameters"`
	EnvironmentalStates []rawState                       `json:"environmental_states"`
	Monitors            map[string]rawMonitorDefinition `json:"monitors"`
}

type rawState struct {
	StateId         telemetry.StateId `json:"state_id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	IsTransition    bool              `json:"is_transition"`
	Metadata        map[string]string `json:"metadata"`
	DurationSeconds float64           `json:"duration_seconds"`
}

type rawMonitorDefinition struct {
	States map[string]map[string]json.RawMessage `json:"states"`
}

type rawBound struct {
	Value     float64 `json:"value"`
	Inclusive bool    `json:"inclusive"`
}

// Load parses and validates a test-definition document from raw JSON
// bytes. Structural errors are caught by the embedded JSON Schema;
// InvalidThreshold (low > high, both bounds exclusive at the same
// value) is caught here, at load time — evaluate() itself never raises
// it.
func Load(raw []byte) (Document, error) {
	if err := validateDocument(raw); err != nil {
		return Document{}, err
	}

	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("testdef: decode document: %w", err)
	}

	states := make([]telemetry.EnvironmentalState, len(doc.EnvironmentalStates))
	for i, s := range doc.EnvironmentalStates {
		states[i] = telemetry.EnvironmentalState{
			StateId:         s.StateId,
			Name:            s.Name,
			Description:     s.Description,
			IsTransition:    s.IsTransition,
			Metadata:        s.Metadata,
			DurationSeconds: s.DurationSeconds,
		}
	}

	monitors := make(map[string]monitor.Definition, len(doc.Monitors))
	for name, rawDef := range doc.Monitors {
		def, err := buildMonitorDefinition(name, rawDef)
		if err != nil {
			return Document{}, err
		}
		monitors[name] = def
	}

	return Document{
		CaseParameters:      doc.CaseParameters,
		EnvironmentalStates: states,
		Monitors:            monitors,
	}, nil
}

func buildMonitorDefinition(name string, raw rawMonitorDefinition) (monitor.Definition, error) {
	def := monitor.Definition{
		Name:   name,
		States: make(map[telemetry.StateId]map[telemetry.ChannelId]monitor.Bound, len(raw.States)),
	}

	for stateID, channels := range raw.States {
		bounds := make(map[telemetry.ChannelId]monitor.Bound, len(channels))
		for channel, rawBoundValue := range channels {
			bound, err := parseBound(name, stateID, channel, rawBoundValue)
			if err != nil {
				return monitor.Definition{}, err
			}
			bounds[telemetry.ChannelId(channel)] = bound
		}
		def.States[telemetry.StateId(stateID)] = bounds
	}

	return def, nil
}

// parseBound decodes one (state, channel) entry, which is either the
// literal string "any" or a {low?, high?} object.
func parseBound(monitorName, stateID, channel string, raw json.RawMessage) (monitor.Bound, error) {
	var marker string
	if err := json.Unmarshal(raw, &marker); err == nil {
		if marker == "any" {
			return monitor.AnyBound(), nil
		}
		return monitor.Bound{}, fmt.Errorf("testdef: monitor %q state %q channel %q: unrecognised marker %q", monitorName, stateID, channel, marker)
	}

	var spec struct {
		Low  *rawBound `json:"low"`
		High *rawBound `json:"high"`
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return monitor.Bound{}, fmt.Errorf("testdef: monitor %q state %q channel %q: decode bound: %w", monitorName, stateID, channel, err)
	}

	threshold := telemetry.Threshold{Channel: telemetry.ChannelId(channel)}
	if spec.Low != nil {
		threshold.Low = &telemetry.ThresholdBound{Value: spec.Low.Value, Bound: boundType(spec.Low.Inclusive)}
	}
	if spec.High != nil {
		threshold.High = &telemetry.ThresholdBound{Value: spec.High.Value, Bound: boundType(spec.High.Inclusive)}
	}

	if err := validateThreshold(threshold); err != nil {
		return monitor.Bound{}, fmt.Errorf("testdef: monitor %q state %q channel %q: %w: %v", monitorName, stateID, channel, ErrInvalidThreshold, err)
	}

	return monitor.ThresholdBound(threshold), nil
}

func boundType(inclusive bool) telemetry.BoundType {
	if inclusive {
		return telemetry.Inclusive
	}
	return telemetry.Exclusive
}

// validateThreshold rejects low > high, and both bounds exclusive at
// the same value (an empty, unsatisfiable interval).
func validateThreshold(t telemetry.Threshold) error {
	if t.Low == nil || t.High == nil {
		return nil
	}
	if t.Low.Value > t.High.Value {
		return fmt.Errorf("low bound %v exceeds high bound %v", t.Low.Value, t.High.Value)
	}
	if t.Low.Value == t.High.Value && t.Low.Bound == telemetry.Exclusive && t.High.Bound == telemetry.Exclusive {
		return fmt.Errorf("both bounds exclusive at the same value %v admits no value", t.Low.Value)
	}
	return nil
}
