// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import "encoding/json"

// EnvironmentalState is a discrete condition (temperature, vibration
// level, ...) under which thresholds apply. IsTransition marks
// intermediate states (ramping between two holds) during which monitors
// must skip evaluation rather than report violations.
type EnvironmentalState struct {
	StateId      StateId           `json:"state_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	IsTransition bool              `json:"is_transition"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	// DurationSeconds is the state's optional nominal dwell time. Zero
	// means the test-definition document left it unset; the executor
	// does not itself enforce it, leaving the actual hold to a phase's
	// Action.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// StateTransition records one move from one environmental state to the
// next. FromState is a pointer so the initial transition (no prior
// state) can be distinguished from a transition whose source is the
// empty string.
type StateTransition struct {
	FromState *StateId
	ToState   StateId
	Timestamp Timestamp
	Reason    string
}

type stateTransitionJSON struct {
	FromState       *StateId `json:"from_state,omitempty"`
	ToState         StateId  `json:"to_state"`
	Timestamp       int64    `json:"timestamp"`
	TimestampSource string   `json:"timestamp_source"`
	Reason          string   `json:"reason,omitempty"`
}

func (t StateTransition) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateTransitionJSON{
		FromState:       t.FromState,
		ToState:         t.ToState,
		Timestamp:       t.Timestamp.UnixNs,
		TimestampSource: t.Timestamp.Source,
		Reason:          t.Reason,
	})
}

func (t *StateTransition) UnmarshalJSON(data []byte) error {
	var raw stateTransitionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.FromState = raw.FromState
	t.ToState = raw.ToState
	t.Timestamp = NewTimestamp(raw.Timestamp, raw.TimestampSource)
	t.Reason = raw.Reason
	return nil
}
