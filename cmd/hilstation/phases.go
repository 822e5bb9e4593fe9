// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"time"

	"github.com/hiltest/hilcore/internal/executor"
	"github.com/hiltest/hilcore/pkg/testdef"
)

// buildPhases turns a test-definition document's environmental states
// into a phase sequence, one phase per state in document order, each
// simply holding before the next transition: for the state's
// duration_seconds when that is positive, otherwise for hold. A real station
// replaces Action with rack-specific setpoint and dwell logic (see
// hwtest_intg's integration tests for the instrument-driving version of
// this loop); this example binary only has the state machine to
// exercise, not a rack to drive.
func buildPhases(doc testdef.Document, hold time.Duration) []*executor.Phase {
	phases := make([]*executor.Phase, 0, len(doc.EnvironmentalStates))
	for _, state := range doc.EnvironmentalStates {
		state := state
		configuredHold := time.Duration(state.DurationSeconds * float64(time.Second))
		if configuredHold <= 0 {
			configuredHold = hold
		}
		phases = append(phases, &executor.Phase{
			Name:        string(state.StateId),
			State:       state,
			Description: state.Description,
			Duration:    configuredHold,
			Action: func(tc *executor.Context) error {
				time.Sleep(configuredHold)
				return nil
			},
		})
	}
	return phases
}
