// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

func TestPhaseResultEchoesConfiguredDuration(t *testing.T) {
	p := &Phase{
		Name:     "soak",
		State:    telemetry.EnvironmentalState{StateId: "soak"},
		Duration: 90 * time.Second,
	}
	tc := NewContext("run-1", "", nil)

	result := p.Execute(clockwork.NewFakeClock(), tc, nil)
	assert.Equal(t, 90*time.Second, result.Duration)
	assert.Equal(t, PhaseCompleted, result.Status)
}

func TestPhaseResultEchoesConfiguredDurationWhenSkipped(t *testing.T) {
	p := &Phase{
		Name:     "soak",
		State:    telemetry.EnvironmentalState{StateId: "soak"},
		Duration: 45 * time.Second,
		SkipIf:   func(tc *Context) (bool, error) { return true, nil },
	}
	tc := NewContext("run-1", "", nil)

	result := p.Execute(clockwork.NewFakeClock(), tc, nil)
	assert.Equal(t, PhaseSkipped, result.Status)
	assert.Equal(t, 45*time.Second, result.Duration)
}
