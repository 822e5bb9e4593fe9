// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiltest/hilcore/internal/logger"
	"github.com/hiltest/hilcore/pkg/monitor"
	"github.com/hiltest/hilcore/pkg/telemetry"
)

// fakeLogger is an in-memory Logger stub for exercising the executor's
// setup/teardown supervision without pulling in a concrete sink.
type fakeLogger struct {
	running bool
	started []logger.Tags
	logged  int
}

func (f *fakeLogger) RegisterSchema(string, telemetry.StreamSchema) error { return nil }
func (f *fakeLogger) Start(tags logger.Tags) error {
	f.running = true
	f.started = append(f.started, tags)
	return nil
}
func (f *fakeLogger) Log(string, telemetry.StreamData) error { f.logged++; return nil }
func (f *fakeLogger) Stop() error                             { f.running = false; return nil }
func (f *fakeLogger) IsRunning() bool                         { return f.running }

func ambientState() telemetry.EnvironmentalState {
	return telemetry.EnvironmentalState{StateId: "ambient", Name: "Ambient"}
}

func soakState() telemetry.EnvironmentalState {
	return telemetry.EnvironmentalState{StateId: "soak", Name: "Soak"}
}

func TestRunFunctionalModeAllPhasesComplete(t *testing.T) {
	clock := clockwork.NewFakeClock()
	log := &fakeLogger{}
	exec := New(clock, nil, log, nil)

	var ran []string
	phases := []*Phase{
		{Name: "ambient", State: ambientState(), Action: func(tc *Context) error {
			ran = append(ran, "ambient")
			return nil
		}},
		{Name: "soak", State: soakState(), Action: func(tc *Context) error {
			ran = append(ran, "soak")
			return nil
		}},
	}

	result, err := exec.Run(context.Background(), RunConfig{
		TestName: "voltage echo",
		Mode:     ModeFunctional,
		Phases:   phases,
	})
	require.NoError(t, err)
	assert.Equal(t, RunPassed, result.Status)
	assert.Len(t, result.PhaseResults, 2)
	assert.Equal(t, []string{"ambient", "soak"}, ran)
	assert.True(t, log.running == false)
	assert.Equal(t, 1, len(log.started))
}

func TestRunFailsWhenAPhaseActionErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	exec := New(clock, nil, &fakeLogger{}, nil)

	phases := []*Phase{
		{Name: "bad", State: ambientState(), Action: func(tc *Context) error {
			return errors.New("psu overcurrent")
		}},
		{Name: "after", State: soakState(), Action: func(tc *Context) error { return nil }},
	}

	result, err := exec.Run(context.Background(), RunConfig{Mode: ModeFunctional, Phases: phases})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
	require.Len(t, result.PhaseResults, 2)
	assert.Equal(t, PhaseFailed, result.PhaseResults[0].Status)
	assert.Equal(t, PhaseCompleted, result.PhaseResults[1].Status)
}

func TestPostActionSkippedWhenActionFails(t *testing.T) {
	clock := clockwork.NewFakeClock()
	exec := New(clock, nil, &fakeLogger{}, nil)

	postRan := false
	phases := []*Phase{
		{
			Name:  "bad",
			State: ambientState(),
			Action: func(tc *Context) error {
				return errors.New("boom")
			},
			PostAction: func(tc *Context) error {
				postRan = true
				return nil
			},
		},
	}

	_, err := exec.Run(context.Background(), RunConfig{Mode: ModeFunctional, Phases: phases})
	require.NoError(t, err)
	assert.False(t, postRan)
}

func TestSkipIfSkipsBeforeStateTransition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	exec := New(clock, nil, &fakeLogger{}, nil)

	actionRan := false
	phases := []*Phase{
		{
			Name:  "conditionally-skipped",
			State: soakState(),
			SkipIf: func(tc *Context) (bool, error) {
				return true, nil
			},
			Action: func(tc *Context) error {
				actionRan = true
				return nil
			},
		},
	}

	result, err := exec.Run(context.Background(), RunConfig{Mode: ModeFunctional, Phases: phases})
	require.NoError(t, err)
	assert.Equal(t, RunPassed, result.Status)
	require.Len(t, result.PhaseResults, 1)
	assert.Equal(t, PhaseSkipped, result.PhaseResults[0].Status)
	assert.False(t, actionRan)
}

func TestHASSModeCyclesUntilAbort(t *testing.T) {
	clock := clockwork.NewFakeClock()
	exec := New(clock, nil, &fakeLogger{}, nil)

	cycles := 0
	phases := []*Phase{
		{Name: "soak", State: soakState(), Action: func(tc *Context) error {
			cycles++
			if cycles >= 3 {
				require.NoError(t, exec.Abort())
			}
			return nil
		}},
	}

	result, err := exec.Run(context.Background(), RunConfig{Mode: ModeHASS, Phases: phases})
	require.NoError(t, err)
	assert.Equal(t, RunAborted, result.Status)
	assert.GreaterOrEqual(t, result.CycleCount, 3)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	clock := clockwork.NewFakeClock()
	exec := New(clock, nil, &fakeLogger{}, nil)

	blocking := make(chan struct{})
	phases := []*Phase{
		{Name: "block", State: ambientState(), Action: func(tc *Context) error {
			<-blocking
			return nil
		}},
	}

	done := make(chan struct{})
	go func() {
		_, _ = exec.Run(context.Background(), RunConfig{Mode: ModeFunctional, Phases: phases})
		close(done)
	}()

	// Give the goroutine a chance to mark the executor running: poll
	// isRunning (up to 1000 checks) until the first Run has set the
	// running flag, which it does under e.mu before any setup work.
	for i := 0; i < 1000 && !exec.isRunning(); i++ {
	}

	_, err := exec.Run(context.Background(), RunConfig{Mode: ModeFunctional, Phases: phases})
	assert.ErrorIs(t, err, ErrBusy)

	close(blocking)
	<-done
}

func TestMonitorFeedEvaluatesAgainstCurrentState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	schema, err := telemetry.NewStreamSchema("dut_power", []telemetry.StreamField{
		{Name: "voltage", Type: telemetry.F64, Unit: "V"},
	})
	require.NoError(t, err)

	def := monitor.Definition{
		Name: "voltage_monitor",
		States: map[telemetry.StateId]map[telemetry.ChannelId]monitor.Bound{
			"soak": {
				"voltage": monitor.ThresholdBound(telemetry.Threshold{
					Channel: "voltage",
					Low:     &telemetry.ThresholdBound{Value: 4.5, Bound: telemetry.Inclusive},
					High:    &telemetry.ThresholdBound{Value: 5.5, Bound: telemetry.Inclusive},
				}),
			},
		},
	}
	mon := monitor.New(def, "voltage_monitor")

	exec := New(clock, nil, &fakeLogger{}, []*monitor.Monitor{mon})

	frames := make(chan telemetry.StreamData, 1)
	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F64, 10.0)}})
	require.NoError(t, err)

	phases := []*Phase{
		// State is set to "soak" before this action runs (Phase.Execute
		// calls SetState ahead of pre/action/post), so sending the
		// frame here guarantees the monitor feed observes a state by
		// the time it processes it.
		{Name: "soak", State: soakState(), Action: func(tc *Context) error {
			frames <- data
			close(frames)
			return nil
		}},
	}

	result, err := exec.Run(context.Background(), RunConfig{
		Mode:   ModeFunctional,
		Phases: phases,
		Feeds: []MonitorFeed{
			{SourceID: "dut_power", Schema: schema, Frames: frames},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, RunPassed, result.Status)

	summary, ok := result.MonitorResults["voltage_monitor"]
	require.True(t, ok)
	assert.Equal(t, 1, summary.VerdictCount[telemetry.VerdictFail])
	require.Len(t, summary.Recent, 1)
	require.Len(t, summary.Recent[0].Violations, 1)
	assert.Equal(t, telemetry.ChannelId("voltage"), summary.Recent[0].Violations[0].Channel)
}
