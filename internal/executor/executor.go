// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/hiltest/hilcore/internal/logger"
	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/metrics"
	"github.com/hiltest/hilcore/pkg/monitor"
	"github.com/hiltest/hilcore/pkg/telemetry"
)

// Mode selects how a run repeats its phase sequence.
type Mode string

const (
	// ModeFunctional is a single pass through all phases.
	ModeFunctional Mode = "functional"
	// ModeHASS repeats passes until a phase fails or abort/stop is requested.
	ModeHASS Mode = "hass"
	// ModeHALT is control-flow identical to ModeHASS; stress escalation
	// lives in the phase definitions, not in the executor.
	ModeHALT Mode = "halt"
)

// RunStatus is a run's terminal or in-progress state, matching
// hwtest_testcase/testcase.py's TestStatus enum.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunPassed  RunStatus = "passed"
	RunFailed  RunStatus = "failed"
	RunError   RunStatus = "error"
	RunAborted RunStatus = "aborted"
)

// RunResult is the outcome of one call to Run, snapshot-able mid-run
// through Status.
type RunResult struct {
	RunID          string
	TestName       string
	Mode           Mode
	Status         RunStatus
	StartTime      telemetry.Timestamp
	EndTime        telemetry.Timestamp
	CycleCount     int
	PhaseResults   []PhaseResult
	MonitorResults map[telemetry.MonitorId]MonitorSummary
	Message        string
	Errors         []string
}

func (r RunResult) Passed() bool { return r.Status == RunPassed }

func (r RunResult) Failed() bool { return r.Status == RunFailed || r.Status == RunError }

// MonitorFeed is one source of data frames the executor evaluates
// against every registered monitor for the run's duration: the source
// id (also the logger topic), its schema, and the channel frames arrive
// on. Each sample is mapped to named channel values by field position
// in Schema.
type MonitorFeed struct {
	SourceID telemetry.SourceId
	Schema   telemetry.StreamSchema
	Frames   <-chan telemetry.StreamData
}

// RunConfig configures one call to Run.
type RunConfig struct {
	// RunID defaults to a generated UUID when empty.
	RunID          string
	TestName       string
	Description    string
	Mode           Mode
	Phases         []*Phase
	CaseParameters map[string]any
	Tags           logger.Tags
	// Feeds are data sources evaluated against every registered
	// monitor for the run's duration.
	Feeds []MonitorFeed
}

// Executor drives one run at a time through a sequence of phases,
// arming the configured logger and monitors for the run's duration,
// and recording phase and monitor results into an in-memory ledger.
// Grounded on hwtest_testcase/testcase.py's TestCase.run.
type Executor struct {
	clock    clockwork.Clock
	statePub StateSetter
	log      logger.Logger
	monitors map[telemetry.MonitorId]*monitor.Monitor

	mu       sync.Mutex
	running  bool
	ledger   *ledger
	ctx      *Context
	testName string
	mode     Mode
	cycle    int
	status   RunStatus

	abortRequested atomic.Bool
	stopRequested  atomic.Bool
}

// New builds an Executor. clock defaults to the real wall clock if nil.
func New(clock clockwork.Clock, statePub StateSetter, log logger.Logger, monitors []*monitor.Monitor) *Executor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	m := make(map[telemetry.MonitorId]*monitor.Monitor, len(monitors))
	for _, mon := range monitors {
		m[mon.MonitorId()] = mon
	}
	return &Executor{
		clock:    clock,
		statePub: statePub,
		log:      log,
		monitors: m,
		ledger:   newLedger(),
		status:   RunPending,
	}
}

func (e *Executor) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Abort requests that the current run stop at the next phase boundary
// and terminate with RunAborted.
func (e *Executor) Abort() error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	e.abortRequested.Store(true)
	return nil
}

// RequestStop requests that a HASS/HALT run stop cycling after the
// current cycle completes, without marking the run as aborted.
func (e *Executor) RequestStop() error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	e.stopRequested.Store(true)
	return nil
}

// Status returns a snapshot of the current or most recently completed
// run.
func (e *Executor) Status() RunResult {
	e.mu.Lock()
	tc := e.ctx
	cycle := e.cycle
	status := e.status
	testName := e.testName
	mode := e.mode
	e.mu.Unlock()

	result := RunResult{
		Status:         status,
		Mode:           mode,
		TestName:       testName,
		CycleCount:     cycle,
		PhaseResults:   e.ledger.phases(),
		MonitorResults: e.ledger.monitorSummaries(),
	}
	if tc != nil {
		result.RunID = tc.RunID
	}
	return result
}

// Run executes cfg to completion. Only one Run may be in progress at a
// time; a concurrent call fails with ErrBusy.
func (e *Executor) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return RunResult{}, ErrBusy
	}
	e.running = true
	e.status = RunRunning
	e.cycle = 0
	e.abortRequested.Store(false)
	e.stopRequested.Store(false)
	e.ledger.reset()

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	tc := NewContext(runID, cfg.Description, cfg.CaseParameters)
	e.ctx = tc
	e.testName = cfg.TestName
	e.mode = cfg.Mode
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	start := telemetry.FromTime(e.clock.Now())
	tc.start(start)

	tags := mergeTags(cfg.Tags, runID, string(cfg.Mode))

	feedCtx, cancelFeeds := context.WithCancel(ctx)
	defer cancelFeeds()

	var setup errgroup.Group
	setup.Go(func() error {
		for _, feed := range cfg.Feeds {
			if err := e.log.RegisterSchema(string(feed.SourceID), feed.Schema); err != nil {
				return fmt.Errorf("register schema for %q: %w", feed.SourceID, err)
			}
		}
		return e.log.Start(tags)
	})
	for _, mon := range e.monitors {
		mon := mon
		setup.Go(mon.Start)
	}

	status, message, errs := RunRunning, "", []string(nil)

	if err := setup.Wait(); err != nil {
		status, message, errs = RunError, fmt.Sprintf("setup failed: %v", err), []string{err.Error()}
	} else {
		var feedGroup errgroup.Group
		for _, feed := range cfg.Feeds {
			feed := feed
			feedGroup.Go(func() error {
				e.runMonitorFeed(feedCtx, tc, feed)
				return nil
			})
		}

		aborted := e.runMode(cfg.Mode, tc, cfg.Phases)
		cancelFeeds()
		_ = feedGroup.Wait()

		switch {
		case aborted:
			status, message = RunAborted, "run aborted"
		case e.ledger.anyPhaseFailed():
			status, message = RunFailed, "one or more phases failed"
		default:
			status, message = RunPassed, "run completed successfully"
		}
	}

	var teardown errgroup.Group
	teardown.Go(e.log.Stop)
	for _, mon := range e.monitors {
		mon := mon
		teardown.Go(mon.Stop)
	}
	if err := teardown.Wait(); err != nil {
		log.Warnf("executor: teardown error for run %s: %v", runID, err)
		errs = append(errs, err.Error())
	}

	end := telemetry.FromTime(e.clock.Now())
	tc.stop(end)

	e.mu.Lock()
	e.status = status
	cycle := e.cycle
	e.mu.Unlock()

	result := RunResult{
		RunID:          runID,
		TestName:       cfg.TestName,
		Mode:           cfg.Mode,
		Status:         status,
		StartTime:      start,
		EndTime:        end,
		CycleCount:     cycle,
		PhaseResults:   e.ledger.phases(),
		MonitorResults: e.ledger.monitorSummaries(),
		Message:        message,
		Errors:         errs,
	}

	metrics.RunOutcomesTotal.WithLabelValues(string(cfg.Mode), string(status)).Inc()
	return result, nil
}

// runMode drives the phase sequence once (ModeFunctional) or
// repeatedly (ModeHASS/ModeHALT), returning true if the run was
// aborted mid-sequence.
func (e *Executor) runMode(mode Mode, tc *Context, phases []*Phase) bool {
	switch mode {
	case ModeHASS, ModeHALT:
		for {
			tc.Cycle = e.currentCycle()
			aborted := e.runPhaseSequence(tc, phases)
			e.incrementCycle()
			metrics.CyclesTotal.WithLabelValues(string(mode)).Inc()

			if aborted {
				return true
			}
			if e.ledger.anyPhaseFailed() {
				return false
			}
			if e.stopRequested.Load() {
				return false
			}
		}
	default:
		return e.runPhaseSequence(tc, phases)
	}
}

func (e *Executor) currentCycle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle
}

func (e *Executor) incrementCycle() {
	e.mu.Lock()
	e.cycle++
	e.mu.Unlock()
}

// runPhaseSequence runs every phase in order, recording each result.
// Execution continues through a phase failure (matching the Python
// original, which logs but does not raise on a failed phase); only an
// abort request stops the sequence early, checked at each phase
// boundary.
func (e *Executor) runPhaseSequence(tc *Context, phases []*Phase) (aborted bool) {
	for _, phase := range phases {
		if e.abortRequested.Load() {
			return true
		}

		result := phase.Execute(e.clock, tc, e.statePub)
		e.ledger.addPhaseResult(result)
		metrics.PhaseDurationSeconds.WithLabelValues(phase.Name, string(result.Status)).
			Observe(float64(result.DurationNs()) / 1e9)

		if result.Status == PhaseFailed {
			log.Errorf("executor: phase %q failed for run %s: %s", phase.Name, tc.RunID, result.Message)
		}
	}
	return false
}

// runMonitorFeed evaluates every incoming frame from feed against
// every registered monitor, using whatever environmental state is
// current at the moment the frame is processed — never retroactively
// re-evaluated against a state that has since changed.
func (e *Executor) runMonitorFeed(ctx context.Context, tc *Context, feed MonitorFeed) {
	fields := feed.Schema.Fields()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-feed.Frames:
			if !ok {
				return
			}
			if err := e.log.Log(string(feed.SourceID), data); err != nil {
				log.Warnf("executor: log frame from %q: %v", feed.SourceID, err)
			}

			state, hasState := tc.CurrentState()
			if !hasState {
				continue
			}
			for _, sample := range data.Samples {
				values := make(map[telemetry.ChannelId]float64, len(fields))
				for i, f := range fields {
					values[telemetry.ChannelId(f.Name)] = sample[i].Float64()
				}
				for _, mon := range e.monitors {
					result := mon.Evaluate(values, state)
					e.ledger.recordMonitorResult(result)
					metrics.MonitorVerdictsTotal.WithLabelValues(string(mon.MonitorId()), string(result.Verdict)).Inc()
				}
			}
		}
	}
}

func mergeTags(tags logger.Tags, runID, mode string) logger.Tags {
	out := make(logger.Tags, len(tags)+2)
	for k, v := range tags {
		out[k] = v
	}
	if _, ok := out[logger.TagTestRunID]; !ok {
		out[logger.TagTestRunID] = runID
	}
	if _, ok := out[logger.TagTestType]; !ok {
		out[logger.TagTestType] = mode
	}
	return out
}
