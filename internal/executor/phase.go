// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/jonboulle/clockwork"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// PhaseStatus is a phase's terminal or in-progress state, matching
// hwtest_testcase/phase.py's PhaseStatus enum.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// PhaseResult is the immutable outcome of executing one phase.
type PhaseResult struct {
	PhaseName string
	Status    PhaseStatus
	StartTime telemetry.Timestamp
	EndTime   telemetry.Timestamp
	StateId   telemetry.StateId
	Message   string
	Errors    []string

	// Duration echoes the phase's configured nominal duration, so a
	// report can compare it against DurationNs() without needing the
	// originating Phase.
	Duration time.Duration
}

func (r PhaseResult) Passed() bool { return r.Status == PhaseCompleted }

func (r PhaseResult) DurationNs() int64 { return r.EndTime.UnixNs - r.StartTime.UnixNs }

// PhaseAction is a caller-supplied hook run during a phase: pre_action,
// action, or post_action. Returning an error fails the phase.
type PhaseAction func(tc *Context) error

// SkipPredicate decides whether a phase should be skipped before it
// transitions to any state. Returning an error fails the phase, the
// same as an action error would.
type SkipPredicate func(tc *Context) (bool, error)

// Phase is one named step of a run: a target environmental state, an
// optional nominal duration, optional pre/main/post actions, and an
// optional skip predicate. Grounded on hwtest_testcase/phase.py's
// TestPhase/TestPhase.execute.
type Phase struct {
	Name        string
	State       telemetry.EnvironmentalState
	Description string
	// Duration is the phase's optional nominal dwell time. The executor
	// does not itself enforce it; it is carried through to PhaseResult
	// so a phase's Action (which owns the actual hold) and any report
	// consuming the run can agree on the configured target.
	Duration    time.Duration
	PreAction   PhaseAction
	Action      PhaseAction
	PostAction  PhaseAction
	SkipIf      SkipPredicate
	Metadata    map[string]any

	// skipExpr is an alternative to SkipIf: a compiled expr-lang
	// program evaluated against case_parameters plus the current
	// cycle number. Set via WithSkipExpr; the testdef loader does not
	// set it.
	skipExpr *vm.Program
}

func (p Phase) StateId() telemetry.StateId { return p.State.StateId }

// WithSkipExpr compiles source as a boolean expr-lang expression and
// attaches it to the phase as its skip predicate. Compiling once here
// and caching the program on the phase avoids re-parsing the
// expression on every evaluation.
func (p *Phase) WithSkipExpr(source string) error {
	program, err := expr.Compile(source, expr.AsBool())
	if err != nil {
		return fmt.Errorf("executor: compile skip_if expression for phase %q: %w", p.Name, err)
	}
	p.skipExpr = program
	return nil
}

func (p *Phase) shouldSkip(tc *Context) (bool, error) {
	if p.SkipIf != nil {
		return p.SkipIf(tc)
	}
	if p.skipExpr == nil {
		return false, nil
	}

	env := make(map[string]any, len(tc.CaseParameters)+1)
	for k, v := range tc.CaseParameters {
		env[k] = v
	}
	env["cycle"] = tc.Cycle

	out, err := expr.Run(p.skipExpr, env)
	if err != nil {
		return false, fmt.Errorf("executor: evaluate skip_if for phase %q: %w", p.Name, err)
	}
	skip, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("executor: skip_if for phase %q did not evaluate to a bool", p.Name)
	}
	return skip, nil
}

// StateSetter is the narrow interface the executor needs of a state
// publisher: SetState(C5), satisfied by *statebus.StatePublisher.
type StateSetter interface {
	SetState(state telemetry.StateId, reason string) error
}

// Execute runs the phase to completion, exactly per the lifecycle:
// skip_if is checked first, before any state transition; otherwise the
// phase's target state is set (on the context and, if statePub is
// non-nil, on the state bus) before pre_action runs; pre/action/post
// run in sequence, each a terminal failure if it errors; post_action
// only runs if action succeeded.
func (p *Phase) Execute(clock clockwork.Clock, tc *Context, statePub StateSetter) PhaseResult {
	start := telemetry.FromTime(clock.Now())

	skip, err := p.shouldSkip(tc)
	if err != nil {
		return PhaseResult{
			PhaseName: p.Name,
			Status:    PhaseFailed,
			StartTime: start,
			EndTime:   telemetry.FromTime(clock.Now()),
			StateId:   p.StateId(),
			Message:   fmt.Sprintf("skip_if evaluation failed: %v", err),
			Errors:    []string{err.Error()},
			Duration:  p.Duration,
		}
	}
	if skip {
		return PhaseResult{
			PhaseName: p.Name,
			Status:    PhaseSkipped,
			StartTime: start,
			EndTime:   telemetry.FromTime(clock.Now()),
			StateId:   p.StateId(),
			Message:   "skipped by condition",
			Duration:  p.Duration,
		}
	}

	tc.SetState(p.State)
	if statePub != nil {
		if err := statePub.SetState(p.State.StateId, "phase:"+p.Name); err != nil {
			return PhaseResult{
				PhaseName: p.Name,
				Status:    PhaseFailed,
				StartTime: start,
				EndTime:   telemetry.FromTime(clock.Now()),
				StateId:   p.StateId(),
				Message:   fmt.Sprintf("failed to publish state transition: %v", err),
				Errors:    []string{err.Error()},
				Duration:  p.Duration,
			}
		}
	}

	var errs []string
	status := PhaseCompleted
	message := "phase completed successfully"

	if err := runHook(p.PreAction, tc); err != nil {
		status, message, errs = PhaseFailed, fmt.Sprintf("pre_action failed: %v", err), []string{err.Error()}
	} else if err := runHook(p.Action, tc); err != nil {
		status, message, errs = PhaseFailed, fmt.Sprintf("action failed: %v", err), []string{err.Error()}
	} else if err := runHook(p.PostAction, tc); err != nil {
		status, message, errs = PhaseFailed, fmt.Sprintf("post_action failed: %v", err), []string{err.Error()}
	}

	return PhaseResult{
		PhaseName: p.Name,
		Status:    status,
		StartTime: start,
		EndTime:   telemetry.FromTime(clock.Now()),
		StateId:   p.StateId(),
		Message:   message,
		Errors:    errs,
		Duration:  p.Duration,
	}
}

func runHook(action PhaseAction, tc *Context) error {
	if action == nil {
		return nil
	}
	return action(tc)
}
