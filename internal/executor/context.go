// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package executor

import (
	"sync"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// Context is shared across one run's execution: the current
// environmental state, timing, caller-supplied case parameters, and a
// scratch area for artifacts and shared resources (instrument handles,
// connections). Grounded on hwtest_testcase/context.py's TestContext,
// generalised with a mutex since pre/main/post actions and the monitor
// feed loop may touch it from more than one goroutine.
type Context struct {
	RunID          string
	Description    string
	CaseParameters map[string]any
	Cycle          int

	mu           sync.Mutex
	startTime    *telemetry.Timestamp
	endTime      *telemetry.Timestamp
	currentState *telemetry.EnvironmentalState
	metadata     map[string]any
	artifacts    map[string]string
	resources    map[string]any
}

// NewContext builds a Context for one run.
func NewContext(runID, description string, caseParameters map[string]any) *Context {
	return &Context{
		RunID:          runID,
		Description:    description,
		CaseParameters: caseParameters,
		metadata:       make(map[string]any),
		artifacts:      make(map[string]string),
		resources:      make(map[string]any),
	}
}

func (c *Context) start(now telemetry.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = &now
}

func (c *Context) stop(now telemetry.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = &now
}

// DurationNs returns the run duration in nanoseconds, or 0 if the run
// has not finished.
func (c *Context) DurationNs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime == nil || c.endTime == nil {
		return 0
	}
	return c.endTime.UnixNs - c.startTime.UnixNs
}

// SetState records the environmental state now in effect.
func (c *Context) SetState(state telemetry.EnvironmentalState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := state
	c.currentState = &s
}

// CurrentState returns the environmental state in effect, and true, or
// the zero value and false before the first phase has set one.
func (c *Context) CurrentState() (telemetry.EnvironmentalState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentState == nil {
		return telemetry.EnvironmentalState{}, false
	}
	return *c.currentState, true
}

func (c *Context) AddArtifact(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[name] = path
}

func (c *Context) GetArtifact(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.artifacts[name]
	return path, ok
}

func (c *Context) SetResource(name string, resource any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[name] = resource
}

func (c *Context) GetResource(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.resources[name]
	return r, ok
}

func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

func (c *Context) Metadata() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		cp[k] = v
	}
	return cp
}
