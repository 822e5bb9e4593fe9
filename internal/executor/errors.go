// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor implements C7: the test executor. It drives a
// sequence of phases through a state machine exactly mirroring
// hwtest_testcase's TestPhase/TestCase, arming monitors and loggers for
// the run's duration, feeding incoming data frames to every registered
// monitor in the context of whatever environmental state is current,
// and rendering a terminal run outcome.
package executor

import "errors"

// ErrBusy is returned by Run when a run is already in progress; the
// executor runs exactly one run at a time per station.
var ErrBusy = errors.New("executor: a run is already in progress")

// ErrNotRunning is returned by Abort/RequestStop when no run is active.
var ErrNotRunning = errors.New("executor: no run in progress")
