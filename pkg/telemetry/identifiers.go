// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry holds the core data model shared by every other
// package in this module: identifiers, the data type closed set, wire
// schemas and data batches, environmental states, thresholds, and
// monitor results. Nothing here talks to a network or a file; it is the
// vocabulary the rest of the station is built from.
package telemetry

// SourceId names an instrument or logical data producer, e.g. "psu" or
// "dut-thermocouple-1". ChannelId names a single measured field within a
// source's schema, e.g. "voltage". StateId names an environmental
// condition, e.g. "high_temp_soak". MonitorId names an evaluator
// instance. All four are opaque strings: equality is the only defined
// relation, there is no implied ordering.
type SourceId string

type ChannelId string

type StateId string

type MonitorId string
