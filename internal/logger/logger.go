// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logger ships concrete implementations of the logger sink
// interface: register a schema per topic, start a session tagged with
// run metadata, append StreamData batches, stop and flush. Each
// sink persists *logged* data for later analysis — a separate concern
// from the core streaming path, which persists nothing beyond what the
// broker retains on its own.
package logger

import (
	"errors"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// ErrUnknownTopic is returned by Log when topic has no registered
// schema.
var ErrUnknownTopic = errors.New("logger: unknown topic")

// ErrSchemaMismatch is returned by Log when data.SchemaID disagrees
// with the topic's registered schema.
var ErrSchemaMismatch = errors.New("logger: data frame schema_id does not match registered schema")

// ErrNotRunning is returned by Log when called before Start or after
// Stop.
var ErrNotRunning = errors.New("logger: not running")

// Recognised tag keys. Unknown keys are preserved but carry no
// semantics.
const (
	TagTestRunID  = "test_run_id"
	TagTestCaseID = "test_case_id"
	TagTestType   = "test_type"
	TagRackID     = "rack_id"
	TagDUTSerial  = "dut_serial"
)

// Test types recognised for TagTestType, matching the executor's modes.
const (
	TestTypeFunctional = "functional"
	TestTypeHASS       = "hass"
	TestTypeHALT       = "halt"
)

// Tags is the string-keyed metadata map passed to Start. Recognised
// keys are named above; anything else is preserved verbatim.
type Tags map[string]string

func (t Tags) get(key string) string { return t[key] }

// Logger is the sink interface every concrete logger (and MultiLogger)
// implements.
type Logger interface {
	RegisterSchema(topic string, schema telemetry.StreamSchema) error
	Start(tags Tags) error
	Log(topic string, data telemetry.StreamData) error
	Stop() error
	IsRunning() bool
}
