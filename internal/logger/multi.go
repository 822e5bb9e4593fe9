// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"fmt"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// MultiLogger fans every call out to a fixed set of sinks, continuing
// past individual sink errors so that one broken destination (a
// network-unreachable InfluxDB, say) does not take down the others. It
// reports the first error encountered, if any, after every sink has
// been given a chance to run.
type MultiLogger struct {
	sinks []Logger
}

func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

func (m *MultiLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.RegisterSchema(topic, schema); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: multi register schema: %w", err)
		}
	}
	return firstErr
}

func (m *MultiLogger) Start(tags Tags) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Start(tags); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: multi start: %w", err)
		}
	}
	return firstErr
}

func (m *MultiLogger) Log(topic string, data telemetry.StreamData) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Log(topic, data); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: multi log %q: %w", topic, err)
		}
	}
	return firstErr
}

func (m *MultiLogger) Stop() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: multi stop: %w", err)
		}
	}
	return firstErr
}

func (m *MultiLogger) IsRunning() bool {
	for _, sink := range m.sinks {
		if sink.IsRunning() {
			return true
		}
	}
	return false
}
