// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hiltest/hilcore/internal/logger"
	"github.com/hiltest/hilcore/pkg/natsbus"
)

// StationConfig ties a broker connection, the sources a station logs
// and monitors, and the test cases available to run into a single
// file: a JSON struct decoded with DisallowUnknownFields. Based on
// hwtest_runner/config.py's StationConfig, translated from YAML to
// JSON since YAML parsing is out of scope.
type StationConfig struct {
	ID          string `json:"id"`
	Description string `json:"description"`

	Broker        natsbus.Config `json:"broker"`
	SubjectPrefix string         `json:"subject_prefix,omitempty"`

	// Sources lists the telemetry sources this station subscribes to
	// for logging and monitor evaluation while a test is running.
	Sources []string `json:"sources"`

	Logging LoggingConfig `json:"logging"`

	TestCases []TestCaseEntry `json:"test_cases"`
}

// TestCaseEntry is one runnable test case: a human-readable name, the
// path to its test-definition JSON document, and the modes it may be
// run in. Grounded on hwtest_runner/config.py's TestCaseEntry.
type TestCaseEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	Modes      []string `json:"modes"`
	// PhaseHoldMillis is how long the example runner dwells in an
	// environmental state that has no positive duration_seconds of its
	// own, before moving to the next one (default 200 ms). Real stations
	// replace this with hardware-driven phase actions; the example
	// binary only has the state machine to exercise, not a rack.
	PhaseHoldMillis int `json:"phase_hold_millis,omitempty"`
}

func (e TestCaseEntry) phaseHold() time.Duration {
	if e.PhaseHoldMillis <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(e.PhaseHoldMillis) * time.Millisecond
}

func (c StationConfig) testCase(id string) (TestCaseEntry, bool) {
	for _, tc := range c.TestCases {
		if tc.ID == id {
			return tc, true
		}
	}
	return TestCaseEntry{}, false
}

// LoggingConfig selects which logger sinks a run fans data out to.
// Unset sinks are simply not built, except CSV: a CSV sink is always
// built, writing to ./var/hil-logs when CSV is unset.
type LoggingConfig struct {
	CSV          *logger.CSVLoggerConfig          `json:"csv,omitempty"`
	LineProtocol *logger.LineProtocolLoggerConfig `json:"line_protocol,omitempty"`
	InfluxDB     *logger.InfluxDBLoggerConfig      `json:"influxdb,omitempty"`
	Avro         *logger.AvroCheckpointLoggerConfig `json:"avro,omitempty"`
	S3           *logger.S3ArchiveConfig          `json:"s3,omitempty"`
}

// loadStationConfig reads and decodes a station config file, rejecting
// unknown fields so a typo doesn't get silently ignored.
func loadStationConfig(path string) (StationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return StationConfig{}, fmt.Errorf("hilstation: open station config %q: %w", path, err)
	}
	defer f.Close()

	var cfg StationConfig
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return StationConfig{}, fmt.Errorf("hilstation: decode station config %q: %w", path, err)
	}
	if cfg.ID == "" {
		return StationConfig{}, fmt.Errorf("hilstation: station config %q missing required field \"id\"", path)
	}
	return cfg, nil
}

// overrideBrokerAddress lets --broker on the command line override
// station.json's broker address without requiring a second file.
func overrideBrokerAddress(cfg *StationConfig, addr string) {
	if addr != "" {
		cfg.Broker.Address = addr
	}
}
