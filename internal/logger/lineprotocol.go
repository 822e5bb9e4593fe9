// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// LineProtocolLoggerConfig configures a LineProtocolLogger.
type LineProtocolLoggerConfig struct {
	// OutputDir is the base directory; each session writes one
	// {test_type}/{test_case_id}/{test_run_id}.lp file holding every
	// topic's samples, measurement-tagged by topic.
	OutputDir string
}

// LineProtocolLogger encodes every logged sample as one InfluxDB
// line-protocol line, writing the encoder side of the line-protocol
// format so the resulting file is directly consumable by any
// line-protocol decoder.
type LineProtocolLogger struct {
	cfg LineProtocolLoggerConfig

	mu      sync.Mutex
	running bool
	tags    Tags
	file    *os.File
	schemas map[string]telemetry.StreamSchema
	enc     *lineprotocol.Encoder
}

func NewLineProtocolLogger(cfg LineProtocolLoggerConfig) *LineProtocolLogger {
	return &LineProtocolLogger{schemas: make(map[string]telemetry.StreamSchema), cfg: cfg}
}

func (l *LineProtocolLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.schemas[topic] = schema
	return nil
}

func (l *LineProtocolLogger) Start(tags Tags) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	l.tags = tags
	dir := filepath.Join(l.cfg.OutputDir, orUnknown(tags.get(TagTestType)), orUnknown(tags.get(TagTestCaseID)))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("logger: create lineprotocol log directory: %w", err)
	}
	path := filepath.Join(dir, orUnknown(tags.get(TagTestRunID))+".lp")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("logger: create lineprotocol file: %w", err)
	}

	l.file = f
	l.enc = &lineprotocol.Encoder{}
	l.enc.SetPrecision(lineprotocol.Nanosecond)
	l.running = true
	return nil
}

func (l *LineProtocolLogger) Log(topic string, data telemetry.StreamData) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return ErrNotRunning
	}

	schema, ok := l.schemas[topic]
	if !ok {
		return ErrUnknownTopic
	}
	if data.SchemaID != schema.SchemaID() {
		return ErrSchemaMismatch
	}

	fields := schema.Fields()
	for i, sample := range data.Samples {
		l.enc.StartLine(topic)
		for k, v := range l.tags {
			l.enc.AddTag(k, v)
		}
		l.enc.AddTag("source_id", string(schema.SourceID()))
		for j, value := range sample {
			l.enc.AddField(fields[j].Name, lineprotocol.MustNewValue(lineValue(value)))
		}
		l.enc.EndLine(timeFromNanos(data.TimestampAt(i)))
		if err := l.enc.Err(); err != nil {
			return fmt.Errorf("logger: encode line for %q sample %d: %w", topic, i, err)
		}
	}

	if _, err := l.file.Write(l.enc.Bytes()); err != nil {
		return fmt.Errorf("logger: write lineprotocol bytes: %w", err)
	}
	l.enc.Reset()
	return nil
}

func (l *LineProtocolLogger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	var err error
	if l.file != nil {
		err = l.file.Close()
	}
	l.file = nil
	l.enc = nil
	l.running = false
	return err
}

func (l *LineProtocolLogger) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func timeFromNanos(ns int64) time.Time {
	return time.Unix(0, ns)
}

// lineValue widens v to the native Go type lineprotocol.NewValue
// accepts for its field's DataType, so signed and unsigned fields keep
// their exact int64/uint64 value in the encoded line instead of
// losing precision through a float64 intermediary.
func lineValue(v telemetry.Value) any {
	switch {
	case v.Type().IsSigned():
		return v.Int64()
	case v.Type().IsUnsigned():
		return v.Uint64()
	default:
		return v.Float64()
	}
}
