// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/linkedin/goavro/v2"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// AvroCheckpointLoggerConfig configures an AvroCheckpointLogger.
type AvroCheckpointLoggerConfig struct {
	OutputDir string
}

type avroTopicWriter struct {
	file   *os.File
	codec  *goavro.Codec
	writer *goavro.OCFWriter
}

// AvroCheckpointLogger appends every logged batch to one deflate-
// compressed Avro Object Container File per topic, generating the
// record schema from the topic's registered StreamSchema fields and
// appending batches to an OCF writer with CompressionDeflateLabel. This
// logger's file is the permanent artifact, not a resumable in-memory
// checkpoint, so there is no read-merge-rewrite step.
type AvroCheckpointLogger struct {
	cfg AvroCheckpointLoggerConfig

	mu      sync.Mutex
	running bool
	logDir  string
	schemas map[string]telemetry.StreamSchema
	writers map[string]*avroTopicWriter
}

func NewAvroCheckpointLogger(cfg AvroCheckpointLoggerConfig) *AvroCheckpointLogger {
	return &AvroCheckpointLogger{
		cfg:     cfg,
		schemas: make(map[string]telemetry.StreamSchema),
		writers: make(map[string]*avroTopicWriter),
	}
}

func (a *AvroCheckpointLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schemas[topic] = schema
	return nil
}

func (a *AvroCheckpointLogger) Start(tags Tags) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	logDir := filepath.Join(a.cfg.OutputDir, orUnknown(tags.get(TagTestType)), orUnknown(tags.get(TagTestCaseID)), orUnknown(tags.get(TagTestRunID)))
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return fmt.Errorf("logger: create avro log directory: %w", err)
	}
	a.logDir = logDir
	a.writers = make(map[string]*avroTopicWriter)
	a.running = true
	return nil
}

func (a *AvroCheckpointLogger) Log(topic string, data telemetry.StreamData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return ErrNotRunning
	}

	schema, ok := a.schemas[topic]
	if !ok {
		return ErrUnknownTopic
	}
	if data.SchemaID != schema.SchemaID() {
		return ErrSchemaMismatch
	}

	w, err := a.writerFor(topic, schema)
	if err != nil {
		return err
	}

	records := make([]map[string]any, len(data.Samples))
	fields := schema.Fields()
	for i, sample := range data.Samples {
		record := make(map[string]any, len(fields)+1)
		record["timestamp_ns"] = data.TimestampAt(i)
		for j, f := range fields {
			record[f.Name] = sample[j].Float64()
		}
		records[i] = record
	}

	if err := w.writer.Append(records); err != nil {
		return fmt.Errorf("logger: append avro records for %q: %w", topic, err)
	}
	return nil
}

func (a *AvroCheckpointLogger) writerFor(topic string, schema telemetry.StreamSchema) (*avroTopicWriter, error) {
	if w, ok := a.writers[topic]; ok {
		return w, nil
	}

	codec, err := goavro.NewCodec(avroRecordSchema(topic, schema))
	if err != nil {
		return nil, fmt.Errorf("logger: build avro codec for %q: %w", topic, err)
	}

	safeTopic := strings.NewReplacer("/", "_", ".", "_").Replace(topic)
	path := filepath.Join(a.logDir, safeTopic+".avro")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("logger: create avro file %q: %w", path, err)
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               file,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("logger: open ocf writer for %q: %w", topic, err)
	}

	w := &avroTopicWriter{file: file, codec: codec, writer: ocfWriter}
	a.writers[topic] = w
	return w, nil
}

func avroRecordSchema(topic string, schema telemetry.StreamSchema) string {
	fields := []map[string]any{
		{"name": "timestamp_ns", "type": "long"},
	}
	for _, f := range schema.Fields() {
		fields = append(fields, map[string]any{"name": f.Name, "type": "double"})
	}
	doc := map[string]any{
		"type":   "record",
		"name":   "StreamSample",
		"fields": fields,
	}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

func (a *AvroCheckpointLogger) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}

	var firstErr error
	for topic, w := range a.writers {
		if err := w.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: close avro file for %q: %w", topic, err)
		}
	}
	a.writers = make(map[string]*avroTopicWriter)
	a.running = false
	return firstErr
}

func (a *AvroCheckpointLogger) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// LogDirectory returns the current session's log directory, or "" if
// not started.
func (a *AvroCheckpointLogger) LogDirectory() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logDir
}
