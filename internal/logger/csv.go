// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/telemetry"
)

// CSVLoggerConfig configures a CSVLogger.
type CSVLoggerConfig struct {
	// OutputDir is the base directory for log files.
	OutputDir string
	// BufferSize is the number of rows buffered before flushing a
	// topic's CSV writer into its buffered gzip stream; the file is
	// complete only after Stop closes that stream.
	BufferSize int
}

func (c CSVLoggerConfig) bufferSize() int {
	if c.BufferSize <= 0 {
		return 100
	}
	return c.BufferSize
}

type csvTopicWriter struct {
	file    *os.File
	gz      *gzip.Writer
	buf     *bufio.Writer
	writer  *csv.Writer
	schema  telemetry.StreamSchema
	rows    int
}

// CSVLogger writes one gzip-compressed CSV file per topic under
// {root}/{test_type}/{test_case_id}/{test_run_id}/{topic}.csv.gz, plus a
// metadata.json sidecar recording tags and per-topic schemas. Grounded
// on hwtest_logger/csv_logger.py's CsvStreamLogger, generalised from a
// plain file to a gzip-compressed one so long HALT/HASS runs don't
// exhaust a bench's disk.
type CSVLogger struct {
	cfg CSVLoggerConfig

	mu      sync.Mutex
	running bool
	tags    Tags
	logDir  string
	schemas map[string]telemetry.StreamSchema
	writers map[string]*csvTopicWriter
}

func NewCSVLogger(cfg CSVLoggerConfig) *CSVLogger {
	return &CSVLogger{
		cfg:     cfg,
		schemas: make(map[string]telemetry.StreamSchema),
		writers: make(map[string]*csvTopicWriter),
	}
}

func (c *CSVLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[topic] = schema
	return nil
}

func (c *CSVLogger) Start(tags Tags) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	c.tags = tags
	logDir := filepath.Join(c.cfg.OutputDir, orUnknown(tags.get(TagTestType)), orUnknown(tags.get(TagTestCaseID)), orUnknown(tags.get(TagTestRunID)))
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return fmt.Errorf("logger: create csv log directory: %w", err)
	}
	c.logDir = logDir
	c.writers = make(map[string]*csvTopicWriter)
	c.running = true
	log.Infof("logger: csv logger writing to %s", logDir)
	return nil
}

func (c *CSVLogger) Log(topic string, data telemetry.StreamData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}

	schema, ok := c.schemas[topic]
	if !ok {
		return ErrUnknownTopic
	}
	if data.SchemaID != schema.SchemaID() {
		return ErrSchemaMismatch
	}

	w, err := c.writerFor(topic, schema)
	if err != nil {
		return err
	}

	for i, sample := range data.Samples {
		row := make([]string, 0, len(sample)+1)
		row = append(row, strconv.FormatInt(data.TimestampAt(i), 10))
		for _, v := range sample {
			row = append(row, v.String())
		}
		if err := w.writer.Write(row); err != nil {
			return fmt.Errorf("logger: write csv row: %w", err)
		}
		w.rows++
	}

	if w.rows >= c.cfg.bufferSize() {
		w.writer.Flush()
		w.rows = 0
	}
	return w.writer.Error()
}

func (c *CSVLogger) writerFor(topic string, schema telemetry.StreamSchema) (*csvTopicWriter, error) {
	if w, ok := c.writers[topic]; ok {
		return w, nil
	}

	safeTopic := strings.NewReplacer("/", "_", ".", "_").Replace(topic)
	path := filepath.Join(c.logDir, safeTopic+".csv.gz")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("logger: create csv file %q: %w", path, err)
	}
	gz := gzip.NewWriter(file)
	buf := bufio.NewWriter(gz)
	csvWriter := csv.NewWriter(buf)

	header := append([]string{"timestamp_ns"}, fieldNames(schema)...)
	if err := csvWriter.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("logger: write csv header for %q: %w", topic, err)
	}
	csvWriter.Flush()

	w := &csvTopicWriter{file: file, gz: gz, buf: buf, writer: csvWriter, schema: schema}
	c.writers[topic] = w
	return w, nil
}

func (c *CSVLogger) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}

	var firstErr error
	for topic, w := range c.writers {
		w.writer.Flush()
		if err := w.buf.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: flush csv buffer for %q: %w", topic, err)
		}
		if err := w.gz.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: close gzip stream for %q: %w", topic, err)
		}
		if err := w.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger: close csv file for %q: %w", topic, err)
		}
	}

	if err := c.writeMetadata(); err != nil && firstErr == nil {
		firstErr = err
	}

	c.writers = make(map[string]*csvTopicWriter)
	c.running = false
	return firstErr
}

func (c *CSVLogger) writeMetadata() error {
	if c.logDir == "" {
		return nil
	}

	type fieldMeta struct {
		Name string `json:"name"`
		Type string `json:"dtype"`
		Unit string `json:"unit"`
	}
	type schemaMeta struct {
		SourceID string      `json:"source_id"`
		SchemaID string      `json:"schema_id"`
		Fields   []fieldMeta `json:"fields"`
	}

	metadata := make(map[string]any, len(c.tags)+2)
	for k, v := range c.tags {
		metadata[k] = v
	}
	topics := make([]string, 0, len(c.schemas))
	schemas := make(map[string]schemaMeta, len(c.schemas))
	for topic, schema := range c.schemas {
		topics = append(topics, topic)
		fields := make([]fieldMeta, 0, schema.FieldCount())
		for _, f := range schema.Fields() {
			fields = append(fields, fieldMeta{Name: f.Name, Type: f.Type.String(), Unit: f.Unit})
		}
		schemas[topic] = schemaMeta{
			SourceID: string(schema.SourceID()),
			SchemaID: fmt.Sprintf("0x%08x", schema.SchemaID()),
			Fields:   fields,
		}
	}
	metadata["topics"] = topics
	metadata["schemas"] = schemas

	path := filepath.Join(c.logDir, "metadata.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("logger: create metadata.json: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(metadata)
}

func (c *CSVLogger) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LogDirectory returns the current session's log directory, or "" if
// not started.
func (c *CSVLogger) LogDirectory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logDir
}

func fieldNames(schema telemetry.StreamSchema) []string {
	fields := schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
