// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/telemetry"
)

// InfluxDBLoggerConfig configures an InfluxDBLogger. Grounded on
// hwtest_logger/influxdb_logger.py's InfluxDbStreamLoggerConfig: URL,
// org and bucket identify the target database; Token authenticates.
type InfluxDBLoggerConfig struct {
	URL         string
	Org         string
	Bucket      string
	Token       string
	Measurement string
}

func (c InfluxDBLoggerConfig) measurement() string {
	if c.Measurement == "" {
		return "telemetry"
	}
	return c.Measurement
}

// InfluxDBLogger writes every logged sample as one influxdb2 Point,
// tagged with topic and the session's run tags, using the non-blocking
// write API so Log never stalls on network latency. Grounded on
// hwtest_logger/influxdb_logger.py's InfluxDbStreamLogger.
type InfluxDBLogger struct {
	cfg InfluxDBLoggerConfig

	mu       sync.Mutex
	running  bool
	tags     Tags
	schemas  map[string]telemetry.StreamSchema
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

func NewInfluxDBLogger(cfg InfluxDBLoggerConfig) *InfluxDBLogger {
	return &InfluxDBLogger{cfg: cfg, schemas: make(map[string]telemetry.StreamSchema)}
}

func (l *InfluxDBLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.schemas[topic] = schema
	return nil
}

func (l *InfluxDBLogger) Start(tags Tags) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	l.tags = tags
	l.client = influxdb2.NewClient(l.cfg.URL, l.cfg.Token)
	l.writeAPI = l.client.WriteAPI(l.cfg.Org, l.cfg.Bucket)

	go func() {
		for err := range l.writeAPI.Errors() {
			log.Warnf("logger: influxdb async write error: %v", err)
		}
	}()

	l.running = true
	return nil
}

func (l *InfluxDBLogger) Log(topic string, data telemetry.StreamData) error {
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
		point := write.NewPointWithMeasurement(l.cfg.measurement())
		point.AddTag("topic", topic)
		for k, v := range l.tags {
			point.AddTag(k, v)
		}
		for j, value := range sample {
			point.AddField(fields[j].Name, fieldValue(value))
		}
		point.SetTime(time.Unix(0, data.TimestampAt(i)))
		l.writeAPI.WritePoint(point)
	}
	return nil
}

func (l *InfluxDBLogger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}

	l.writeAPI.Flush()
	l.client.Close()
	l.running = false
	return nil
}

func (l *InfluxDBLogger) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// fieldValue widens v to the native Go type its DataType carries, so
// signed and unsigned fields are written to InfluxDB as exact int64/
// uint64 fields rather than a lossy float64 conversion.
func fieldValue(v telemetry.Value) any {
	switch {
	case v.Type().IsSigned():
		return v.Int64()
	case v.Type().IsUnsigned():
		return v.Uint64()
	default:
		return v.Float64()
	}
}
