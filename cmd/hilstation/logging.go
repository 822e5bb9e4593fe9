// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"

	"github.com/hiltest/hilcore/internal/logger"
)

// buildLogger assembles the Logger a run will use from the station's
// logging configuration, fanning out through a MultiLogger when more
// than one sink is in use. A CSV sink is always part of the stack,
// using ./var/hil-logs when no CSV config is set, matching
// cc-backend's "sqlite3 unless told otherwise" posture for its own
// default store.
func buildLogger(cfg LoggingConfig) (logger.Logger, error) {
	var sinks []logger.Logger

	csvCfg := cfg.CSV
	if csvCfg == nil {
		csvCfg = &logger.CSVLoggerConfig{OutputDir: "./var/hil-logs"}
	}
	csvSink := logger.NewCSVLogger(*csvCfg)
	sinks = append(sinks, csvSink)

	if cfg.LineProtocol != nil {
		sinks = append(sinks, logger.NewLineProtocolLogger(*cfg.LineProtocol))
	}
	if cfg.InfluxDB != nil {
		sinks = append(sinks, logger.NewInfluxDBLogger(*cfg.InfluxDB))
	}

	var avroSink *logger.AvroCheckpointLogger
	if cfg.Avro != nil {
		avroSink = logger.NewAvroCheckpointLogger(*cfg.Avro)
		sinks = append(sinks, avroSink)
	}

	if cfg.S3 != nil {
		// The S3 archive wraps whichever directory-backed sink is
		// available, preferring Avro over the always-present CSV sink
		// when Avro is configured since Avro already batches per topic.
		var dirLogger logger.DirLogger = csvSink
		if avroSink != nil {
			dirLogger = avroSink
		}
		s3Sink, err := logger.NewS3ArchiveLogger(dirLogger, *cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("hilstation: build s3 archive sink: %w", err)
		}
		// Replace the wrapped sink in the fan-out list with its S3
		// decorator so Stop() triggers exactly one upload pass instead
		// of archiving twice.
		for i, s := range sinks {
			if s == logger.Logger(dirLogger) {
				sinks[i] = s3Sink
				break
			}
		}
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return logger.NewMultiLogger(sinks...), nil
}
