// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// avroOCFMagic is the 4-byte signature ('O', 'b', 'j', 1) every Avro
// Object Container File starts with. A writer that reopens a fresh OCF
// writer per Log call would emit this signature once per call instead
// of once per file.
var avroOCFMagic = []byte{'O', 'b', 'j', 1}

func TestAvroLoggerAppendsToOneOCFHeader(t *testing.T) {
	dir := t.TempDir()
	l := NewAvroCheckpointLogger(AvroCheckpointLoggerConfig{OutputDir: dir})

	schema := testSchema(t)
	require.NoError(t, l.RegisterSchema("dut_power", schema))
	require.NoError(t, l.Start(Tags{TagTestRunID: "run-1", TagTestCaseID: "case-1", TagTestType: TestTypeHASS}))

	batch1, err := telemetry.NewStreamData(schema, 0, 1_000_000, [][]telemetry.Value{
		{telemetry.FloatValue(telemetry.F32, 5.0), telemetry.FloatValue(telemetry.F32, 1.2)},
	})
	require.NoError(t, err)
	require.NoError(t, l.Log("dut_power", batch1))

	batch2, err := telemetry.NewStreamData(schema, 1_000_000, 1_000_000, [][]telemetry.Value{
		{telemetry.FloatValue(telemetry.F32, 5.1), telemetry.FloatValue(telemetry.F32, 1.3)},
		{telemetry.FloatValue(telemetry.F32, 5.2), telemetry.FloatValue(telemetry.F32, 1.4)},
	})
	require.NoError(t, err)
	require.NoError(t, l.Log("dut_power", batch2))

	require.NoError(t, l.Stop())

	path := filepath.Join(dir, "hass", "case-1", "run-1", "dut_power.avro")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(raw, avroOCFMagic), "expected exactly one OCF header in the file")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader, err := goavro.NewOCFReader(f)
	require.NoError(t, err)

	var records []map[string]any
	for reader.Scan() {
		rec, err := reader.Read()
		require.NoError(t, err)
		records = append(records, rec.(map[string]any))
	}
	require.NoError(t, reader.Err())
	assert.Len(t, records, 3)
}
