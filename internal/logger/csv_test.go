// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

func testSchema(t *testing.T) telemetry.StreamSchema {
	t.Helper()
	schema, err := telemetry.NewStreamSchema("dut_power", []telemetry.StreamField{
		{Name: "voltage", Type: telemetry.F32, Unit: "V"},
		{Name: "current", Type: telemetry.F32, Unit: "A"},
	})
	require.NoError(t, err)
	return schema
}

func TestCSVLoggerWritesCompressedRows(t *testing.T) {
	dir := t.TempDir()
	l := NewCSVLogger(CSVLoggerConfig{OutputDir: dir})

	schema := testSchema(t)
	require.NoError(t, l.RegisterSchema("dut_power", schema))
	require.NoError(t, l.Start(Tags{TagTestRunID: "run-1", TagTestCaseID: "case-1", TagTestType: TestTypeHASS}))
	require.True(t, l.IsRunning())

	data, err := telemetry.NewStreamData(schema, 0, 1_000_000, [][]telemetry.Value{
		{telemetry.FloatValue(telemetry.F32, 5.0), telemetry.FloatValue(telemetry.F32, 1.2)},
		{telemetry.FloatValue(telemetry.F32, 5.1), telemetry.FloatValue(telemetry.F32, 1.3)},
	})
	require.NoError(t, err)
	require.NoError(t, l.Log("dut_power", data))

	require.NoError(t, l.Stop())
	require.False(t, l.IsRunning())

	csvPath := filepath.Join(dir, "hass", "case-1", "run-1", "dut_power.csv.gz")
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	metaPath := filepath.Join(dir, "hass", "case-1", "run-1", "metadata.json")
	_, err = os.Stat(metaPath)
	require.NoError(t, err)
}

func TestCSVLoggerRejectsUnknownTopic(t *testing.T) {
	dir := t.TempDir()
	l := NewCSVLogger(CSVLoggerConfig{OutputDir: dir})
	require.NoError(t, l.Start(Tags{}))
	defer l.Stop()

	schema := testSchema(t)
	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F32, 1), telemetry.FloatValue(telemetry.F32, 2)}})
	require.NoError(t, err)

	err = l.Log("unregistered", data)
	require.ErrorIs(t, err, ErrUnknownTopic)
}

func TestCSVLoggerRejectsBeforeStart(t *testing.T) {
	dir := t.TempDir()
	l := NewCSVLogger(CSVLoggerConfig{OutputDir: dir})
	schema := testSchema(t)
	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F32, 1), telemetry.FloatValue(telemetry.F32, 2)}})
	require.NoError(t, err)

	err = l.Log("dut_power", data)
	require.ErrorIs(t, err, ErrNotRunning)
}
