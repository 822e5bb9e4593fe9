// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

func TestMultiLoggerFansOutAndStartsAll(t *testing.T) {
	a := NewCSVLogger(CSVLoggerConfig{OutputDir: t.TempDir()})
	b := NewCSVLogger(CSVLoggerConfig{OutputDir: t.TempDir()})
	m := NewMultiLogger(a, b)

	schema := testSchema(t)
	require.NoError(t, m.RegisterSchema("dut_power", schema))
	require.NoError(t, m.Start(Tags{TagTestRunID: "run-1"}))

	assert.True(t, a.IsRunning())
	assert.True(t, b.IsRunning())
	assert.True(t, m.IsRunning())

	require.NoError(t, m.Stop())
	assert.False(t, a.IsRunning())
	assert.False(t, b.IsRunning())
}

func TestMultiLoggerSurvivesOneSinkError(t *testing.T) {
	// bad never has "dut_power" registered, so its Log fails with
	// ErrUnknownTopic; good must still receive the frame.
	bad := NewCSVLogger(CSVLoggerConfig{OutputDir: t.TempDir()})
	good := NewCSVLogger(CSVLoggerConfig{OutputDir: t.TempDir()})
	m := NewMultiLogger(bad, good)

	schema := testSchema(t)
	require.NoError(t, good.RegisterSchema("dut_power", schema))
	require.NoError(t, m.Start(Tags{}))
	defer m.Stop()

	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F32, 1), telemetry.FloatValue(telemetry.F32, 2)}})
	require.NoError(t, err)
	require.ErrorIs(t, m.Log("dut_power", data), ErrUnknownTopic)

	_, err = os.Stat(filepath.Join(good.LogDirectory(), "dut_power.csv.gz"))
	require.NoError(t, err)
}
