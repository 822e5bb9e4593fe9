// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchemaIdStability verifies the exact CRC-32 construction named in
// the wire contract: concat(field.name + byte(code) + field.unit).
func TestSchemaIdStability(t *testing.T) {
	schema, err := NewStreamSchema("psu", []StreamField{
		{Name: "voltage", Type: F64, Unit: "V"},
		{Name: "current", Type: F64, Unit: "A"},
	})
	require.NoError(t, err)

	want := crc32.ChecksumIEEE([]byte("voltage" + string(rune(0x0A)) + "V" + "current" + string(rune(0x0A)) + "A"))
	assert.Equal(t, want, schema.SchemaID())
	assert.Equal(t, 16, schema.SampleSize())
}

func TestSchemaUniqueness(t *testing.T) {
	a, err := NewStreamSchema("psu", []StreamField{{Name: "voltage", Type: F64, Unit: "V"}})
	require.NoError(t, err)
	b, err := NewStreamSchema("psu", []StreamField{{Name: "voltage", Type: F32, Unit: "V"}})
	require.NoError(t, err)
	c, err := NewStreamSchema("psu", []StreamField{{Name: "voltage", Type: F64, Unit: "V"}})
	require.NoError(t, err)

	assert.NotEqual(t, a.SchemaID(), b.SchemaID())
	assert.Equal(t, a.SchemaID(), c.SchemaID())
}

func TestFieldOffset(t *testing.T) {
	schema, err := NewStreamSchema("psu", []StreamField{
		{Name: "voltage", Type: F64, Unit: "V"},
		{Name: "current", Type: F32, Unit: "A"},
		{Name: "on", Type: U8, Unit: ""},
	})
	require.NoError(t, err)

	off, ok := schema.FieldOffset("current")
	require.True(t, ok)
	assert.Equal(t, 8, off)

	off, ok = schema.FieldOffset("on")
	require.True(t, ok)
	assert.Equal(t, 12, off)

	_, ok = schema.FieldOffset("missing")
	assert.False(t, ok)
}

func TestNewStreamSchemaRejectsDuplicateFields(t *testing.T) {
	_, err := NewStreamSchema("psu", []StreamField{
		{Name: "voltage", Type: F64, Unit: "V"},
		{Name: "voltage", Type: F64, Unit: "V"},
	})
	assert.Error(t, err)
}
