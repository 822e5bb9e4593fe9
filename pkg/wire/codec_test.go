// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package wire

import (
	"strconv"
	"testing"

	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func psuSchema(t *testing.T) telemetry.StreamSchema {
	t.Helper()
	schema, err := telemetry.NewStreamSchema("psu", []telemetry.StreamField{
		{Name: "voltage", Type: telemetry.F64, Unit: "V"},
		{Name: "current", Type: telemetry.F64, Unit: "A"},
	})
	require.NoError(t, err)
	return schema
}

func TestSchemaRoundTrip(t *testing.T) {
	schema := psuSchema(t)

	encoded, err := EncodeSchema(schema)
	require.NoError(t, err)

	decoded, err := DecodeSchema(encoded)
	require.NoError(t, err)
	assert.Equal(t, schema.SchemaID(), decoded.SchemaID())
	assert.Equal(t, schema.SourceID(), decoded.SourceID())
	assert.Equal(t, schema.Fields(), decoded.Fields())

	reencoded, err := EncodeSchema(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestDecodeSchemaRejectsCorruption(t *testing.T) {
	schema := psuSchema(t)
	encoded, err := EncodeSchema(schema)
	require.NoError(t, err)

	encoded[len(encoded)-1] ^= 0xFF // corrupt the last unit byte
	_, err = DecodeSchema(encoded)
	assert.ErrorIs(t, err, ErrSchemaIntegrity)
}

func f64(v float64) telemetry.Value { return telemetry.FloatValue(telemetry.F64, v) }

func TestDataRoundTrip(t *testing.T) {
	schema := psuSchema(t)
	data, err := telemetry.NewStreamData(schema, 1_000_000_000, 1_000_000, [][]telemetry.Value{
		{f64(3.3), f64(0.10)},
		{f64(3.31), f64(0.11)},
		{f64(3.29), f64(0.12)},
	})
	require.NoError(t, err)

	encoded, err := EncodeData(data, schema)
	require.NoError(t, err)
	assert.Equal(t, 1+4+8+8+2+3*16, len(encoded))

	decoded, err := DecodeData(encoded, schema)
	require.NoError(t, err)
	assert.Equal(t, data.SchemaID, decoded.SchemaID)
	assert.Equal(t, data.BaseTimestampNs, decoded.BaseTimestampNs)
	assert.Equal(t, data.PeriodNs, decoded.PeriodNs)
	for j := range data.Samples[0] {
		assert.InDelta(t, data.Samples[0][j].Float64(), decoded.Samples[0][j].Float64(), 1e-9)
	}
	assert.Equal(t, int64(1_002_000_000), decoded.TimestampAt(2))
}

// TestDataRoundTripPreservesInt64Precision proves samples carried as
// I64/U64 keep their exact value through encode/decode, rather than
// widening through float64 and losing precision past 2^53.
func TestDataRoundTripPreservesInt64Precision(t *testing.T) {
	schema, err := telemetry.NewStreamSchema("counters", []telemetry.StreamField{
		{Name: "signed", Type: telemetry.I64, Unit: "count"},
		{Name: "unsigned", Type: telemetry.U64, Unit: "count"},
	})
	require.NoError(t, err)

	const (
		signedMax   int64  = 9223372036854775807
		signedMin   int64  = -9223372036854775808
		unsignedMax uint64 = 18446744073709551615
	)
	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{
		{telemetry.IntValue(telemetry.I64, signedMax), telemetry.UintValue(telemetry.U64, unsignedMax)},
		{telemetry.IntValue(telemetry.I64, signedMin), telemetry.UintValue(telemetry.U64, 0)},
	})
	require.NoError(t, err)

	encoded, err := EncodeData(data, schema)
	require.NoError(t, err)

	decoded, err := DecodeData(encoded, schema)
	require.NoError(t, err)

	assert.Equal(t, signedMax, decoded.Samples[0][0].Int64())
	assert.Equal(t, unsignedMax, decoded.Samples[0][1].Uint64())
	assert.Equal(t, signedMin, decoded.Samples[1][0].Int64())
	assert.Equal(t, uint64(0), decoded.Samples[1][1].Uint64())
	assert.Equal(t, strconv.FormatInt(signedMax, 10), decoded.Samples[0][0].String())
	assert.Equal(t, strconv.FormatUint(unsignedMax, 10), decoded.Samples[0][1].String())
}

func TestDecodeDataRejectsSchemaMismatch(t *testing.T) {
	schema := psuSchema(t)
	other, err := telemetry.NewStreamSchema("psu2", []telemetry.StreamField{{Name: "v", Type: telemetry.F64, Unit: "V"}})
	require.NoError(t, err)

	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{f64(1.0), f64(2.0)}})
	require.NoError(t, err)

	encoded, err := EncodeData(data, schema)
	require.NoError(t, err)

	_, err = DecodeData(encoded, other)
	assert.ErrorIs(t, err, ErrSchemaIntegrity)
}

func TestDecodeDataRejectsTruncatedFrame(t *testing.T) {
	schema := psuSchema(t)
	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{f64(1.0), f64(2.0)}})
	require.NoError(t, err)
	encoded, err := EncodeData(data, schema)
	require.NoError(t, err)

	_, err = DecodeData(encoded[:len(encoded)-1], schema)
	assert.Error(t, err)
}
