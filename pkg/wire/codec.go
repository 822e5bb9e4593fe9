// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

const (
	MessageTypeSchema byte = 0x01
	MessageTypeData   byte = 0x02
)

// MessageType inspects the first byte of a frame without decoding the
// rest of it, per the receive loop's "discriminate schema vs data"
// step.
func MessageType(data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, ErrTruncated
	}
	return data[0], nil
}

// EncodeSchema serialises a schema frame:
//
//	u8  message_type = 0x01
//	u32 schema_id
//	str source_id
//	u16 field_count
//	repeat field_count times: str field_name, u8 data_type_code, str unit
func EncodeSchema(schema telemetry.StreamSchema) ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = append(buf, MessageTypeSchema)
	buf = binary.BigEndian.AppendUint32(buf, schema.SchemaID())

	var err error
	buf, err = appendString(buf, string(schema.SourceID()))
	if err != nil {
		return nil, fmt.Errorf("wire: encode schema source_id: %w", err)
	}

	fields := schema.Fields()
	if len(fields) > math.MaxUint16 {
		return nil, fmt.Errorf("wire: schema has %d fields, exceeds u16 field_count", len(fields))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(fields)))

	for _, f := range fields {
		buf, err = appendString(buf, f.Name)
		if err != nil {
			return nil, fmt.Errorf("wire: encode field %q name: %w", f.Name, err)
		}
		buf = append(buf, byte(f.Type))
		buf, err = appendString(buf, f.Unit)
		if err != nil {
			return nil, fmt.Errorf("wire: encode field %q unit: %w", f.Name, err)
		}
	}
	return buf, nil
}

// DecodeSchema parses a schema frame and recomputes the CRC-32 over the
// decoded field list (via telemetry.NewStreamSchema, which performs the
// identical computation); a mismatch against the embedded schema_id
// yields ErrSchemaIntegrity and the frame must be dropped by the caller.
func DecodeSchema(data []byte) (telemetry.StreamSchema, error) {
	if len(data) < 1+4+1+2 {
		return telemetry.StreamSchema{}, ErrTruncated
	}
	if data[0] != MessageTypeSchema {
		return telemetry.StreamSchema{}, ErrUnknownFrameType
	}
	wantID := binary.BigEndian.Uint32(data[1:5])

	sourceID, off, err := readString(data, 5)
	if err != nil {
		return telemetry.StreamSchema{}, err
	}
	if off+2 > len(data) {
		return telemetry.StreamSchema{}, ErrTruncated
	}
	fieldCount := int(binary.BigEndian.Uint16(data[off : off+2]))
	off += 2

	fields := make([]telemetry.StreamField, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		var name, unit string
		name, off, err = readString(data, off)
		if err != nil {
			return telemetry.StreamSchema{}, err
		}
		if off >= len(data) {
			return telemetry.StreamSchema{}, ErrTruncated
		}
		code := telemetry.DataType(data[off])
		off++
		unit, off, err = readString(data, off)
		if err != nil {
			return telemetry.StreamSchema{}, err
		}
		fields = append(fields, telemetry.StreamField{Name: name, Type: code, Unit: unit})
	}

	schema, err := telemetry.NewStreamSchema(telemetry.SourceId(sourceID), fields)
	if err != nil {
		return telemetry.StreamSchema{}, fmt.Errorf("wire: decode schema: %w", err)
	}
	if schema.SchemaID() != wantID {
		return telemetry.StreamSchema{}, ErrSchemaIntegrity
	}
	return schema, nil
}

// EncodeData serialises a data frame against the schema it references.
// Every caller-owned sample slot is written in the field's native
// big-endian wire form. Returns an error if data.SchemaID does not match
// schema's id (SchemaMismatch is the caller-facing error raised higher
// up; this function only guards against malformed input).
func EncodeData(data telemetry.StreamData, schema telemetry.StreamSchema) ([]byte, error) {
	if data.SchemaID != schema.SchemaID() {
		return nil, fmt.Errorf("wire: data frame schema_id %d does not match schema %d", data.SchemaID, schema.SchemaID())
	}
	if len(data.Samples) > math.MaxUint16 {
		return nil, fmt.Errorf("wire: sample_count %d exceeds u16", len(data.Samples))
	}
	fields := schema.Fields()

	header := 1 + 4 + 8 + 8 + 2
	buf := make([]byte, header, header+len(data.Samples)*schema.SampleSize())
	buf[0] = MessageTypeData
	binary.BigEndian.PutUint32(buf[1:5], data.SchemaID)
	binary.BigEndian.PutUint64(buf[5:13], uint64(data.BaseTimestampNs))
	binary.BigEndian.PutUint64(buf[13:21], uint64(data.PeriodNs))
	binary.BigEndian.PutUint16(buf[21:23], uint16(len(data.Samples)))

	for i, row := range data.Samples {
		if len(row) != len(fields) {
			return nil, fmt.Errorf("wire: sample %d has %d values, schema has %d fields", i, len(row), len(fields))
		}
		for j, f := range fields {
			if row[j].Type() != f.Type {
				return nil, fmt.Errorf("wire: sample %d field %q is %s, value is %s", i, f.Name, f.Type, row[j].Type())
			}
			var err error
			buf, err = appendValue(buf, row[j])
			if err != nil {
				return nil, fmt.Errorf("wire: encode sample %d field %q: %w", i, f.Name, err)
			}
		}
	}
	return buf, nil
}

// DecodeData parses a data frame, validating it against the caller's
// schema. Fails if the frame's schema_id disagrees with schema's, or if
// the byte length is not exactly header_size + sample_count*sample_size.
func DecodeData(data []byte, schema telemetry.StreamSchema) (telemetry.StreamData, error) {
	const headerSize = 1 + 4 + 8 + 8 + 2
	if len(data) < headerSize {
		return telemetry.StreamData{}, ErrTruncated
	}
	if data[0] != MessageTypeData {
		return telemetry.StreamData{}, ErrUnknownFrameType
	}
	schemaID := binary.BigEndian.Uint32(data[1:5])
	if schemaID != schema.SchemaID() {
		return telemetry.StreamData{}, ErrSchemaIntegrity
	}
	baseTs := int64(binary.BigEndian.Uint64(data[5:13]))
	period := int64(binary.BigEndian.Uint64(data[13:21]))
	sampleCount := int(binary.BigEndian.Uint16(data[21:23]))

	sampleSize := schema.SampleSize()
	wantLen := headerSize + sampleCount*sampleSize
	if len(data) != wantLen {
		return telemetry.StreamData{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncated, wantLen, len(data))
	}

	fields := schema.Fields()
	samples := make([][]telemetry.Value, sampleCount)
	off := headerSize
	for i := 0; i < sampleCount; i++ {
		row := make([]telemetry.Value, len(fields))
		for j, f := range fields {
			v, n := readValue(data[off:], f.Type)
			row[j] = v
			off += n
		}
		samples[i] = row
	}

	return telemetry.StreamData{
		SchemaID:        schemaID,
		BaseTimestampNs: baseTs,
		PeriodNs:        period,
		Samples:         samples,
	}, nil
}

// appendValue packs v as its own type's native big-endian wire form.
// Signed and unsigned fields go through Int64/Uint64, never through
// Float64, so I64/U64 values survive encoding exactly.
func appendValue(buf []byte, v telemetry.Value) ([]byte, error) {
	t := v.Type()
	switch t {
	case telemetry.I8:
		return append(buf, byte(int8(v.Int64()))), nil
	case telemetry.U8:
		return append(buf, uint8(v.Uint64())), nil
	case telemetry.I16:
		return binary.BigEndian.AppendUint16(buf, uint16(int16(v.Int64()))), nil
	case telemetry.U16:
		return binary.BigEndian.AppendUint16(buf, uint16(v.Uint64())), nil
	case telemetry.I32:
		return binary.BigEndian.AppendUint32(buf, uint32(int32(v.Int64()))), nil
	case telemetry.U32:
		return binary.BigEndian.AppendUint32(buf, uint32(v.Uint64())), nil
	case telemetry.I64:
		return binary.BigEndian.AppendUint64(buf, uint64(v.Int64())), nil
	case telemetry.U64:
		return binary.BigEndian.AppendUint64(buf, v.Uint64()), nil
	case telemetry.F32:
		return binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(v.Float64()))), nil
	case telemetry.F64:
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Float64())), nil
	default:
		return nil, fmt.Errorf("wire: unsupported data type code 0x%02x", uint8(t))
	}
}

// readValue unpacks t's native wire form from the front of data into a
// Value tagged with t, returning the value and the number of bytes
// consumed. I64/U64 are read directly into the Value's int64/uint64
// backing field, never routed through float64.
func readValue(data []byte, t telemetry.DataType) (telemetry.Value, int) {
	switch t {
	case telemetry.I8:
		return telemetry.IntValue(t, int64(int8(data[0]))), 1
	case telemetry.U8:
		return telemetry.UintValue(t, uint64(data[0])), 1
	case telemetry.I16:
		return telemetry.IntValue(t, int64(int16(binary.BigEndian.Uint16(data)))), 2
	case telemetry.U16:
		return telemetry.UintValue(t, uint64(binary.BigEndian.Uint16(data))), 2
	case telemetry.I32:
		return telemetry.IntValue(t, int64(int32(binary.BigEndian.Uint32(data)))), 4
	case telemetry.U32:
		return telemetry.UintValue(t, uint64(binary.BigEndian.Uint32(data))), 4
	case telemetry.I64:
		return telemetry.IntValue(t, int64(binary.BigEndian.Uint64(data))), 8
	case telemetry.U64:
		return telemetry.UintValue(t, binary.BigEndian.Uint64(data)), 8
	case telemetry.F32:
		return telemetry.FloatValue(t, float64(math.Float32frombits(binary.BigEndian.Uint32(data)))), 4
	case telemetry.F64:
		return telemetry.FloatValue(t, math.Float64frombits(binary.BigEndian.Uint64(data))), 8
	default:
		return telemetry.Value{}, 0
	}
}
