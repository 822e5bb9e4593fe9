// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"fmt"
	"hash/crc32"
)

// StreamField is one named, typed column within a StreamSchema. Name
// uniquely identifies the column; Unit is a display annotation ("V",
// "degC", ...) that carries no semantics for the core.
type StreamField struct {
	Name string
	Type DataType
	Unit string
}

// crcBytes returns the raw (non-length-prefixed) byte sequence that
// feeds the schema's CRC-32: name bytes, the type's code byte, unit
// bytes. This is deliberately distinct from the wire encoding of a
// field, which length-prefixes both strings.
func (f StreamField) crcBytes() []byte {
	b := make([]byte, 0, len(f.Name)+1+len(f.Unit))
	b = append(b, f.Name...)
	b = append(b, byte(f.Type))
	b = append(b, f.Unit...)
	return b
}

// StreamSchema is an ordered, immutable list of StreamFields bound to a
// SourceId. SchemaID is a CRC-32 fingerprint of the field list, computed
// once at construction; two schemas are wire-compatible iff their
// SchemaID values match.
type StreamSchema struct {
	sourceID SourceId
	fields   []StreamField
	schemaID uint32
}

// NewStreamSchema builds a schema from a source id and an ordered field
// list, computing and caching its schema id. The field slice is copied
// so later mutation of the caller's slice cannot affect the schema.
func NewStreamSchema(sourceID SourceId, fields []StreamField) (StreamSchema, error) {
	if sourceID == "" {
		return StreamSchema{}, fmt.Errorf("telemetry: schema source id must not be empty")
	}
	if len(fields) == 0 {
		return StreamSchema{}, fmt.Errorf("telemetry: schema %q must have at least one field", sourceID)
	}
	seen := make(map[string]struct{}, len(fields))
	cp := make([]StreamField, len(fields))
	for i, f := range fields {
		if !f.Type.Valid() {
			return StreamSchema{}, fmt.Errorf("telemetry: field %q has invalid data type code 0x%02x", f.Name, uint8(f.Type))
		}
		if f.Name == "" {
			return StreamSchema{}, fmt.Errorf("telemetry: field %d of schema %q has empty name", i, sourceID)
		}
		if _, dup := seen[f.Name]; dup {
			return StreamSchema{}, fmt.Errorf("telemetry: schema %q has duplicate field name %q", sourceID, f.Name)
		}
		seen[f.Name] = struct{}{}
		cp[i] = f
	}
	return StreamSchema{
		sourceID: sourceID,
		fields:   cp,
		schemaID: computeSchemaID(cp),
	}, nil
}

// computeSchemaID is the pure function at the heart of the registry's
// self-identification guarantee: CRC32(concat(field.crcBytes())).
func computeSchemaID(fields []StreamField) uint32 {
	h := crc32.NewIEEE()
	for _, f := range fields {
		h.Write(f.crcBytes())
	}
	return h.Sum32()
}

func (s StreamSchema) SourceID() SourceId { return s.sourceID }

func (s StreamSchema) SchemaID() uint32 { return s.schemaID }

// Fields returns a defensive copy of the ordered field list.
func (s StreamSchema) Fields() []StreamField {
	cp := make([]StreamField, len(s.fields))
	copy(cp, s.fields)
	return cp
}

func (s StreamSchema) FieldCount() int { return len(s.fields) }

// SampleSize is the sum of every field's wire size in bytes — the size
// of one sample record in a StreamData frame.
func (s StreamSchema) SampleSize() int {
	total := 0
	for _, f := range s.fields {
		total += f.Type.Size()
	}
	return total
}

// Field returns the StreamField with the given name and true, or the
// zero value and false if no such field exists.
func (s StreamSchema) Field(name string) (StreamField, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return StreamField{}, false
}

// FieldOffset returns the byte offset of name's value within one sample
// record, and true, or 0 and false if the field does not exist.
func (s StreamSchema) FieldOffset(name string) (int, bool) {
	offset := 0
	for _, f := range s.fields {
		if f.Name == name {
			return offset, true
		}
		offset += f.Type.Size()
	}
	return 0, false
}
