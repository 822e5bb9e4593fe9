// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import "fmt"

// DataType is the closed set of numeric primitives a StreamField may
// carry. The byte codes below are part of the streaming wire format and
// must never be renumbered.
type DataType uint8

const (
	I8  DataType = 0x01
	I16 DataType = 0x02
	I32 DataType = 0x03
	I64 DataType = 0x04
	U8  DataType = 0x05
	U16 DataType = 0x06
	U32 DataType = 0x07
	U64 DataType = 0x08
	F32 DataType = 0x09
	F64 DataType = 0x0A
)

// Size returns the on-the-wire size in bytes of one value of this type.
func (d DataType) Size() int {
	switch d {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

func (d DataType) IsSigned() bool {
	switch d {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

func (d DataType) IsUnsigned() bool {
	switch d {
	case U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

func (d DataType) IsFloat() bool {
	return d == F32 || d == F64
}

// Valid reports whether d is one of the ten recognised codes.
func (d DataType) Valid() bool {
	return d >= I8 && d <= F64
}

func (d DataType) String() string {
	switch d {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("datatype(0x%02x)", uint8(d))
	}
}
