// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire implements the binary on-the-wire codec for schema and
// data frames. It is the only package that knows the byte layout; every
// other package talks about StreamSchema/StreamData values.
package wire

import "errors"

// ErrSchemaIntegrity is returned when a decoded schema's recomputed
// CRC-32 disagrees with the schema_id carried on the wire, or a decoded
// data frame's schema_id disagrees with the schema the caller supplied.
var ErrSchemaIntegrity = errors.New("wire: schema integrity check failed")

// ErrStringTooLong is returned by EncodeSchema when a field name or
// unit's UTF-8 byte length exceeds 255, the limit of a length-prefixed
// string.
var ErrStringTooLong = errors.New("wire: string exceeds 255 UTF-8 bytes")

// ErrTruncated is returned when a buffer being decoded ends before the
// frame it claims to encode is fully read.
var ErrTruncated = errors.New("wire: frame truncated")

// ErrUnknownFrameType is returned when the leading message-type byte is
// neither a schema nor a data frame discriminator.
var ErrUnknownFrameType = errors.New("wire: unknown frame type")
