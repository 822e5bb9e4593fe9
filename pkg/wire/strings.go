// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package wire

// appendString writes a length-prefixed string: one unsigned byte L
// (0..255) followed by L UTF-8 bytes.
func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, ErrStringTooLong
	}
	buf = append(buf, byte(len(s)))
	buf = append(buf, s...)
	return buf, nil
}

// readString decodes a length-prefixed string starting at offset off,
// returning the string and the offset just past it.
func readString(data []byte, off int) (string, int, error) {
	if off >= len(data) {
		return "", 0, ErrTruncated
	}
	l := int(data[off])
	off++
	if off+l > len(data) {
		return "", 0, ErrTruncated
	}
	return string(data[off : off+l]), off + l, nil
}
