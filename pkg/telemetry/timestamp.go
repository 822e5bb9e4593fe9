// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import "time"

// Timestamp is a nanosecond Unix-epoch count paired with a short,
// free-form tag naming the clock it came from ("local", "ptp", "ntp").
// Ordering is only meaningful between timestamps that share a source.
type Timestamp struct {
	UnixNs int64
	Source string
}

// NewTimestamp builds a Timestamp from a raw nanosecond count and
// source tag.
func NewTimestamp(unixNs int64, source string) Timestamp {
	if source == "" {
		source = "local"
	}
	return Timestamp{UnixNs: unixNs, Source: source}
}

// NowLocal returns the current wall-clock time tagged "local".
func NowLocal() Timestamp {
	return Timestamp{UnixNs: time.Now().UnixNano(), Source: "local"}
}

// FromTime converts a time.Time, tagging it "local".
func FromTime(t time.Time) Timestamp {
	return Timestamp{UnixNs: t.UnixNano(), Source: "local"}
}

func (t Timestamp) Time() time.Time {
	return time.Unix(0, t.UnixNs).UTC()
}

func (t Timestamp) UnixSeconds() float64 {
	return float64(t.UnixNs) / 1e9
}

func (t Timestamp) UnixMillis() int64 {
	return t.UnixNs / 1e6
}

func (t Timestamp) UnixMicros() int64 {
	return t.UnixNs / 1e3
}
