// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"encoding/json"
	"math"
)

// BoundType selects whether a ThresholdBound's comparison is inclusive
// (>=, <=) or exclusive (>, <).
type BoundType int

const (
	Inclusive BoundType = iota
	Exclusive
)

func (b BoundType) String() string {
	if b == Exclusive {
		return "exclusive"
	}
	return "inclusive"
}

// ThresholdBound is one side (low or high) of a Threshold.
type ThresholdBound struct {
	Value float64
	Bound BoundType
}

// CheckLow reports whether v satisfies this bound used as a lower bound:
// v >= Value for inclusive, v > Value for exclusive. NaN never satisfies
// either form.
func (b ThresholdBound) CheckLow(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if b.Bound == Exclusive {
		return v > b.Value
	}
	return v >= b.Value
}

// CheckHigh reports whether v satisfies this bound used as an upper
// bound: v <= Value for inclusive, v < Value for exclusive. NaN never
// satisfies either form.
func (b ThresholdBound) CheckHigh(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if b.Bound == Exclusive {
		return v < b.Value
	}
	return v <= b.Value
}

// Threshold is a per-channel acceptable range. Low and High are each
// optional; a Threshold with both nil is equivalent to "any value".
type Threshold struct {
	Channel ChannelId
	Low     *ThresholdBound
	High    *ThresholdBound
}

// Check reports whether v satisfies both configured bounds. Absent
// bounds are trivially satisfied.
func (t Threshold) Check(v float64) bool {
	if t.Low != nil && !t.Low.CheckLow(v) {
		return false
	}
	if t.High != nil && !t.High.CheckHigh(v) {
		return false
	}
	return true
}

// StateThresholds maps ChannelId to Threshold, all interpreted within a
// single StateId.
type StateThresholds struct {
	StateId    StateId
	Thresholds map[ChannelId]Threshold
}

func (s StateThresholds) Get(channel ChannelId) (Threshold, bool) {
	t, ok := s.Thresholds[channel]
	return t, ok
}

type thresholdBoundJSON struct {
	Value     float64 `json:"value"`
	Inclusive bool    `json:"inclusive"`
}

func (b ThresholdBound) MarshalJSON() ([]byte, error) {
	return json.Marshal(thresholdBoundJSON{Value: b.Value, Inclusive: b.Bound == Inclusive})
}

func (b *ThresholdBound) UnmarshalJSON(data []byte) error {
	var raw thresholdBoundJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Value = raw.Value
	if raw.Inclusive {
		b.Bound = Inclusive
	} else {
		b.Bound = Exclusive
	}
	return nil
}

type thresholdJSON struct {
	Channel ChannelId       `json:"channel"`
	Low     *ThresholdBound `json:"low,omitempty"`
	High    *ThresholdBound `json:"high,omitempty"`
}

func (t Threshold) MarshalJSON() ([]byte, error) {
	return json.Marshal(thresholdJSON{Channel: t.Channel, Low: t.Low, High: t.High})
}

func (t *Threshold) UnmarshalJSON(data []byte) error {
	var raw thresholdJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Channel = raw.Channel
	t.Low = raw.Low
	t.High = raw.High
	return nil
}
