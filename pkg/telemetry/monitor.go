// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import "encoding/json"

// MonitorVerdict is the outcome of one monitor evaluation.
type MonitorVerdict string

const (
	VerdictPass  MonitorVerdict = "pass"
	VerdictFail  MonitorVerdict = "fail"
	VerdictSkip  MonitorVerdict = "skip"
	VerdictError MonitorVerdict = "error"
)

// ThresholdViolation records one channel whose measured value failed its
// threshold during an evaluation.
type ThresholdViolation struct {
	Channel   ChannelId
	Measured  float64
	Threshold Threshold
	Message   string
}

// MonitorResult is the immutable, point-in-time outcome of one
// evaluation. Results are not aggregated by the core; every evaluation
// produces exactly one result, which the executor routes downstream.
type MonitorResult struct {
	MonitorId  MonitorId
	Verdict    MonitorVerdict
	Timestamp  Timestamp
	StateId    StateId
	Violations []ThresholdViolation
	Message    string
}

// wire JSON shapes, matching the external result taxonomy: flat
// timestamp/timestamp_source fields rather than a nested object, since
// that is the stable format loggers and external tools consume.

type thresholdViolationJSON struct {
	Channel   ChannelId `json:"channel"`
	Measured  float64   `json:"measured"`
	Threshold Threshold `json:"threshold"`
	Message   string    `json:"message"`
}

type monitorResultJSON struct {
	MonitorId       MonitorId                `json:"monitor_id"`
	Verdict         MonitorVerdict           `json:"verdict"`
	Timestamp       int64                    `json:"timestamp"`
	TimestampSource string                   `json:"timestamp_source"`
	StateId         StateId                  `json:"state_id"`
	Violations      []thresholdViolationJSON `json:"violations"`
	Message         string                   `json:"message"`
}

func (r MonitorResult) MarshalJSON() ([]byte, error) {
	violations := make([]thresholdViolationJSON, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = thresholdViolationJSON{
			Channel:   v.Channel,
			Measured:  v.Measured,
			Threshold: v.Threshold,
			Message:   v.Message,
		}
	}
	if violations == nil {
		violations = []thresholdViolationJSON{}
	}
	return json.Marshal(monitorResultJSON{
		MonitorId:       r.MonitorId,
		Verdict:         r.Verdict,
		Timestamp:       r.Timestamp.UnixNs,
		TimestampSource: r.Timestamp.Source,
		StateId:         r.StateId,
		Violations:      violations,
		Message:         r.Message,
	})
}

func (r *MonitorResult) UnmarshalJSON(data []byte) error {
	var raw monitorResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	violations := make([]ThresholdViolation, len(raw.Violations))
	for i, v := range raw.Violations {
		violations[i] = ThresholdViolation{
			Channel:   v.Channel,
			Measured:  v.Measured,
			Threshold: v.Threshold,
			Message:   v.Message,
		}
	}
	r.MonitorId = raw.MonitorId
	r.Verdict = raw.Verdict
	r.Timestamp = NewTimestamp(raw.Timestamp, raw.TimestampSource)
	r.StateId = raw.StateId
	r.Violations = violations
	r.Message = raw.Message
	return nil
}

func (r MonitorResult) Passed() bool {
	return r.Verdict == VerdictPass
}

func (r MonitorResult) Failed() bool {
	return r.Verdict == VerdictFail
}
