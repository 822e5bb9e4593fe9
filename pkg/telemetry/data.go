// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import "fmt"

// StreamData is one batch of fixed-cadence samples. Sample i is
// implicitly timestamped BaseTimestampNs + i*PeriodNs. Samples[i][j] is
// the value of the referenced schema's j-th field at sample i, tagged
// with that field's own DataType so I64/U64 fields keep their exact
// value instead of widening through float64; arity and per-slot types
// are validated against the schema by the caller that constructs a
// StreamData (NewStreamData) and again by the wire codec on encode.
type StreamData struct {
	SchemaID        uint32
	BaseTimestampNs int64
	PeriodNs        int64
	Samples         [][]Value
}

// NewStreamData validates samples against schema's field count and, for
// every slot, that the Value was built with the field's own DataType,
// before returning a StreamData referencing it.
func NewStreamData(schema StreamSchema, baseTimestampNs, periodNs int64, samples [][]Value) (StreamData, error) {
	fields := schema.Fields()
	n := len(fields)
	for i, row := range samples {
		if len(row) != n {
			return StreamData{}, fmt.Errorf("telemetry: sample %d has %d values, schema %q has %d fields", i, len(row), schema.SourceID(), n)
		}
		for j, v := range row {
			if v.Type() != fields[j].Type {
				return StreamData{}, fmt.Errorf("telemetry: sample %d field %q is %s, value is %s", i, fields[j].Name, fields[j].Type, v.Type())
			}
		}
	}
	return StreamData{
		SchemaID:        schema.SchemaID(),
		BaseTimestampNs: baseTimestampNs,
		PeriodNs:        periodNs,
		Samples:         samples,
	}, nil
}

func (d StreamData) SampleCount() int { return len(d.Samples) }

// TimestampAt returns the nanosecond timestamp of sample i.
func (d StreamData) TimestampAt(i int) int64 {
	return d.BaseTimestampNs + int64(i)*d.PeriodNs
}

// Timestamps returns the timestamp of every sample in order.
func (d StreamData) Timestamps() []int64 {
	out := make([]int64, len(d.Samples))
	for i := range d.Samples {
		out[i] = d.TimestampAt(i)
	}
	return out
}
