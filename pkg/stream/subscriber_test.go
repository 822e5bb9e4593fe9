// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package stream

import (
	"context"
	"testing"
	"time"

	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/hiltest/hilcore/pkg/wire"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) telemetry.StreamSchema {
	t.Helper()
	schema, err := telemetry.NewStreamSchema("psu", []telemetry.StreamField{
		{Name: "voltage", Type: telemetry.F64, Unit: "V"},
	})
	require.NoError(t, err)
	return schema
}

// newSubscribedSubscriber bypasses the broker for unit testing the
// receive-loop handlers directly: it sets the internal state Subscribe
// would have set, without actually dialing NATS.
func newSubscribedSubscriber(t *testing.T) *Subscriber {
	t.Helper()
	s := NewSubscriber(SubscriberConfig{})
	s.subscribed = true
	s.sourceID = "psu"
	s.schemaReady = make(chan struct{})
	s.delivery = make(chan telemetry.StreamData, 8)
	return s
}

func TestSubscriberDropsDataBeforeSchema(t *testing.T) {
	s := newSubscribedSubscriber(t)
	schema := testSchema(t)

	data, err := telemetry.NewStreamData(schema, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F64, 1.0)}})
	require.NoError(t, err)
	encodedData, err := wire.EncodeData(data, schema)
	require.NoError(t, err)
	encodedSchema, err := wire.EncodeSchema(schema)
	require.NoError(t, err)

	// data, then schema, then data: only the last frame should be
	// delivered (the first is dropped for lacking a cached schema).
	s.handleDataMessage(&nats.Msg{Subject: "telemetry.psu.data", Data: encodedData})
	s.handleSchemaMessage(&nats.Msg{Subject: "telemetry.psu.schema", Data: encodedSchema})
	s.handleDataMessage(&nats.Msg{Subject: "telemetry.psu.data", Data: encodedData})

	assert.Len(t, s.delivery, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := s.GetSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.SchemaID(), got.SchemaID())
}

func TestSubscriberGetSchemaTimesOut(t *testing.T) {
	s := newSubscribedSubscriber(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.GetSchema(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSubscriberGetSchemaRequiresSubscription(t *testing.T) {
	s := NewSubscriber(SubscriberConfig{})
	_, err := s.GetSchema(context.Background())
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestSubscriberDropsMismatchedSchemaData(t *testing.T) {
	s := newSubscribedSubscriber(t)
	schema := testSchema(t)
	other, err := telemetry.NewStreamSchema("psu", []telemetry.StreamField{
		{Name: "voltage", Type: telemetry.F64, Unit: "V"},
		{Name: "current", Type: telemetry.F64, Unit: "A"},
	})
	require.NoError(t, err)

	s.schema = &schema

	data, err := telemetry.NewStreamData(other, 0, 1, [][]telemetry.Value{{telemetry.FloatValue(telemetry.F64, 1.0), telemetry.FloatValue(telemetry.F64, 2.0)}})
	require.NoError(t, err)
	encoded, err := wire.EncodeData(data, other)
	require.NoError(t, err)

	s.handleDataMessage(&nats.Msg{Subject: "telemetry.psu.data", Data: encoded})
	assert.Len(t, s.delivery, 0)
}
