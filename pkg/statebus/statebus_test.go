// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package statebus

import (
	"testing"

	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSubscriberGetCurrentStateBeforeAnyTransition(t *testing.T) {
	s := NewStateSubscriber(nil, "")
	_, err := s.GetCurrentState()
	assert.ErrorIs(t, err, ErrNoCurrentState)
}

func TestStateSubscriberTracksCurrentStateFromMessages(t *testing.T) {
	s := NewStateSubscriber(nil, "")
	s.transitions = make(chan telemetry.StateTransition, 4)

	from := telemetry.StateId("ambient")
	transition := telemetry.StateTransition{
		FromState: &from,
		ToState:   "ramp_up",
		Timestamp: telemetry.NowLocal(),
		Reason:    "profile step 1",
	}
	encoded, err := transition.MarshalJSON()
	require.NoError(t, err)

	s.handleMessage(&nats.Msg{Subject: DefaultSubject, Data: encoded})

	got, err := s.GetCurrentState()
	require.NoError(t, err)
	assert.Equal(t, telemetry.StateId("ramp_up"), got)

	select {
	case received := <-s.transitions:
		assert.Equal(t, transition.ToState, received.ToState)
		assert.Equal(t, transition.Reason, received.Reason)
	default:
		t.Fatal("expected a transition to be delivered on the channel")
	}
}

func TestStateSubscriberIgnoresMalformedMessages(t *testing.T) {
	s := NewStateSubscriber(nil, "")
	s.transitions = make(chan telemetry.StateTransition, 4)

	s.handleMessage(&nats.Msg{Subject: DefaultSubject, Data: []byte("not json")})

	_, err := s.GetCurrentState()
	assert.ErrorIs(t, err, ErrNoCurrentState)
	assert.Len(t, s.transitions, 0)
}

func TestStatePublisherNoCurrentStateAndRejectsEmptyState(t *testing.T) {
	p := NewStatePublisher(nil, "")
	_, err := p.GetCurrentState()
	assert.ErrorIs(t, err, ErrNoCurrentState)

	// SetState without a connected client cannot publish; verify the
	// empty-state guard independently of broker connectivity.
	err = p.SetState("", "no state given")
	assert.Error(t, err)
}
