// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statebus implements C5: publishing and subscribing to
// environmental state transitions over the same broker the streaming
// path uses. Transitions are JSON-encoded — the control plane's
// frequency is low enough that binary encoding buys nothing.
package statebus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hiltest/hilcore/pkg/natsbus"
	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/nats-io/nats.go"
)

// ErrNoCurrentState is returned by GetCurrentState before the first
// SetState/transition has been observed.
var ErrNoCurrentState = errors.New("statebus: no current state yet")

// DefaultSubject is the subject both publisher and subscriber use when
// none is configured.
const DefaultSubject = "telemetry.state"

// StatePublisher exposes SetState/GetCurrentState. The executor
// is expected to be the sole authoritative publisher for a station —
// ordering is only guaranteed per-publisher.
type StatePublisher struct {
	client   *natsbus.Client
	ownsConn bool
	subject  string

	mu      sync.Mutex
	current *telemetry.StateId
}

// NewStatePublisher wraps an existing client without taking ownership
// of it: a shared connection is never closed by a client it was passed
// into.
func NewStatePublisher(client *natsbus.Client, subject string) *StatePublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &StatePublisher{client: client, subject: subject}
}

// ConnectStatePublisher opens and owns its own broker connection.
func ConnectStatePublisher(cfg natsbus.Config, subject string) (*StatePublisher, error) {
	client, err := natsbus.Connect(cfg)
	if err != nil {
		return nil, err
	}
	p := NewStatePublisher(client, subject)
	p.ownsConn = true
	return p, nil
}

// SetState records a StateTransition from the current state (nil on the
// first call) to state, and emits it on the state subject. The only
// validation performed is that state is non-empty; state-graph validity
// is the caller's concern.
func (p *StatePublisher) SetState(state telemetry.StateId, reason string) error {
	if state == "" {
		return fmt.Errorf("statebus: state must not be empty")
	}

	p.mu.Lock()
	from := p.current
	p.mu.Unlock()

	transition := telemetry.StateTransition{
		FromState: from,
		ToState:   state,
		Timestamp: telemetry.NowLocal(),
		Reason:    reason,
	}

	encoded, err := json.Marshal(transition)
	if err != nil {
		return fmt.Errorf("statebus: marshal transition: %w", err)
	}
	if err := p.client.Publish(p.subject, encoded); err != nil {
		return err
	}

	p.mu.Lock()
	s := state
	p.current = &s
	p.mu.Unlock()
	return nil
}

// GetCurrentState returns the most recently set state.
func (p *StatePublisher) GetCurrentState() (telemetry.StateId, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", ErrNoCurrentState
	}
	return *p.current, nil
}

// Close releases the owned broker connection, if any.
func (p *StatePublisher) Close() {
	if p.ownsConn && p.client != nil {
		p.client.Close()
	}
}

// StateSubscriber exposes subscribe/transitions/get_current_state/
// unsubscribe.
type StateSubscriber struct {
	client   *natsbus.Client
	ownsConn bool
	subject  string

	mu          sync.Mutex
	subscribed  bool
	sub         *nats.Subscription
	current     *telemetry.StateId
	transitions chan telemetry.StateTransition
}

func NewStateSubscriber(client *natsbus.Client, subject string) *StateSubscriber {
	if subject == "" {
		subject = DefaultSubject
	}
	return &StateSubscriber{client: client, subject: subject}
}

func ConnectStateSubscriber(cfg natsbus.Config, subject string) (*StateSubscriber, error) {
	client, err := natsbus.Connect(cfg)
	if err != nil {
		return nil, err
	}
	s := NewStateSubscriber(client, subject)
	s.ownsConn = true
	return s, nil
}

// Subscribe begins receiving state transitions. Transitions emitted by
// a single publisher arrive on Transitions() in emission order.
func (s *StateSubscriber) Subscribe() error {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return fmt.Errorf("statebus: already subscribed")
	}
	s.transitions = make(chan telemetry.StateTransition, 64)
	s.mu.Unlock()

	sub, err := s.client.SubscribeEphemeral(s.subject, s.handleMessage)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

func (s *StateSubscriber) handleMessage(msg *nats.Msg) {
	var transition telemetry.StateTransition
	if err := json.Unmarshal(msg.Data, &transition); err != nil {
		return
	}

	s.mu.Lock()
	to := transition.ToState
	s.current = &to
	ch := s.transitions
	s.mu.Unlock()

	if ch != nil {
		ch <- transition
	}
}

// Transitions returns the channel state transitions are delivered on.
func (s *StateSubscriber) Transitions() <-chan telemetry.StateTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitions
}

func (s *StateSubscriber) GetCurrentState() (telemetry.StateId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", ErrNoCurrentState
	}
	return *s.current, nil
}

// Unsubscribe cancels delivery and drops the cached current state.
func (s *StateSubscriber) Unsubscribe() error {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return fmt.Errorf("statebus: not subscribed")
	}
	sub := s.sub
	s.mu.Unlock()

	err := s.client.Unsubscribe(sub)

	s.mu.Lock()
	s.subscribed = false
	s.sub = nil
	s.current = nil
	s.transitions = nil
	s.mu.Unlock()
	return err
}

func (s *StateSubscriber) Close() {
	if s.ownsConn && s.client != nil {
		s.client.Close()
	}
}
