// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/metrics"
	"github.com/hiltest/hilcore/pkg/natsbus"
	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/hiltest/hilcore/pkg/wire"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

// Subscriber implements C4: one active subscription at a time, caching
// the most recently broadcast schema and delivering validated data
// frames through a bounded channel. Only one active subscription per
// Subscriber instance is permitted.
type Subscriber struct {
	cfg SubscriberConfig

	client   *natsbus.Client
	ownsConn bool

	mu           sync.Mutex
	subscribed   bool
	sourceID     telemetry.SourceId
	schema       *telemetry.StreamSchema
	schemaReady  chan struct{}
	schemaClosed bool
	schemaSub    *nats.Subscription
	dataSub      *nats.Subscription
	delivery     chan telemetry.StreamData
}

// NewSubscriber builds a Subscriber. Connect must be called before
// Subscribe.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	return &Subscriber{cfg: cfg}
}

// Connect opens the broker connection this subscriber will use.
func (s *Subscriber) Connect() error {
	client, err := natsbus.Connect(s.cfg.Broker)
	if err != nil {
		return err
	}
	s.client = client
	s.ownsConn = true
	return nil
}

// Disconnect closes the owned broker connection. Any active
// subscription is torn down first.
func (s *Subscriber) Disconnect() error {
	s.mu.Lock()
	subscribed := s.subscribed
	s.mu.Unlock()
	if subscribed {
		if err := s.Unsubscribe(); err != nil {
			log.Warnf("stream: unsubscribe during disconnect: %v", err)
		}
	}
	if s.ownsConn && s.client != nil {
		s.client.Close()
	}
	return nil
}

// Subscribe begins receiving both the schema and data subjects for
// sourceID. Fails with ErrAlreadySubscribed if this instance already
// holds a subscription.
func (s *Subscriber) Subscribe(sourceID telemetry.SourceId) error {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	s.sourceID = sourceID
	s.schema = nil
	s.schemaReady = make(chan struct{})
	s.schemaClosed = false
	s.delivery = make(chan telemetry.StreamData, s.cfg.capacity())
	s.mu.Unlock()

	prefix := s.cfg.prefix()
	durableSuffix := uuid.NewString()

	schemaSub, err := s.client.SubscribeDurable(
		natsbus.SchemaSubject(prefix, sourceID),
		fmt.Sprintf("%s-schema-%s", sourceID, durableSuffix),
		s.cfg.DeliveryPolicy,
		s.handleSchemaMessage,
	)
	if err != nil {
		return err
	}

	dataSub, err := s.client.SubscribeDurable(
		natsbus.DataSubject(prefix, sourceID),
		fmt.Sprintf("%s-data-%s", sourceID, durableSuffix),
		s.cfg.DeliveryPolicy,
		s.handleDataMessage,
	)
	if err != nil {
		_ = s.client.Unsubscribe(schemaSub)
		return err
	}

	s.mu.Lock()
	s.schemaSub = schemaSub
	s.dataSub = dataSub
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

// handleSchemaMessage decodes a schema frame and, on success, caches it
// and wakes any GetSchema waiter. Integrity failures are logged and the
// message is still acknowledged; a corrupt schema frame does not block
// the subscription.
func (s *Subscriber) handleSchemaMessage(msg *nats.Msg) {
	defer func() { _ = msg.Ack() }()

	decoded, err := wire.DecodeSchema(msg.Data)
	if err != nil {
		log.Warnf("stream: dropping corrupt schema frame on %q: %v", msg.Subject, err)
		return
	}

	s.mu.Lock()
	s.schema = &decoded
	if !s.schemaClosed {
		close(s.schemaReady)
		s.schemaClosed = true
	}
	s.mu.Unlock()
}

// handleDataMessage implements the per-message receive loop: no cached
// schema means the frame is dropped silently; a schema_id mismatch is
// dropped with a warning; otherwise the frame is enqueued. The enqueue
// is a blocking channel send, which is what delays the Ack call below
// when the consumer is slow — backpressure instead of dropping frames.
func (s *Subscriber) handleDataMessage(msg *nats.Msg) {
	s.mu.Lock()
	schema := s.schema
	ch := s.delivery
	source := string(s.sourceID)
	s.mu.Unlock()

	if schema == nil {
		metrics.FramesDroppedTotal.WithLabelValues(source, "no_schema").Inc()
		log.Debugf("stream: dropping data frame on %q, no schema cached yet", msg.Subject)
		_ = msg.Ack()
		return
	}

	decoded, err := wire.DecodeData(msg.Data, *schema)
	if err != nil {
		reason := "decode_error"
		if errors.Is(err, wire.ErrSchemaIntegrity) {
			reason = "schema_mismatch"
		}
		metrics.FramesDroppedTotal.WithLabelValues(source, reason).Inc()
		log.Warnf("stream: dropping data frame on %q: %v", msg.Subject, err)
		_ = msg.Ack()
		return
	}

	ch <- decoded
	_ = msg.Ack()
}

// GetSchema waits for a schema to be cached, or returns ErrTimeout when
// ctx is done first. Fails immediately with ErrNotSubscribed if called
// before Subscribe.
func (s *Subscriber) GetSchema(ctx context.Context) (telemetry.StreamSchema, error) {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return telemetry.StreamSchema{}, ErrNotSubscribed
	}
	ready := s.schemaReady
	s.mu.Unlock()

	select {
	case <-ready:
		s.mu.Lock()
		schema := *s.schema
		s.mu.Unlock()
		return schema, nil
	case <-ctx.Done():
		return telemetry.StreamSchema{}, ErrTimeout
	}
}

// Data returns the channel data frames are delivered on. Unsubscribe
// stops further sends but does not close the channel, so a receive loop
// over it does not end on Unsubscribe; a later Subscribe allocates a
// fresh channel.
func (s *Subscriber) Data() <-chan telemetry.StreamData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivery
}

// Unsubscribe cancels the inbound subscriptions, drops the cached
// schema, and drains any frames already queued.
func (s *Subscriber) Unsubscribe() error {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return ErrNotSubscribed
	}
	schemaSub, dataSub, delivery := s.schemaSub, s.dataSub, s.delivery
	s.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return s.client.Unsubscribe(schemaSub) })
	g.Go(func() error { return s.client.Unsubscribe(dataSub) })
	err := g.Wait()

	for {
		select {
		case <-delivery:
		default:
			goto drained
		}
	}
drained:

	s.mu.Lock()
	s.subscribed = false
	s.schema = nil
	s.schemaSub = nil
	s.dataSub = nil
	s.delivery = nil
	s.mu.Unlock()
	return err
}

// IsSubscribed reports whether this instance currently holds an active
// subscription.
func (s *Subscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}
